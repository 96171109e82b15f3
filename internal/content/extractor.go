// Package content fetches an article page and extracts its readable body.
// It is the best-effort enrichment step of extraction: every failure is
// reported to the caller, which falls back to the summary.
package content

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/jonesrussell/north-cloud/techcrawler/internal/fetch"
	"github.com/jonesrussell/north-cloud/techcrawler/internal/logger"
)

// ErrNoContent is returned when a page has no paragraph text.
var ErrNoContent = errors.New("no paragraph content")

// paragraphSeparator joins paragraphs in the extracted body.
const paragraphSeparator = "\n\n"

// nonContentSelectors lists elements stripped before extraction.
const nonContentSelectors = "script, style, noscript, template"

// mainSelectors are tried in order to locate the article container.
var mainSelectors = []string{"article", "main", "[role='main']"}

// Fetcher retrieves a page.
type Fetcher interface {
	Get(ctx context.Context, rawURL string) (*fetch.Response, error)
}

// Extractor performs the secondary full-content fetch.
type Extractor struct {
	fetcher Fetcher
	cache   Cache
	logger  logger.Interface
}

// NewExtractor creates an Extractor. A nil cache disables caching.
func NewExtractor(fetcher Fetcher, cache Cache, log logger.Interface) *Extractor {
	if cache == nil {
		cache = NopCache{}
	}
	return &Extractor{
		fetcher: fetcher,
		cache:   cache,
		logger:  log.WithComponent("content"),
	}
}

// Extract returns the paragraph text of the page at pageURL.
func (e *Extractor) Extract(ctx context.Context, pageURL string) (string, error) {
	if cached, ok, err := e.cache.Get(ctx, pageURL); err != nil {
		e.logger.Warn("Content cache read failed", "url", pageURL, "error", err)
	} else if ok {
		return cached, nil
	}

	resp, err := e.fetcher.Get(ctx, pageURL)
	if err != nil {
		return "", fmt.Errorf("fetch article page: %w", err)
	}

	body, err := ExtractFromHTML(resp.Body, pageURL)
	if err != nil {
		return "", err
	}

	if setErr := e.cache.Set(ctx, pageURL, body); setErr != nil {
		e.logger.Warn("Content cache write failed", "url", pageURL, "error", setErr)
	}

	return body, nil
}

// ExtractFromHTML locates the main article container (article, main or
// role=main), falling back to a readability pass and finally to the whole
// document, and joins its non-empty paragraphs with a blank line.
func ExtractFromHTML(html []byte, pageURL string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	doc.Find(nonContentSelectors).Remove()

	for _, selector := range mainSelectors {
		if container := doc.Find(selector).First(); container.Length() > 0 {
			if text := joinParagraphs(container); text != "" {
				return text, nil
			}
		}
	}

	if text := readabilityParagraphs(html, pageURL); text != "" {
		return text, nil
	}

	if text := joinParagraphs(doc.Selection); text != "" {
		return text, nil
	}

	return "", ErrNoContent
}

// readabilityParagraphs runs go-readability and returns the paragraph
// text of its result, or "" when it finds nothing.
func readabilityParagraphs(html []byte, pageURL string) string {
	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}

	article, err := readability.FromReader(bytes.NewReader(html), parsedURL)
	if err != nil || strings.TrimSpace(article.Content) == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(article.Content))
	if err != nil {
		return ""
	}

	return joinParagraphs(doc.Selection)
}

func joinParagraphs(sel *goquery.Selection) string {
	var paragraphs []string
	sel.Find("p").Each(func(_ int, p *goquery.Selection) {
		if text := strings.TrimSpace(p.Text()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	})
	return strings.Join(paragraphs, paragraphSeparator)
}
