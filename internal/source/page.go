package source

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonesrussell/north-cloud/techcrawler/internal/domain"
	"github.com/jonesrussell/north-cloud/techcrawler/internal/urlnorm"
)

const (
	// maxPageCandidates caps the containers scanned on one listing page.
	maxPageCandidates = 20

	articleClassHint = "article"
	titleSelector    = "h1, h2, h3, a"
)

// PageSource scrapes an HTML listing page.
type PageSource struct {
	base
}

// Fetch downloads the listing page.
func (s *PageSource) Fetch(ctx context.Context) (*Payload, error) {
	resp, err := s.get(ctx)
	if err != nil {
		return nil, err
	}
	return &Payload{URL: resp.URL, Body: resp.Body}, nil
}

// Extract scans article-like containers on the page. A candidate without
// a title or a resolvable link is skipped without affecting the others.
func (s *PageSource) Extract(ctx context.Context, payload *Payload) ([]domain.Article, error) {
	if payload == nil {
		return nil, fmt.Errorf("extract %s: page payload is empty", s.cfg.Name)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(payload.Body))
	if err != nil {
		return nil, fmt.Errorf("extract %s: parse html: %w", s.cfg.Name, err)
	}

	candidates := findCandidates(doc)
	crawledAt := s.deps.Now().UTC()
	articles := make([]domain.Article, 0, candidates.Length())
	seen := make(map[string]struct{}, candidates.Length())

	for i := range candidates.Length() {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("extract %s: %w", s.cfg.Name, ctxErr)
		}

		candidate := candidates.Eq(i)
		title := strings.TrimSpace(candidate.Find(titleSelector).First().Text())
		href, _ := candidate.Find("a[href]").First().Attr("href")
		link, linkErr := urlnorm.Resolve(s.cfg.Endpoint, href)
		if title == "" || linkErr != nil {
			s.logger.Debug("Skipping page candidate", "index", i, "title", title, "href", href, "error", linkErr)
			continue
		}
		if _, dup := seen[link]; dup {
			continue
		}
		seen[link] = struct{}{}

		summary := strings.TrimSpace(candidate.Find("p").First().Text())
		article := domain.NewArticle(s.cfg.Name, title, link, summary, crawledAt, crawledAt)
		s.enrich(ctx, &article)
		articles = append(articles, article)
	}

	return articles, nil
}

// findCandidates returns the first article elements, or failing that the
// divs whose class mentions "article".
func findCandidates(doc *goquery.Document) *goquery.Selection {
	candidates := doc.Find("article")
	if candidates.Length() == 0 {
		candidates = doc.Find("div[class]").FilterFunction(func(_ int, sel *goquery.Selection) bool {
			class, _ := sel.Attr("class")
			return strings.Contains(strings.ToLower(class), articleClassHint)
		})
	}

	if candidates.Length() > maxPageCandidates {
		candidates = candidates.Slice(0, maxPageCandidates)
	}
	return candidates
}
