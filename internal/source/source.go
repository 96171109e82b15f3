// Package source turns one configured news source into article records.
// A Source fetches its raw payload and extracts articles from it; feed
// and page sources share the enrichment and stamping steps.
package source

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/jonesrussell/north-cloud/techcrawler/internal/domain"
	"github.com/jonesrussell/north-cloud/techcrawler/internal/fetch"
	"github.com/jonesrussell/north-cloud/techcrawler/internal/logger"
)

// ErrUnknownKind is returned by New for an unsupported source kind.
var ErrUnknownKind = errors.New("unknown source kind")

// Fetcher retrieves a URL.
type Fetcher interface {
	Get(ctx context.Context, rawURL string) (*fetch.Response, error)
}

// ContentExtractor performs the secondary full-content fetch.
type ContentExtractor interface {
	Extract(ctx context.Context, pageURL string) (string, error)
}

// Payload is the raw result of a successful Fetch.
type Payload struct {
	URL  string
	Body []byte
	// Feed is the parsed document for feed sources, nil for pages.
	Feed *gofeed.Feed
}

// Source is one configured news source.
type Source interface {
	Config() domain.SourceConfig
	// Fetch retrieves the source endpoint. Every failure is a *fetch.Error.
	Fetch(ctx context.Context) (*Payload, error)
	// Extract turns a payload into unpersisted articles.
	Extract(ctx context.Context, payload *Payload) ([]domain.Article, error)
}

// Deps holds the collaborators shared by every source.
type Deps struct {
	Fetcher Fetcher
	// Content enriches article bodies. Nil skips enrichment.
	Content ContentExtractor
	Logger  logger.Interface
	// Now stamps CrawledAt. Defaults to time.Now.
	Now func() time.Time
}

// New returns the Source variant for cfg.Kind.
func New(cfg domain.SourceConfig, deps Deps) (Source, error) {
	if deps.Fetcher == nil {
		return nil, errors.New("source: fetcher is required")
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewNoOp()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	b := base{
		cfg:    cfg,
		deps:   deps,
		logger: deps.Logger.WithComponent("source").With("source", cfg.Name),
	}

	switch cfg.Kind {
	case domain.SourceKindFeed:
		return &FeedSource{base: b}, nil
	case domain.SourceKindPage:
		return &PageSource{base: b}, nil
	default:
		return nil, fmt.Errorf("%w: %q for source %s", ErrUnknownKind, cfg.Kind, cfg.Name)
	}
}

// NewAll builds a Source for every config, stopping at the first error.
func NewAll(cfgs []domain.SourceConfig, deps Deps) ([]Source, error) {
	sources := make([]Source, 0, len(cfgs))
	for _, cfg := range cfgs {
		src, err := New(cfg, deps)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, nil
}

type base struct {
	cfg    domain.SourceConfig
	deps   Deps
	logger logger.Interface
}

// Config returns the source configuration.
func (b *base) Config() domain.SourceConfig {
	return b.cfg
}

func (b *base) get(ctx context.Context) (*fetch.Response, error) {
	resp, err := b.deps.Fetcher.Get(ctx, b.cfg.Endpoint)
	if err != nil {
		var fe *fetch.Error
		if errors.As(err, &fe) {
			return nil, err
		}
		return nil, &fetch.Error{Kind: fetch.KindNetwork, URL: b.cfg.Endpoint, Cause: err}
	}
	return resp, nil
}

// enrich replaces the article body with the full page content when the
// secondary fetch succeeds. Failures leave the summary in place.
func (b *base) enrich(ctx context.Context, a *domain.Article) {
	if b.deps.Content == nil {
		return
	}

	body, err := b.deps.Content.Extract(ctx, a.URL)
	if err != nil {
		b.logger.Debug("Full content unavailable, using summary", "url", a.URL, "error", err)
		return
	}
	a.Content = body
}

// plainText strips markup from a feed summary.
func plainText(s string) string {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, "<") {
		return s
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
