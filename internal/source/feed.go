package source

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/jonesrussell/north-cloud/techcrawler/internal/domain"
	"github.com/jonesrussell/north-cloud/techcrawler/internal/fetch"
	"github.com/jonesrussell/north-cloud/techcrawler/internal/urlnorm"
)

// httpPrefix marks a GUID that can stand in for a missing link.
const httpPrefix = "http"

// FeedSource reads an RSS or Atom feed.
type FeedSource struct {
	base
}

// Fetch downloads and parses the feed. A feed without entries is a
// KindEmptyFeed failure.
func (s *FeedSource) Fetch(ctx context.Context) (*Payload, error) {
	resp, err := s.get(ctx)
	if err != nil {
		return nil, err
	}

	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, fetch.NewParseError(fmt.Errorf("parse feed: %w", err), s.cfg.Endpoint)
	}

	if len(parsed.Items) == 0 {
		return nil, fetch.NewEmptyFeedError(s.cfg.Endpoint)
	}

	return &Payload{URL: resp.URL, Body: resp.Body, Feed: parsed}, nil
}

// Extract maps feed entries to articles. Entries without a title or a
// usable link are skipped.
func (s *FeedSource) Extract(ctx context.Context, payload *Payload) ([]domain.Article, error) {
	if payload == nil || payload.Feed == nil {
		return nil, fmt.Errorf("extract %s: feed payload is empty", s.cfg.Name)
	}

	crawledAt := s.deps.Now().UTC()
	articles := make([]domain.Article, 0, len(payload.Feed.Items))
	seen := make(map[string]struct{}, len(payload.Feed.Items))

	for _, entry := range payload.Feed.Items {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("extract %s: %w", s.cfg.Name, err)
		}

		title := strings.TrimSpace(entry.Title)
		link, err := urlnorm.Normalize(extractLink(entry))
		if title == "" || err != nil {
			s.logger.Debug("Skipping feed entry", "title", title, "link", entry.Link, "error", err)
			continue
		}
		if _, dup := seen[link]; dup {
			continue
		}
		seen[link] = struct{}{}

		article := domain.NewArticle(s.cfg.Name, title, link, plainText(entry.Description),
			publishedAt(entry, crawledAt), crawledAt)
		s.enrich(ctx, &article)
		articles = append(articles, article)
	}

	return articles, nil
}

// extractLink prefers the entry link, falling back to a GUID that looks
// like an HTTP URL.
func extractLink(entry *gofeed.Item) string {
	if link := strings.TrimSpace(entry.Link); link != "" {
		return link
	}
	if strings.HasPrefix(entry.GUID, httpPrefix) {
		return entry.GUID
	}
	return ""
}

// publishedAt resolves the entry's publication time: published, then
// updated, then the crawl time.
func publishedAt(entry *gofeed.Item, fallback time.Time) time.Time {
	if entry.PublishedParsed != nil {
		return entry.PublishedParsed.UTC()
	}
	if entry.UpdatedParsed != nil {
		return entry.UpdatedParsed.UTC()
	}
	return fallback
}
