// Package domain provides domain models used across the application.
package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// tagSeparator joins tags in their persisted form.
const tagSeparator = ","

// Article is the canonical unit moving through the ingest pipeline.
type Article struct {
	// ID is assigned by the store on first insert.
	ID int64 `json:"id" db:"id"`
	// Title is the display title. Never empty.
	Title string `json:"title" db:"title"`
	// URL is the canonical absolute URL and the deduplication key.
	URL string `json:"url" db:"url"`
	// Summary is a short excerpt, possibly empty.
	Summary string `json:"summary" db:"summary"`
	// Content is the extracted body, falling back to Summary.
	Content string `json:"content" db:"content"`
	// Source is the configured name of the originating feed or site.
	Source string `json:"source" db:"source"`
	// PublishedAt is the original publication time.
	PublishedAt time.Time `json:"published_at" db:"published_at"`
	// CrawledAt is when the pipeline first saw the article.
	CrawledAt time.Time `json:"crawled_at" db:"crawled_at"`
	// UpdatedAt is when the stored row last changed.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
	// Relevant tracks the analysis outcome.
	Relevant bool `json:"relevant" db:"relevant"`
	// Processed reports whether analysis has run.
	Processed bool `json:"processed" db:"processed"`
	// RelevanceScore is the normalized watch-list score in [0,1].
	RelevanceScore float64 `json:"relevance_score" db:"relevance_score"`
	// Tags holds company and trend tags.
	Tags []string `json:"tags" db:"-"`
}

// NewArticle builds an unpersisted article stamped with its source and crawl time.
func NewArticle(source, title, url, summary string, publishedAt, crawledAt time.Time) Article {
	return Article{
		Title:       title,
		URL:         url,
		Summary:     summary,
		Content:     summary,
		Source:      source,
		PublishedAt: publishedAt,
		CrawledAt:   crawledAt,
		UpdatedAt:   crawledAt,
		Relevant:    true,
	}
}

// TagsString returns tags in their persisted comma-separated form.
func (a *Article) TagsString() string {
	if len(a.Tags) == 0 {
		return ""
	}
	return strings.Join(a.Tags, tagSeparator)
}

// ParseTags splits a persisted tag string back into a list.
func ParseTags(s string) []string {
	if strings.TrimSpace(s) == "" {
		return []string{}
	}

	parts := strings.Split(s, tagSeparator)
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}

// Excerpt returns the summary truncated to at most n runes.
func (a *Article) Excerpt(n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(a.Summary) <= n {
		return a.Summary
	}
	runes := []rune(a.Summary)
	return string(runes[:n])
}

// BodyOrSummary returns Content, or Summary when Content is empty.
func (a *Article) BodyOrSummary() string {
	if a.Content != "" {
		return a.Content
	}
	return a.Summary
}
