package domain

import (
	"fmt"
	"strings"
)

// SourceKind selects how a source is fetched and extracted.
type SourceKind string

const (
	// SourceKindFeed is an RSS or Atom syndication feed.
	SourceKindFeed SourceKind = "feed"
	// SourceKindPage is a raw HTML listing page.
	SourceKindPage SourceKind = "page"
)

// ParseSourceKind accepts "feed"/"page" and the legacy "rss"/"html" names.
func ParseSourceKind(s string) (SourceKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "feed", "rss", "atom":
		return SourceKindFeed, nil
	case "page", "html":
		return SourceKindPage, nil
	default:
		return "", fmt.Errorf("unknown source kind %q", s)
	}
}

// SourceConfig describes one configured news source.
type SourceConfig struct {
	Name     string     `json:"name" mapstructure:"name" yaml:"name"`
	Endpoint string     `json:"endpoint" mapstructure:"endpoint" yaml:"endpoint"`
	Kind     SourceKind `json:"kind" mapstructure:"kind" yaml:"kind"`
}

// Company is a watch-list entry.
type Company struct {
	Name   string `json:"name" mapstructure:"name" yaml:"name"`
	Ticker string `json:"ticker" mapstructure:"ticker" yaml:"ticker"`
}

// WatchList holds the companies and trend keywords that drive relevance.
type WatchList struct {
	Companies []Company `json:"companies" mapstructure:"companies" yaml:"companies"`
	Trends    []string  `json:"trends" mapstructure:"trends" yaml:"trends"`
}
