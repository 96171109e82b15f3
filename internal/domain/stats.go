package domain

import "time"

// CrawlStats summarises one crawl run.
type CrawlStats struct {
	RunID            string    `json:"run_id"`
	TotalArticles    int       `json:"total_articles"`
	RelevantArticles int       `json:"relevant_articles"`
	SourcesCrawled   int       `json:"sources_crawled"`
	Errors           int       `json:"errors"`
	StartedAt        time.Time `json:"started_at"`
	FinishedAt       time.Time `json:"finished_at"`
}

// Duration returns how long the run took.
func (s CrawlStats) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}

// StoreSummary is the read-side view of the store used by dashboards.
type StoreSummary struct {
	TotalArticles int        `json:"total_articles"`
	NumSources    int        `json:"num_sources"`
	Sources       []string   `json:"sources"`
	LastCrawled   *time.Time `json:"last_crawled"`
}
