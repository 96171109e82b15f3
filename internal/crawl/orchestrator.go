// Package crawl drives a crawl run across every configured source:
// fetch, extract, analyze and store, one source at a time. A failing
// source is counted and skipped; a run always returns statistics.
package crawl

//go:generate mockgen -source=orchestrator.go -destination=mocks/mock_store.go -package=mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonesrussell/north-cloud/techcrawler/internal/domain"
	"github.com/jonesrussell/north-cloud/techcrawler/internal/fetch"
	"github.com/jonesrussell/north-cloud/techcrawler/internal/logger"
	"github.com/jonesrussell/north-cloud/techcrawler/internal/metrics"
	"github.com/jonesrussell/north-cloud/techcrawler/internal/source"
	"github.com/jonesrussell/north-cloud/techcrawler/internal/storage"
)

// DefaultDelay is the pause between sources.
const DefaultDelay = time.Second

// Config holds crawl run settings.
type Config struct {
	// Delay is the pause between two sources.
	Delay time.Duration `mapstructure:"delay" yaml:"delay"`
	// FetchContent enables the secondary full-content fetch.
	FetchContent bool `mapstructure:"fetch_content" yaml:"fetch_content"`
}

// Store is the persistence the orchestrator writes to and reads from.
type Store interface {
	UpsertBatch(ctx context.Context, articles []domain.Article) (int, error)
	Query(ctx context.Context, opts storage.QueryOptions) ([]domain.Article, error)
	Search(ctx context.Context, keyword string, limit int) ([]domain.Article, error)
	Count(ctx context.Context) (int, error)
	ListSources(ctx context.Context) ([]string, error)
	LastCrawled(ctx context.Context) (*time.Time, error)
}

// Analyzer scores and tags articles in place.
type Analyzer interface {
	AnalyzeBatch(articles []domain.Article) []domain.Article
}

// RunOptions selects the stages of a run.
type RunOptions struct {
	// Persist writes articles to the store.
	Persist bool
	// Analyze scores articles and keeps only relevant ones.
	Analyze bool
}

// DefaultRunOptions persists analyzed articles.
func DefaultRunOptions() RunOptions {
	return RunOptions{Persist: true, Analyze: true}
}

// state names the per-source pipeline stages in logs.
type state string

const (
	stateFetching  state = "fetching"
	stateParsing   state = "parsing"
	stateAnalyzing state = "analyzing"
	stateStoring   state = "storing"
	stateDone      state = "done"
)

// sourceResult is the outcome of one source within a run.
type sourceResult struct {
	seen     int
	relevant int
	inserted int
	err      error
	failedAt state
}

// Orchestrator runs crawls. Concurrent Run calls are serialised.
type Orchestrator struct {
	sources  []source.Source
	store    Store
	analyzer Analyzer
	metrics  *metrics.Metrics
	logger   logger.Interface
	delay    time.Duration
	now      func() time.Time

	runMu sync.Mutex
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithMetrics records run and source metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithClock overrides the time source used for run timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// New creates an Orchestrator over the given sources.
func New(
	cfg Config,
	sources []source.Source,
	store Store,
	analyzer Analyzer,
	log logger.Interface,
	opts ...Option,
) *Orchestrator {
	o := &Orchestrator{
		sources:  sources,
		store:    store,
		analyzer: analyzer,
		logger:   log.WithComponent("crawl"),
		delay:    cfg.Delay,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run crawls every source in configured order and returns the run
// statistics. Source failures are counted, never returned. Cancelling
// ctx stops the run before the next source.
func (o *Orchestrator) Run(ctx context.Context, opts RunOptions) domain.CrawlStats {
	o.runMu.Lock()
	defer o.runMu.Unlock()

	stats := domain.CrawlStats{
		RunID:     uuid.NewString(),
		StartedAt: o.now().UTC(),
	}
	runLog := o.logger.With("run_id", stats.RunID)
	runLog.Info("Crawl run started",
		"sources", len(o.sources),
		"persist", opts.Persist,
		"analyze", opts.Analyze,
	)

	for i, src := range o.sources {
		if ctx.Err() != nil {
			runLog.Warn("Crawl run cancelled", "remaining_sources", len(o.sources)-i)
			break
		}

		name := src.Config().Name
		started := time.Now()
		res := o.crawlSource(ctx, src, opts, runLog.With("source", name))
		o.recordSource(name, res, time.Since(started))

		stats.TotalArticles += res.seen
		if res.err != nil {
			stats.Errors++
			runLog.Warn("Source failed",
				"source", name,
				"stage", string(res.failedAt),
				"error_kind", string(fetch.KindOf(res.err)),
				"error", res.err,
			)
		} else {
			stats.SourcesCrawled++
			stats.RelevantArticles += res.relevant
		}

		if i < len(o.sources)-1 {
			if err := sleep(ctx, o.delay); err != nil {
				runLog.Warn("Crawl run cancelled", "remaining_sources", len(o.sources)-i-1)
				break
			}
		}
	}

	stats.FinishedAt = o.now().UTC()
	if o.metrics != nil {
		o.metrics.ObserveRun(stats)
	}

	runLog.Info("Crawl run finished",
		"total_articles", stats.TotalArticles,
		"relevant_articles", stats.RelevantArticles,
		"sources_crawled", stats.SourcesCrawled,
		"errors", stats.Errors,
		"duration", stats.Duration().String(),
	)

	return stats
}

// crawlSource moves one source through fetch, parse, analyze and store.
func (o *Orchestrator) crawlSource(
	ctx context.Context,
	src source.Source,
	opts RunOptions,
	log logger.Interface,
) sourceResult {
	var res sourceResult

	log.Debug("Source state", "state", string(stateFetching))
	payload, err := src.Fetch(ctx)
	if err != nil {
		res.err, res.failedAt = err, stateFetching
		return res
	}

	log.Debug("Source state", "state", string(stateParsing))
	articles, err := src.Extract(ctx, payload)
	if err != nil {
		res.err, res.failedAt = err, stateParsing
		return res
	}
	res.seen = len(articles)

	if opts.Analyze && o.analyzer != nil {
		log.Debug("Source state", "state", string(stateAnalyzing), "articles", len(articles))
		articles = relevantOnly(o.analyzer.AnalyzeBatch(articles))
	}
	res.relevant = len(articles)

	if opts.Persist && len(articles) > 0 {
		log.Debug("Source state", "state", string(stateStoring), "articles", len(articles))
		inserted, storeErr := o.store.UpsertBatch(ctx, articles)
		if storeErr != nil {
			res.err, res.failedAt = fmt.Errorf("store articles: %w", storeErr), stateStoring
			return res
		}
		res.inserted = inserted
	}

	log.Debug("Source state",
		"state", string(stateDone),
		"seen", res.seen,
		"relevant", res.relevant,
		"inserted", res.inserted,
	)
	return res
}

func (o *Orchestrator) recordSource(name string, res sourceResult, d time.Duration) {
	if o.metrics == nil {
		return
	}

	if res.err != nil {
		kind := string(fetch.KindOf(res.err))
		if kind == "" {
			kind = string(res.failedAt)
		}
		o.metrics.ObserveSource(name, metrics.OutcomeFailure, kind, d)
		return
	}

	o.metrics.ObserveSource(name, metrics.OutcomeSuccess, "", d)
	o.metrics.ObserveArticles(name, res.seen, res.relevant, res.inserted)
}

func relevantOnly(articles []domain.Article) []domain.Article {
	kept := articles[:0]
	for _, a := range articles {
		if a.Relevant {
			kept = append(kept, a)
		}
	}
	return kept
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
