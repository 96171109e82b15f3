// Package metrics provides Prometheus metrics for crawl runs and the HTTP API.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jonesrussell/north-cloud/techcrawler/internal/domain"
)

const (
	// MetricsNamespace is the namespace for all techcrawler metrics.
	MetricsNamespace = "techcrawler"

	crawlSubsystem = "crawl"
	httpSubsystem  = "http"

	// Source outcomes.
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Crawl metrics
	SourcesTotal          *prometheus.CounterVec
	SourceDuration        *prometheus.HistogramVec
	ArticlesSeenTotal     *prometheus.CounterVec
	ArticlesRelevantTotal *prometheus.CounterVec
	ArticlesInsertedTotal *prometheus.CounterVec
	RunDuration           prometheus.Histogram
	RunsTotal             prometheus.Counter
	LastRunTimestamp      prometheus.Gauge

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// New creates and registers all metrics with reg. A nil reg uses the
// default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)
	m := &Metrics{}

	m.initCrawlMetrics(factory)
	m.initHTTPMetrics(factory)

	return m
}

func (m *Metrics) initCrawlMetrics(factory promauto.Factory) {
	m.SourcesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Subsystem: crawlSubsystem,
			Name:      "sources_total",
			Help:      "Sources processed, by outcome and failure kind",
		},
		[]string{"source", "outcome", "kind"},
	)

	m.SourceDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: MetricsNamespace,
			Subsystem: crawlSubsystem,
			Name:      "source_duration_seconds",
			Help:      "Time spent fetching, extracting and storing one source",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		},
		[]string{"source"},
	)

	m.ArticlesSeenTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Subsystem: crawlSubsystem,
			Name:      "articles_seen_total",
			Help:      "Articles extracted from sources",
		},
		[]string{"source"},
	)

	m.ArticlesRelevantTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Subsystem: crawlSubsystem,
			Name:      "articles_relevant_total",
			Help:      "Articles that passed the relevance gate",
		},
		[]string{"source"},
	)

	m.ArticlesInsertedTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Subsystem: crawlSubsystem,
			Name:      "articles_inserted_total",
			Help:      "Articles stored as new rows",
		},
		[]string{"source"},
	)

	m.RunDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: MetricsNamespace,
			Subsystem: crawlSubsystem,
			Name:      "run_duration_seconds",
			Help:      "Duration of a full crawl run",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~68min
		},
	)

	m.RunsTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Subsystem: crawlSubsystem,
			Name:      "runs_total",
			Help:      "Completed crawl runs",
		},
	)

	m.LastRunTimestamp = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Subsystem: crawlSubsystem,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last crawl run finished",
		},
	)
}

func (m *Metrics) initHTTPMetrics(factory promauto.Factory) {
	m.RequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Subsystem: httpSubsystem,
			Name:      "requests_total",
			Help:      "HTTP API requests",
		},
		[]string{"method", "route", "status"},
	)

	m.RequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: MetricsNamespace,
			Subsystem: httpSubsystem,
			Name:      "request_duration_seconds",
			Help:      "HTTP API request latency",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
}

// ObserveSource records the outcome of one source. kind is empty on success.
func (m *Metrics) ObserveSource(source, outcome, kind string, d time.Duration) {
	m.SourcesTotal.WithLabelValues(source, outcome, kind).Inc()
	m.SourceDuration.WithLabelValues(source).Observe(d.Seconds())
}

// ObserveArticles records per-source article counts.
func (m *Metrics) ObserveArticles(source string, seen, relevant, inserted int) {
	m.ArticlesSeenTotal.WithLabelValues(source).Add(float64(seen))
	m.ArticlesRelevantTotal.WithLabelValues(source).Add(float64(relevant))
	m.ArticlesInsertedTotal.WithLabelValues(source).Add(float64(inserted))
}

// ObserveRun records a finished crawl run.
func (m *Metrics) ObserveRun(stats domain.CrawlStats) {
	m.RunsTotal.Inc()
	m.RunDuration.Observe(stats.Duration().Seconds())
	m.LastRunTimestamp.Set(float64(stats.FinishedAt.Unix()))
}
