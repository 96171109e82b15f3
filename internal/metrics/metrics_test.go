package metrics_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/techcrawler/internal/domain"
	"github.com/jonesrussell/north-cloud/techcrawler/internal/metrics"
)

func TestNew_RegistersWithRegistry(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	m.ObserveSource("Wired", metrics.OutcomeSuccess, "", 250*time.Millisecond)
	m.ObserveSource("Wired", metrics.OutcomeFailure, "timeout", time.Second)
	m.ObserveArticles("Wired", 10, 4, 3)

	assert.InDelta(t, 1, testutil.ToFloat64(m.SourcesTotal.WithLabelValues("Wired", "success", "")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.SourcesTotal.WithLabelValues("Wired", "failure", "timeout")), 0)
	assert.InDelta(t, 10, testutil.ToFloat64(m.ArticlesSeenTotal.WithLabelValues("Wired")), 0)
	assert.InDelta(t, 4, testutil.ToFloat64(m.ArticlesRelevantTotal.WithLabelValues("Wired")), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(m.ArticlesInsertedTotal.WithLabelValues("Wired")), 0)

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestObserveRun(t *testing.T) {
	t.Parallel()

	m := metrics.New(prometheus.NewRegistry())
	finished := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	m.ObserveRun(domain.CrawlStats{StartedAt: finished.Add(-time.Minute), FinishedAt: finished})

	assert.InDelta(t, 1, testutil.ToFloat64(m.RunsTotal), 0)
	assert.InDelta(t, float64(finished.Unix()), testutil.ToFloat64(m.LastRunTimestamp), 0)
}

func TestNew_DuplicateRegistrationPanics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	metrics.New(reg)

	assert.Panics(t, func() { metrics.New(reg) })
}
