package crawl_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/jonesrussell/north-cloud/techcrawler/internal/crawl"
	"github.com/jonesrussell/north-cloud/techcrawler/internal/crawl/mocks"
	"github.com/jonesrussell/north-cloud/techcrawler/internal/domain"
	"github.com/jonesrussell/north-cloud/techcrawler/internal/logger"
	"github.com/jonesrussell/north-cloud/techcrawler/internal/storage"
)

func newQueryOrchestrator(t *testing.T) (*crawl.Orchestrator, *mocks.MockStore) {
	t.Helper()
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	return crawl.NewReader(store, logger.NewNoOp()), store
}

func TestStats(t *testing.T) {
	t.Parallel()

	o, store := newQueryOrchestrator(t)
	last := time.Date(2026, 4, 1, 6, 0, 0, 0, time.UTC)

	store.EXPECT().Count(gomock.Any()).Return(12, nil)
	store.EXPECT().ListSources(gomock.Any()).Return([]string{"Ars Technica", "Wired"}, nil)
	store.EXPECT().LastCrawled(gomock.Any()).Return(&last, nil)

	summary, err := o.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.StoreSummary{
		TotalArticles: 12,
		NumSources:    2,
		Sources:       []string{"Ars Technica", "Wired"},
		LastCrawled:   &last,
	}, summary)
}

func TestStats_CountError(t *testing.T) {
	t.Parallel()

	o, store := newQueryOrchestrator(t)
	store.EXPECT().Count(gomock.Any()).Return(0, &storage.Error{Op: "count", Err: errors.New("closed")})

	_, err := o.Stats(context.Background())
	require.ErrorIs(t, err, storage.ErrStorage)
}

func TestRecent(t *testing.T) {
	t.Parallel()

	o, store := newQueryOrchestrator(t)
	want := []domain.Article{{ID: 1, Title: "Recent"}}
	store.EXPECT().
		Query(gomock.Any(), storage.QueryOptions{Limit: 10, DaysBack: 7}).
		Return(want, nil)

	got, err := o.Recent(context.Background(), 10, 7)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSearch(t *testing.T) {
	t.Parallel()

	o, store := newQueryOrchestrator(t)
	store.EXPECT().Search(gomock.Any(), "python", 10).Return(nil, errors.New("boom"))

	_, err := o.Search(context.Background(), "python", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to search articles")
}

func TestNewReader_RunWithoutSources(t *testing.T) {
	t.Parallel()

	o, _ := newQueryOrchestrator(t)

	stats := o.Run(context.Background(), crawl.DefaultRunOptions())
	assert.Zero(t, stats.SourcesCrawled)
	assert.Zero(t, stats.Errors)
	assert.NotEmpty(t, stats.RunID)
}
