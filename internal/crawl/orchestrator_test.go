package crawl_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/jonesrussell/north-cloud/techcrawler/internal/analyzer"
	"github.com/jonesrussell/north-cloud/techcrawler/internal/crawl"
	"github.com/jonesrussell/north-cloud/techcrawler/internal/crawl/mocks"
	"github.com/jonesrussell/north-cloud/techcrawler/internal/domain"
	"github.com/jonesrussell/north-cloud/techcrawler/internal/fetch"
	"github.com/jonesrussell/north-cloud/techcrawler/internal/logger"
	"github.com/jonesrussell/north-cloud/techcrawler/internal/metrics"
	"github.com/jonesrussell/north-cloud/techcrawler/internal/source"
	"github.com/jonesrussell/north-cloud/techcrawler/internal/storage"
)

var crawlTime = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

type fakeSource struct {
	name       string
	articles   []domain.Article
	fetchErr   error
	extractErr error
	onFetch    func()
	fetched    atomic.Int32
}

func (f *fakeSource) Config() domain.SourceConfig {
	return domain.SourceConfig{Name: f.name, Endpoint: "https://" + f.name + ".example/feed", Kind: domain.SourceKindFeed}
}

func (f *fakeSource) Fetch(context.Context) (*source.Payload, error) {
	f.fetched.Add(1)
	if f.onFetch != nil {
		f.onFetch()
	}
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return &source.Payload{URL: f.Config().Endpoint}, nil
}

func (f *fakeSource) Extract(context.Context, *source.Payload) ([]domain.Article, error) {
	if f.extractErr != nil {
		return nil, f.extractErr
	}
	out := make([]domain.Article, len(f.articles))
	copy(out, f.articles)
	return out, nil
}

func article(src, slug, title string) domain.Article {
	return domain.NewArticle(src, title, "https://"+src+".example/"+slug, "", crawlTime, crawlTime)
}

func newSQLiteStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.Open(context.Background(), storage.Config{URL: "sqlite://:memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testAnalyzer() *analyzer.Analyzer {
	return analyzer.New(domain.WatchList{
		Companies: []domain.Company{{Name: "Apple", Ticker: "AAPL"}, {Name: "Nvidia", Ticker: "NVDA"}},
		Trends:    []string{"machine learning"},
	})
}

func TestRun_FaultIsolation(t *testing.T) {
	t.Parallel()

	store := newSQLiteStore(t)
	sources := []source.Source{
		&fakeSource{name: "one", articles: []domain.Article{article("one", "a", "First story")}},
		&fakeSource{name: "two", fetchErr: &fetch.Error{Kind: fetch.KindNetwork, URL: "https://two.example/feed", Cause: errors.New("connection refused")}},
		&fakeSource{name: "three", articles: []domain.Article{article("three", "b", "Third story")}},
	}

	o := crawl.New(crawl.Config{}, sources, store, nil, logger.NewNoOp())
	stats := o.Run(context.Background(), crawl.RunOptions{Persist: true})

	assert.Equal(t, 2, stats.SourcesCrawled)
	assert.Equal(t, 1, stats.Errors)
	assert.Equal(t, 2, stats.TotalArticles)
	assert.NotEmpty(t, stats.RunID)

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	names, err := store.ListSources(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "three"}, names)
}

func TestRun_EmptyFeedCountsAsFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, `<?xml version="1.0"?><rss version="2.0"><channel><title>t</title></channel></rss>`)
	}))
	t.Cleanup(srv.Close)

	src, err := source.New(
		domain.SourceConfig{Name: "empty", Endpoint: srv.URL, Kind: domain.SourceKindFeed},
		source.Deps{Fetcher: fetch.NewClient(fetch.Config{RateLimit: -1}, nil)},
	)
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)

	o := crawl.New(crawl.Config{}, []source.Source{src}, store, testAnalyzer(), logger.NewNoOp())
	stats := o.Run(context.Background(), crawl.DefaultRunOptions())

	assert.Equal(t, 0, stats.SourcesCrawled)
	assert.Equal(t, 1, stats.Errors)
	assert.Equal(t, 0, stats.TotalArticles)
}

func TestRun_AnalyzeStoresOnlyRelevant(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)

	src := &fakeSource{name: "wire", articles: []domain.Article{
		article("wire", "1", "Apple unveils new chip"),
		article("wire", "2", "Local bakery opens"),
		article("wire", "3", "Nvidia sponsors sports league"),
		article("wire", "4", "Advances in machine learning"),
	}}

	var stored []domain.Article
	store.EXPECT().
		UpsertBatch(gomock.Any(), gomock.Len(2)).
		DoAndReturn(func(_ context.Context, articles []domain.Article) (int, error) {
			stored = append(stored, articles...)
			return len(articles), nil
		})

	o := crawl.New(crawl.Config{}, []source.Source{src}, store, testAnalyzer(), logger.NewNoOp())
	stats := o.Run(context.Background(), crawl.DefaultRunOptions())

	assert.Equal(t, 4, stats.TotalArticles)
	assert.Equal(t, 2, stats.RelevantArticles)
	assert.Equal(t, 1, stats.SourcesCrawled)
	assert.Zero(t, stats.Errors)

	require.Len(t, stored, 2)
	assert.Equal(t, "Apple unveils new chip", stored[0].Title)
	assert.Equal(t, []string{"AAPL (Apple)"}, stored[0].Tags)
	assert.True(t, stored[0].Processed)
	assert.Equal(t, "Advances in machine learning", stored[1].Title)
	assert.Equal(t, []string{"MACHINE_LEARNING"}, stored[1].Tags)
}

func TestRun_StorageFailureIsolated(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)

	first := &fakeSource{name: "first", articles: []domain.Article{article("first", "1", "One")}}
	second := &fakeSource{name: "second", articles: []domain.Article{article("second", "1", "Two")}}

	gomock.InOrder(
		store.EXPECT().UpsertBatch(gomock.Any(), gomock.Any()).
			Return(0, &storage.Error{Op: "upsert batch", Err: errors.New("database is locked")}),
		store.EXPECT().UpsertBatch(gomock.Any(), gomock.Any()).Return(1, nil),
	)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	o := crawl.New(crawl.Config{}, []source.Source{first, second}, store, nil, logger.NewNoOp(), crawl.WithMetrics(m))
	stats := o.Run(context.Background(), crawl.RunOptions{Persist: true})

	assert.Equal(t, 1, stats.SourcesCrawled)
	assert.Equal(t, 1, stats.Errors)
	assert.Equal(t, 2, stats.TotalArticles)
	assert.Equal(t, 1, stats.RelevantArticles)

	assert.InDelta(t, 1, testutil.ToFloat64(m.SourcesTotal.WithLabelValues("first", metrics.OutcomeFailure, "storing")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.SourcesTotal.WithLabelValues("second", metrics.OutcomeSuccess, "")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.ArticlesInsertedTotal.WithLabelValues("second")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.RunsTotal), 0)
}

func TestRun_NoPersistSkipsStore(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)

	src := &fakeSource{name: "s", articles: []domain.Article{article("s", "1", "Apple story")}}
	o := crawl.New(crawl.Config{}, []source.Source{src}, store, testAnalyzer(), logger.NewNoOp())

	stats := o.Run(context.Background(), crawl.RunOptions{Persist: false, Analyze: true})

	assert.Equal(t, 1, stats.SourcesCrawled)
	assert.Equal(t, 1, stats.RelevantArticles)
}

func TestRun_ExtractFailure(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)

	src := &fakeSource{name: "broken", extractErr: errors.New("malformed markup")}
	o := crawl.New(crawl.Config{}, []source.Source{src}, store, nil, logger.NewNoOp())

	stats := o.Run(context.Background(), crawl.DefaultRunOptions())

	assert.Equal(t, 0, stats.SourcesCrawled)
	assert.Equal(t, 1, stats.Errors)
}

func TestRun_AllSourcesFail(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)

	failing := errors.New("unreachable")
	sources := []source.Source{
		&fakeSource{name: "a", fetchErr: failing},
		&fakeSource{name: "b", fetchErr: failing},
	}

	o := crawl.New(crawl.Config{}, sources, store, nil, logger.NewNoOp(), crawl.WithClock(func() time.Time { return crawlTime }))
	stats := o.Run(context.Background(), crawl.DefaultRunOptions())

	assert.Equal(t, 0, stats.SourcesCrawled)
	assert.Equal(t, 0, stats.TotalArticles)
	assert.Equal(t, 0, stats.RelevantArticles)
	assert.Equal(t, 2, stats.Errors)
	assert.Equal(t, crawlTime, stats.StartedAt)
	assert.Equal(t, crawlTime, stats.FinishedAt)
}

func TestRun_CancelDuringDelay(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first := &fakeSource{name: "first", onFetch: cancel}
	second := &fakeSource{name: "second"}

	o := crawl.New(crawl.Config{Delay: time.Hour}, []source.Source{first, second}, nil, nil, logger.NewNoOp())

	done := make(chan domain.CrawlStats, 1)
	go func() { done <- o.Run(ctx, crawl.RunOptions{}) }()

	select {
	case stats := <-done:
		assert.Equal(t, 1, stats.SourcesCrawled)
		assert.Zero(t, second.fetched.Load())
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop after cancellation")
	}
}

func TestRun_CancelledBeforeStart(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := &fakeSource{name: "s"}
	o := crawl.New(crawl.Config{}, []source.Source{src}, nil, nil, logger.NewNoOp())

	stats := o.Run(ctx, crawl.DefaultRunOptions())

	assert.Zero(t, stats.SourcesCrawled)
	assert.Zero(t, stats.TotalArticles)
	assert.Zero(t, stats.Errors)
	assert.Zero(t, src.fetched.Load())
}

func TestRun_Serialised(t *testing.T) {
	t.Parallel()

	var active, peak atomic.Int32
	track := func() {
		n := active.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		active.Add(-1)
	}

	src := &fakeSource{name: "s", onFetch: track}
	o := crawl.New(crawl.Config{}, []source.Source{src}, nil, nil, logger.NewNoOp())

	done := make(chan struct{})
	for range 3 {
		go func() {
			o.Run(context.Background(), crawl.RunOptions{})
			done <- struct{}{}
		}()
	}
	for range 3 {
		<-done
	}

	assert.Equal(t, int32(1), peak.Load())
	assert.Equal(t, int32(3), src.fetched.Load())
}
