package source_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/techcrawler/internal/domain"
	"github.com/jonesrussell/north-cloud/techcrawler/internal/fetch"
	"github.com/jonesrussell/north-cloud/techcrawler/internal/source"
)

var fixedNow = time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

const rssFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Example</title>
  <item>
    <title>Nvidia ships new GPU</title>
    <link>https://Example.com/nvidia?utm_source=rss&amp;id=7#top</link>
    <description>&lt;p&gt;Nvidia &lt;b&gt;ships&lt;/b&gt; chips&lt;/p&gt;</description>
    <pubDate>Mon, 02 Mar 2026 08:00:00 GMT</pubDate>
  </item>
  <item>
    <title>GUID only entry</title>
    <guid>https://example.com/guid-only</guid>
    <description>plain summary</description>
  </item>
  <item>
    <title></title>
    <link>https://example.com/untitled</link>
  </item>
  <item>
    <title>No link at all</title>
    <guid isPermaLink="false">tag:example.com,2026:1</guid>
  </item>
</channel>
</rss>`

const emptyFeed = `<?xml version="1.0"?><rss version="2.0"><channel><title>Empty</title></channel></rss>`

func serve(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		_, _ = fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newSource(t *testing.T, kind domain.SourceKind, endpoint string, content source.ContentExtractor) source.Source {
	t.Helper()
	src, err := source.New(
		domain.SourceConfig{Name: "Example", Endpoint: endpoint, Kind: kind},
		source.Deps{
			Fetcher: fetch.NewClient(fetch.Config{RateLimit: -1}, nil),
			Content: content,
			Now:     func() time.Time { return fixedNow },
		},
	)
	require.NoError(t, err)
	return src
}

func fetchAndExtract(t *testing.T, src source.Source) []domain.Article {
	t.Helper()
	ctx := context.Background()
	payload, err := src.Fetch(ctx)
	require.NoError(t, err)
	articles, err := src.Extract(ctx, payload)
	require.NoError(t, err)
	return articles
}

type stubContent map[string]string

func (s stubContent) Extract(_ context.Context, pageURL string) (string, error) {
	if body, ok := s[pageURL]; ok {
		return body, nil
	}
	return "", errors.New("no content")
}

func TestNew_UnknownKind(t *testing.T) {
	t.Parallel()

	_, err := source.New(
		domain.SourceConfig{Name: "x", Endpoint: "https://x", Kind: "podcast"},
		source.Deps{Fetcher: fetch.NewClient(fetch.Config{}, nil)},
	)
	require.ErrorIs(t, err, source.ErrUnknownKind)
}

func TestNew_Variants(t *testing.T) {
	t.Parallel()

	feed := newSource(t, domain.SourceKindFeed, "https://x/feed", nil)
	page := newSource(t, domain.SourceKindPage, "https://x/", nil)

	assert.IsType(t, &source.FeedSource{}, feed)
	assert.IsType(t, &source.PageSource{}, page)
	assert.Equal(t, "Example", feed.Config().Name)
}

func TestFeedSource_Extract(t *testing.T) {
	t.Parallel()

	srv := serve(t, http.StatusOK, rssFeed)
	articles := fetchAndExtract(t, newSource(t, domain.SourceKindFeed, srv.URL, nil))

	require.Len(t, articles, 2)

	first := articles[0]
	assert.Equal(t, "Nvidia ships new GPU", first.Title)
	assert.Equal(t, "https://example.com/nvidia?id=7", first.URL)
	assert.Equal(t, "Nvidia ships chips", first.Summary)
	assert.Equal(t, first.Summary, first.Content)
	assert.Equal(t, "Example", first.Source)
	assert.Equal(t, time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC), first.PublishedAt)
	assert.Equal(t, fixedNow, first.CrawledAt)
	assert.True(t, first.Relevant)
	assert.False(t, first.Processed)

	second := articles[1]
	assert.Equal(t, "https://example.com/guid-only", second.URL)
	assert.Equal(t, "plain summary", second.Summary)
	assert.Equal(t, fixedNow, second.PublishedAt, "missing dates fall back to crawl time")
}

func TestFeedSource_EnrichesContent(t *testing.T) {
	t.Parallel()

	srv := serve(t, http.StatusOK, rssFeed)
	content := stubContent{"https://example.com/nvidia?id=7": "Full body.\n\nSecond paragraph."}
	articles := fetchAndExtract(t, newSource(t, domain.SourceKindFeed, srv.URL, content))

	require.Len(t, articles, 2)
	assert.Equal(t, "Full body.\n\nSecond paragraph.", articles[0].Content)
	assert.Equal(t, "plain summary", articles[1].Content, "failed enrichment keeps the summary")
}

func TestFeedSource_FetchFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		body   string
		kind   fetch.ErrorKind
	}{
		{name: "empty feed", status: http.StatusOK, body: emptyFeed, kind: fetch.KindEmptyFeed},
		{name: "not a feed", status: http.StatusOK, body: "this is not xml", kind: fetch.KindParse},
		{name: "server error", status: http.StatusInternalServerError, body: "oops", kind: fetch.KindHTTPStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := serve(t, tt.status, tt.body)
			src := newSource(t, domain.SourceKindFeed, srv.URL, nil)

			payload, err := src.Fetch(context.Background())
			require.Error(t, err)
			assert.Nil(t, payload)
			require.ErrorIs(t, err, fetch.ErrFetch)
			assert.Equal(t, tt.kind, fetch.KindOf(err))
		})
	}
}

func TestPageSource_Extract(t *testing.T) {
	t.Parallel()

	html := `<html><body>
		<article><h2>Quantum computing breakthrough</h2><a href="/story/1?fbclid=abc">read</a><p>Qubits at scale.</p></article>
		<article><p>No heading and no link here.</p></article>
		<article><a href="https://other.example/story/2">Edge computing grows</a><p>CDN edge.</p></article>
		<article><h3>Duplicate</h3><a href="/story/1">again</a></article>
	</body></html>`
	srv := serve(t, http.StatusOK, html)

	articles := fetchAndExtract(t, newSource(t, domain.SourceKindPage, srv.URL+"/news", nil))

	require.Len(t, articles, 2)
	assert.Equal(t, "Quantum computing breakthrough", articles[0].Title)
	assert.Equal(t, srv.URL+"/story/1", articles[0].URL)
	assert.Equal(t, "Qubits at scale.", articles[0].Summary)
	assert.Equal(t, fixedNow, articles[0].PublishedAt)

	assert.Equal(t, "Edge computing grows", articles[1].Title)
	assert.Equal(t, "https://other.example/story/2", articles[1].URL)
}

func TestPageSource_DivFallbackAndCap(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	b.WriteString(`<html><body><div class="sidebar"><a href="/ignored">Ignored</a></div>`)
	for i := range 25 {
		fmt.Fprintf(&b, `<div class="Post-ARTICLE-card"><h1>Story %d</h1><a href="/s/%d">more</a></div>`, i, i)
	}
	b.WriteString(`</body></html>`)
	srv := serve(t, http.StatusOK, b.String())

	articles := fetchAndExtract(t, newSource(t, domain.SourceKindPage, srv.URL, nil))

	require.Len(t, articles, 20)
	assert.Equal(t, "Story 0", articles[0].Title)
	assert.Equal(t, "Story 19", articles[19].Title)
	for _, a := range articles {
		assert.Empty(t, a.Summary)
		assert.Equal(t, "Example", a.Source)
	}
}

func TestPageSource_NoCandidates(t *testing.T) {
	t.Parallel()

	srv := serve(t, http.StatusOK, `<html><body><p>nothing to see</p></body></html>`)
	articles := fetchAndExtract(t, newSource(t, domain.SourceKindPage, srv.URL, nil))

	assert.Empty(t, articles)
}

func TestPageSource_FetchFailure(t *testing.T) {
	t.Parallel()

	srv := serve(t, http.StatusNotFound, "missing")
	_, err := newSource(t, domain.SourceKindPage, srv.URL, nil).Fetch(context.Background())

	require.ErrorIs(t, err, fetch.ErrFetch)
	assert.Equal(t, fetch.KindHTTPStatus, fetch.KindOf(err))
}
