package fetch_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/techcrawler/internal/fetch"
)

func TestClient_Get_Success(t *testing.T) {
	t.Parallel()

	uaCh := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uaCh <- r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>ok</html>"))
	}))
	t.Cleanup(srv.Close)

	client := fetch.NewClient(fetch.Config{UserAgent: "TestAgent/1.0", RateLimit: -1}, nil)

	resp, err := client.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "<html>ok</html>", string(resp.Body))
	assert.Equal(t, "text/html", resp.ContentType)
	assert.Equal(t, "TestAgent/1.0", <-uaCh)
}

func TestClient_Get_DefaultUserAgent(t *testing.T) {
	t.Parallel()

	uaCh := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		uaCh <- r.Header.Get("User-Agent")
	}))
	t.Cleanup(srv.Close)

	_, err := fetch.NewClient(fetch.Config{}, nil).Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, fetch.DefaultUserAgent, <-uaCh)
}

func TestClient_Get_NonSuccessStatus(t *testing.T) {
	t.Parallel()

	statuses := []int{http.StatusNotFound, http.StatusForbidden, http.StatusInternalServerError, http.StatusMovedPermanently}

	for _, status := range statuses {
		t.Run(http.StatusText(status), func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(status)
			}))
			t.Cleanup(srv.Close)

			client := fetch.NewClient(fetch.Config{RateLimit: -1}, &http.Client{
				CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
			})

			_, err := client.Get(context.Background(), srv.URL)
			require.Error(t, err)
			require.ErrorIs(t, err, fetch.ErrFetch)

			var fe *fetch.Error
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, fetch.KindHTTPStatus, fe.Kind)
			assert.Equal(t, status, fe.StatusCode)
		})
	}
}

func TestClient_Get_Timeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	client := fetch.NewClient(fetch.Config{Timeout: 50 * time.Millisecond, RateLimit: -1}, nil)

	_, err := client.Get(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Equal(t, fetch.KindTimeout, fetch.KindOf(err))
}

func TestClient_Get_NetworkError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := fetch.NewClient(fetch.Config{RateLimit: -1}, nil).Get(context.Background(), url)
	require.ErrorIs(t, err, fetch.ErrFetch)
	assert.Equal(t, fetch.KindNetwork, fetch.KindOf(err))
}

func TestClient_Get_BodyCapped(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("0123456789"))
	}))
	t.Cleanup(srv.Close)

	client := fetch.NewClient(fetch.Config{MaxBodyBytes: 4, RateLimit: -1}, nil)
	resp, err := client.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "0123", string(resp.Body))
}

func TestClient_Get_CancelledContext(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := fetch.NewClient(fetch.Config{}, nil).Get(ctx, srv.URL)
	require.ErrorIs(t, err, fetch.ErrFetch)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestKindOf_NonFetchError(t *testing.T) {
	t.Parallel()

	assert.Empty(t, fetch.KindOf(errors.New("other")))
	assert.Equal(t, fetch.KindEmptyFeed, fetch.KindOf(fetch.NewEmptyFeedError("https://x")))
}
