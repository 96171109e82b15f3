// Package fetch performs the outbound HTTP GETs of the crawler: source
// endpoints and article pages. Every request carries the configured
// User-Agent, a bounded timeout and a per-host rate limit.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/jonesrussell/north-cloud/techcrawler/internal/urlnorm"
)

const (
	// DefaultTimeout bounds every request.
	DefaultTimeout = 10 * time.Second
	// DefaultUserAgent identifies the crawler.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	// DefaultMaxBodyBytes caps how much of a response body is read.
	DefaultMaxBodyBytes int64 = 10 << 20
	// DefaultRateLimit is the per-host request rate in requests per second.
	DefaultRateLimit = 2.0
	defaultBurst     = 1
)

// Config holds the HTTP client settings.
type Config struct {
	Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout"`
	UserAgent    string        `mapstructure:"user_agent" yaml:"user_agent"`
	RateLimit    float64       `mapstructure:"rate_limit" yaml:"rate_limit"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes" yaml:"max_body_bytes"`
}

// WithDefaults returns a copy with zero fields replaced by defaults.
// A negative RateLimit disables rate limiting.
func (c Config) WithDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.RateLimit == 0 {
		c.RateLimit = DefaultRateLimit
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
	return c
}

// Response is a successful fetch.
type Response struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        []byte
}

// Client is a rate-limited HTTP GET client.
type Client struct {
	httpClient *http.Client
	cfg        Config

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewClient creates a Client. A nil httpClient gets one with cfg.Timeout.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	cfg = cfg.WithDefaults()
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		httpClient: httpClient,
		cfg:        cfg,
		limiters:   make(map[string]*rate.Limiter),
	}
}

// Get fetches rawURL. Non-2xx responses, transport errors and timeouts
// are returned as *Error.
func (c *Client) Get(ctx context.Context, rawURL string) (*Response, error) {
	if err := c.wait(ctx, rawURL); err != nil {
		return nil, classifyNetworkError(err, rawURL)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, URL: rawURL, Cause: fmt.Errorf("new request: %w", err)}
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/rss+xml,application/atom+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyNetworkError(err, rawURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, c.cfg.MaxBodyBytes))
		return nil, classifyHTTPStatus(resp.StatusCode, rawURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.MaxBodyBytes))
	if err != nil {
		return nil, classifyNetworkError(fmt.Errorf("read body: %w", err), rawURL)
	}

	return &Response{
		URL:         resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

// wait blocks until the per-host limiter admits a request.
func (c *Client) wait(ctx context.Context, rawURL string) error {
	if c.cfg.RateLimit < 0 {
		return nil
	}

	host := urlnorm.Host(rawURL)

	c.mu.Lock()
	limiter, ok := c.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(c.cfg.RateLimit), defaultBurst)
		c.limiters[host] = limiter
	}
	c.mu.Unlock()

	return limiter.Wait(ctx)
}
