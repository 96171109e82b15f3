// Package publisher posts finished articles to an external content
// platform. Publishing is optional: the crawl pipeline never depends on
// its outcome.
package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jonesrussell/north-cloud/techcrawler/internal/domain"
	"github.com/jonesrussell/north-cloud/techcrawler/internal/logger"
	"github.com/jonesrussell/north-cloud/techcrawler/internal/retry"
)

const (
	// ExcerptLength is the maximum excerpt length in runes.
	ExcerptLength = 200
	// DefaultTimeout bounds one publish request.
	DefaultTimeout = 10 * time.Second

	articlesPath  = "/articles"
	maxErrorBody  = 512
	contentTypeJS = "application/json"
)

// ErrDisabled is returned when publishing is not configured.
var ErrDisabled = errors.New("publisher disabled")

// Config holds the publishing endpoint settings.
type Config struct {
	Enabled     bool          `mapstructure:"enabled" yaml:"enabled"`
	APIURL      string        `mapstructure:"api_url" yaml:"api_url"`
	APIKey      string        `mapstructure:"api_key" yaml:"api_key"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MaxAttempts int           `mapstructure:"max_attempts" yaml:"max_attempts"`
}

// Ready reports whether publishing is enabled and fully configured.
func (c Config) Ready() bool {
	return c.Enabled && strings.TrimSpace(c.APIURL) != "" && strings.TrimSpace(c.APIKey) != ""
}

// Payload is the JSON body posted for one article.
type Payload struct {
	Title       string   `json:"title"`
	Content     string   `json:"content"`
	Excerpt     string   `json:"excerpt"`
	Tags        []string `json:"tags"`
	SourceURL   string   `json:"source_url"`
	Source      string   `json:"source"`
	PublishedAt string   `json:"published_at"`
}

// NewPayload builds the publish payload for an article.
func NewPayload(a *domain.Article) Payload {
	tags := a.Tags
	if tags == nil {
		tags = []string{}
	}
	return Payload{
		Title:       a.Title,
		Content:     a.BodyOrSummary(),
		Excerpt:     a.Excerpt(ExcerptLength),
		Tags:        tags,
		SourceURL:   a.URL,
		Source:      a.Source,
		PublishedAt: a.PublishedAt.UTC().Format(time.RFC3339),
	}
}

// StatusError is a publish response other than 200 or 201.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("publish rejected: HTTP %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether the platform may accept a later attempt.
func (e *StatusError) Retryable() bool {
	return e.StatusCode >= http.StatusInternalServerError || e.StatusCode == http.StatusTooManyRequests
}

// Client publishes articles.
type Client struct {
	cfg        Config
	httpClient *http.Client
	retry      retry.Config
	logger     logger.Interface
	now        func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithRetry overrides the retry policy.
func WithRetry(cfg retry.Config) Option {
	return func(c *Client) {
		c.retry = cfg
	}
}

// WithClock overrides the time used in summary posts.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// New creates a Client. A nil httpClient gets one with cfg.Timeout.
func New(cfg Config, httpClient *http.Client, log logger.Interface, opts ...Option) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	cfg.APIURL = strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/")
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	retryCfg := retry.DefaultConfig()
	if cfg.MaxAttempts > 0 {
		retryCfg.MaxAttempts = cfg.MaxAttempts
	}

	c := &Client{
		cfg:        cfg,
		httpClient: httpClient,
		retry:      retryCfg,
		logger:     log.WithComponent("publisher"),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Enabled reports whether the client will publish.
func (c *Client) Enabled() bool {
	return c.cfg.Ready()
}

// Publish posts one article.
func (c *Client) Publish(ctx context.Context, a *domain.Article) error {
	if !c.Enabled() {
		return ErrDisabled
	}
	if err := c.post(ctx, NewPayload(a)); err != nil {
		return fmt.Errorf("publish %q: %w", a.URL, err)
	}
	c.logger.Info("Published article", "title", a.Title, "url", a.URL)
	return nil
}

// PublishBatch publishes each article and returns how many succeeded.
// Individual failures are logged and skipped.
func (c *Client) PublishBatch(ctx context.Context, articles []domain.Article) (int, error) {
	if !c.Enabled() {
		return 0, ErrDisabled
	}

	published := 0
	for i := range articles {
		if err := ctx.Err(); err != nil {
			return published, err
		}
		if err := c.Publish(ctx, &articles[i]); err != nil {
			c.logger.Warn("Failed to publish article", "url", articles[i].URL, "error", err)
			continue
		}
		published++
	}

	c.logger.Info("Publish batch finished", "published", published, "total", len(articles))
	return published, nil
}

// SummaryPost publishes a markdown digest of up to MaxSummaryArticles articles.
func (c *Client) SummaryPost(ctx context.Context, title string, articles []domain.Article) error {
	if !c.Enabled() {
		return ErrDisabled
	}

	now := c.now().UTC()
	body := RenderSummary(title, articles, now)
	payload := Payload{
		Title:       title,
		Content:     body,
		Excerpt:     fmt.Sprintf("Summary of %d tech investment articles", min(len(articles), MaxSummaryArticles)),
		Tags:        append([]string(nil), summaryTags...),
		Source:      "techcrawler",
		PublishedAt: now.Format(time.RFC3339),
	}

	if err := c.post(ctx, payload); err != nil {
		return fmt.Errorf("publish summary: %w", err)
	}
	c.logger.Info("Published summary post", "title", title, "articles", len(articles))
	return nil
}

func (c *Client) post(ctx context.Context, payload Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	return retry.Retry(ctx, c.retry, func() error {
		return c.send(ctx, body)
	})
}

func (c *Client) send(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL+articlesPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", contentTypeJS)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
}
