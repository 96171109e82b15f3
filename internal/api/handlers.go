package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/north-cloud/techcrawler/internal/crawl"
	"github.com/jonesrussell/north-cloud/techcrawler/internal/domain"
	"github.com/jonesrussell/north-cloud/techcrawler/internal/logger"
	"github.com/jonesrussell/north-cloud/techcrawler/internal/storage"
)

// Query limits of the public API.
const (
	defaultArticleLimit = 20
	maxArticleLimit     = 100
	defaultDaysBack     = 30
	defaultSearchLimit  = 50
	maxSearchLimit      = 50
	minQueryLength      = 2
)

// ArticleReader reads stored articles.
type ArticleReader interface {
	Query(ctx context.Context, opts storage.QueryOptions) ([]domain.Article, error)
	GetByID(ctx context.Context, id int64) (*domain.Article, error)
}

// QueryService is the read surface of the crawl orchestrator.
type QueryService interface {
	Search(ctx context.Context, keyword string, limit int) ([]domain.Article, error)
	Stats(ctx context.Context) (domain.StoreSummary, error)
}

// CrawlRunner triggers a crawl run.
type CrawlRunner interface {
	Run(ctx context.Context, opts crawl.RunOptions) domain.CrawlStats
}

// Handler serves the article API.
type Handler struct {
	articles ArticleReader
	queries  QueryService
	crawler  CrawlRunner
	logger   logger.Interface
}

// NewHandler creates a Handler. A nil crawler disables POST /api/crawl.
func NewHandler(articles ArticleReader, queries QueryService, crawler CrawlRunner, log logger.Interface) *Handler {
	return &Handler{
		articles: articles,
		queries:  queries,
		crawler:  crawler,
		logger:   log.WithComponent("api"),
	}
}

// RegisterRoutes mounts the API routes under /api.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	group := router.Group("/api")
	group.GET("/articles", h.ListArticles)
	group.GET("/articles/:id", h.GetArticle)
	group.GET("/search", h.Search)
	group.GET("/stats", h.Stats)
	if h.crawler != nil {
		group.POST("/crawl", h.TriggerCrawl)
	}
}

// ListArticles handles GET /api/articles?limit&days&source.
func (h *Handler) ListArticles(c *gin.Context) {
	opts := storage.QueryOptions{
		Limit:    clampInt(c.Query("limit"), defaultArticleLimit, maxArticleLimit),
		Offset:   max(queryInt(c.Query("offset"), 0), 0),
		DaysBack: queryInt(c.Query("days"), defaultDaysBack),
		Source:   strings.TrimSpace(c.Query("source")),
	}

	articles, err := h.articles.Query(c.Request.Context(), opts)
	if err != nil {
		h.internalError(c, "Failed to list articles", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"articles": articles,
		"count":    len(articles),
	})
}

// GetArticle handles GET /api/articles/:id.
func (h *Handler) GetArticle(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid article ID"})
		return
	}

	article, err := h.articles.GetByID(c.Request.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Article not found"})
		return
	}
	if err != nil {
		h.internalError(c, "Failed to get article", err)
		return
	}

	c.JSON(http.StatusOK, article)
}

// Search handles GET /api/search?q&limit.
func (h *Handler) Search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if len([]rune(query)) < minQueryLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query must be at least 2 characters"})
		return
	}

	limit := clampInt(c.Query("limit"), defaultSearchLimit, maxSearchLimit)
	articles, err := h.queries.Search(c.Request.Context(), query, limit)
	if err != nil {
		h.internalError(c, "Failed to search articles", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"query":    query,
		"articles": articles,
		"count":    len(articles),
	})
}

// Stats handles GET /api/stats.
func (h *Handler) Stats(c *gin.Context) {
	summary, err := h.queries.Stats(c.Request.Context())
	if err != nil {
		h.internalError(c, "Failed to load stats", err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// TriggerCrawl handles POST /api/crawl?persist&analyze. The run is not
// tied to the request context, so a disconnecting client does not
// cancel it.
func (h *Handler) TriggerCrawl(c *gin.Context) {
	opts := crawl.RunOptions{
		Persist: queryBool(c.Query("persist"), true),
		Analyze: queryBool(c.Query("analyze"), true),
	}

	stats := h.crawler.Run(context.WithoutCancel(c.Request.Context()), opts)
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) internalError(c *gin.Context, msg string, err error) {
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}

// queryInt parses an integer query parameter, returning def when absent
// or malformed.
func queryInt(raw string, def int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

// clampInt parses a positive limit and caps it at upper.
func clampInt(raw string, def, upper int) int {
	n := queryInt(raw, def)
	if n <= 0 {
		n = def
	}
	return min(n, upper)
}

func queryBool(raw string, def bool) bool {
	if raw == "" {
		return def
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return b
}
