package common

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/north-cloud/techcrawler/internal/analyzer"
	"github.com/jonesrussell/north-cloud/techcrawler/internal/config"
	"github.com/jonesrussell/north-cloud/techcrawler/internal/content"
	"github.com/jonesrussell/north-cloud/techcrawler/internal/crawl"
	"github.com/jonesrussell/north-cloud/techcrawler/internal/fetch"
	"github.com/jonesrussell/north-cloud/techcrawler/internal/logger"
	"github.com/jonesrussell/north-cloud/techcrawler/internal/metrics"
	"github.com/jonesrussell/north-cloud/techcrawler/internal/publisher"
	"github.com/jonesrussell/north-cloud/techcrawler/internal/source"
	"github.com/jonesrussell/north-cloud/techcrawler/internal/storage"
)

const redisPingTimeout = 3 * time.Second

// App is the fully wired pipeline shared by the commands.
type App struct {
	Config       *config.Config
	Logger       logger.Interface
	Store        *storage.Store
	Orchestrator *crawl.Orchestrator
	Publisher    *publisher.Client
	Metrics      *metrics.Metrics
	Registry     *prometheus.Registry

	redis *redis.Client
}

// OpenStore opens the article store named in the configuration.
func OpenStore(ctx context.Context, deps CommandDeps) (*storage.Store, error) {
	store, err := storage.Open(ctx, deps.Config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open article store: %w", err)
	}
	return store, nil
}

// NewApp wires fetcher, sources, analyzer, store and orchestrator.
func NewApp(ctx context.Context, deps CommandDeps) (*App, error) {
	if err := deps.Validate(); err != nil {
		return nil, err
	}
	cfg := deps.Config
	log := deps.Logger

	store, err := OpenStore(ctx, deps)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:   cfg,
		Logger:   log,
		Store:    store,
		Registry: prometheus.NewRegistry(),
	}
	app.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	app.Metrics = metrics.New(app.Registry)

	fetcher := fetch.NewClient(cfg.HTTP, nil)

	var extractor source.ContentExtractor
	if cfg.Crawl.FetchContent {
		extractor = content.NewExtractor(fetcher, app.contentCache(ctx), log)
	}

	sources, err := source.NewAll(cfg.Sources, source.Deps{
		Fetcher: fetcher,
		Content: extractor,
		Logger:  log,
	})
	if err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("failed to build sources: %w", err)
	}

	app.Orchestrator = crawl.New(
		cfg.Crawl,
		sources,
		store,
		analyzer.New(cfg.WatchList),
		log,
		crawl.WithMetrics(app.Metrics),
	)
	app.Publisher = publisher.New(cfg.Publisher, nil, log)

	log.Debug("Pipeline wired",
		"sources", len(sources),
		"fetch_content", cfg.Crawl.FetchContent,
		"redis", app.redis != nil,
		"publisher", app.Publisher.Enabled(),
	)

	return app, nil
}

// contentCache connects to Redis when configured. An unreachable
// server disables caching instead of failing startup.
func (a *App) contentCache(ctx context.Context) content.Cache {
	rc := a.Config.Redis
	if !rc.Enabled() {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     rc.Address,
		Password: rc.Password,
		DB:       rc.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		a.Logger.Warn("Redis unavailable, content cache disabled",
			"address", rc.Address,
			"error", err,
		)
		_ = client.Close()
		return nil
	}

	a.redis = client
	return content.NewRedisCache(client, rc.ContentTTL)
}

// Close releases the store and the Redis connection.
func (a *App) Close() error {
	var errs []error
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	return errors.Join(errs...)
}
