package crawl

import (
	"context"
	"fmt"

	"github.com/jonesrussell/north-cloud/techcrawler/internal/domain"
	"github.com/jonesrussell/north-cloud/techcrawler/internal/logger"
	"github.com/jonesrussell/north-cloud/techcrawler/internal/storage"
)

// NewReader returns an Orchestrator without sources. Only its query
// methods are useful.
func NewReader(store Store, log logger.Interface) *Orchestrator {
	return New(Config{}, nil, store, nil, log)
}

// Search returns stored articles matching keyword, newest first.
func (o *Orchestrator) Search(ctx context.Context, keyword string, limit int) ([]domain.Article, error) {
	articles, err := o.store.Search(ctx, keyword, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search articles: %w", err)
	}
	return articles, nil
}

// Recent returns up to limit articles published within daysBack days.
func (o *Orchestrator) Recent(ctx context.Context, limit, daysBack int) ([]domain.Article, error) {
	articles, err := o.store.Query(ctx, storage.QueryOptions{Limit: limit, DaysBack: daysBack})
	if err != nil {
		return nil, fmt.Errorf("failed to list recent articles: %w", err)
	}
	return articles, nil
}

// Stats summarises the store.
func (o *Orchestrator) Stats(ctx context.Context) (domain.StoreSummary, error) {
	total, err := o.store.Count(ctx)
	if err != nil {
		return domain.StoreSummary{}, fmt.Errorf("failed to count articles: %w", err)
	}

	sources, err := o.store.ListSources(ctx)
	if err != nil {
		return domain.StoreSummary{}, fmt.Errorf("failed to list sources: %w", err)
	}

	lastCrawled, err := o.store.LastCrawled(ctx)
	if err != nil {
		return domain.StoreSummary{}, fmt.Errorf("failed to read last crawl time: %w", err)
	}

	return domain.StoreSummary{
		TotalArticles: total,
		NumSources:    len(sources),
		Sources:       sources,
		LastCrawled:   lastCrawled,
	}, nil
}
