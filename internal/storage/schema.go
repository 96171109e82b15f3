package storage

import (
	"context"
	"fmt"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS articles (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		title           TEXT NOT NULL,
		url             TEXT NOT NULL UNIQUE,
		summary         TEXT NOT NULL DEFAULT '',
		content         TEXT NOT NULL DEFAULT '',
		source          TEXT NOT NULL,
		published_at    TIMESTAMP NOT NULL,
		crawled_at      TIMESTAMP NOT NULL,
		updated_at      TIMESTAMP NOT NULL,
		relevant        BOOLEAN NOT NULL DEFAULT 1,
		processed       BOOLEAN NOT NULL DEFAULT 0,
		relevance_score REAL NOT NULL DEFAULT 0,
		tags            TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_articles_published_at ON articles(published_at)`,
	`CREATE INDEX IF NOT EXISTS idx_articles_source ON articles(source)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS articles (
		id              BIGSERIAL PRIMARY KEY,
		title           TEXT NOT NULL,
		url             TEXT NOT NULL UNIQUE,
		summary         TEXT NOT NULL DEFAULT '',
		content         TEXT NOT NULL DEFAULT '',
		source          TEXT NOT NULL,
		published_at    TIMESTAMPTZ NOT NULL,
		crawled_at      TIMESTAMPTZ NOT NULL,
		updated_at      TIMESTAMPTZ NOT NULL,
		relevant        BOOLEAN NOT NULL DEFAULT TRUE,
		processed       BOOLEAN NOT NULL DEFAULT FALSE,
		relevance_score DOUBLE PRECISION NOT NULL DEFAULT 0,
		tags            TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_articles_published_at ON articles(published_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_articles_source ON articles(source)`,
}

// Migrate creates the articles table and its indexes if missing.
func (s *Store) Migrate(ctx context.Context) error {
	statements := sqliteSchema
	if s.db.DriverName() == driverPostgres {
		statements = postgresSchema
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return wrap("migrate", fmt.Errorf("failed to apply schema: %w", err))
		}
	}

	return nil
}
