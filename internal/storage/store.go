package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/north-cloud/techcrawler/internal/domain"
)

const (
	// DefaultQueryLimit applies when a query asks for no limit.
	DefaultQueryLimit = 50

	articleColumns = `id, title, url, summary, content, source, published_at, crawled_at,
		updated_at, relevant, processed, relevance_score, tags`

	likeEscape = `\`
)

// articleRow is the persisted shape of an article.
type articleRow struct {
	domain.Article
	TagsRaw string `db:"tags"`
}

func (r articleRow) toDomain() domain.Article {
	a := r.Article
	a.Tags = domain.ParseTags(r.TagsRaw)
	a.PublishedAt = a.PublishedAt.UTC()
	a.CrawledAt = a.CrawledAt.UTC()
	a.UpdatedAt = a.UpdatedAt.UTC()
	return a
}

// QueryOptions filters Query.
type QueryOptions struct {
	Limit  int
	Offset int
	// Source restricts results to one source name when non-empty.
	Source string
	// DaysBack keeps articles published within that many days when positive.
	DaysBack int
}

// Store is the URL-keyed article store.
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New wraps an open database handle.
func New(db *sqlx.DB, opts ...Option) *Store {
	s := &Store{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open connects to the database in cfg and applies the schema.
func Open(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	db, err := Connect(ctx, cfg)
	if err != nil {
		return nil, wrap("open", err)
	}

	s := New(db, opts...)
	if migrateErr := s.Migrate(ctx); migrateErr != nil {
		_ = db.Close()
		return nil, migrateErr
	}

	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return wrap("ping", s.db.PingContext(ctx))
}

// Upsert inserts a new article or updates the existing row with the same
// URL, and returns the stored row.
func (s *Store) Upsert(ctx context.Context, article *domain.Article) (*domain.Article, error) {
	var stored domain.Article

	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := s.upsertTx(ctx, tx, article); err != nil {
			return err
		}
		row, err := s.getTx(ctx, tx, "url = ?", article.URL)
		if err != nil {
			return err
		}
		stored = row
		return nil
	})
	if err != nil {
		return nil, wrap("upsert", err)
	}

	return &stored, nil
}

// UpsertBatch upserts every article in one transaction and returns how
// many rows were newly inserted. On error nothing is written.
func (s *Store) UpsertBatch(ctx context.Context, articles []domain.Article) (int, error) {
	if len(articles) == 0 {
		return 0, nil
	}

	inserted := 0
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		for i := range articles {
			isNew, err := s.upsertTx(ctx, tx, &articles[i])
			if err != nil {
				return fmt.Errorf("article %q: %w", articles[i].URL, err)
			}
			if isNew {
				inserted++
			}
		}
		return nil
	})
	if err != nil {
		return 0, wrap("upsert batch", err)
	}

	return inserted, nil
}

// upsertTx writes one article and reports whether a new row was created.
// Existing rows keep title, source, published_at and crawled_at.
func (s *Store) upsertTx(ctx context.Context, tx *sqlx.Tx, a *domain.Article) (bool, error) {
	if strings.TrimSpace(a.Title) == "" || strings.TrimSpace(a.URL) == "" {
		return false, ErrInvalidArticle
	}

	now := s.now().UTC().Truncate(time.Microsecond)
	crawledAt := normalizeTime(a.CrawledAt, now)
	publishedAt := normalizeTime(a.PublishedAt, crawledAt)
	content := a.Content
	if content == "" {
		content = a.Summary
	}
	tags := a.TagsString()

	insert := tx.Rebind(`INSERT INTO articles (title, url, summary, content, source, published_at,
		crawled_at, updated_at, relevant, processed, relevance_score, tags)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (url) DO NOTHING
		RETURNING id`)

	var id int64
	err := tx.QueryRowxContext(ctx, insert,
		a.Title, a.URL, a.Summary, content, a.Source, publishedAt,
		crawledAt, now, a.Relevant, a.Processed, a.RelevanceScore, tags,
	).Scan(&id)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("failed to insert article: %w", err)
	}

	set := []string{"summary = ?", "content = ?", "updated_at = CASE WHEN updated_at < ? THEN ? ELSE updated_at END"}
	args := []any{a.Summary, content, now, now}
	if tags != "" {
		set = append(set, "tags = ?")
		args = append(args, tags)
	}
	if a.Processed {
		set = append(set, "relevant = ?", "processed = ?", "relevance_score = ?")
		args = append(args, a.Relevant, a.Processed, a.RelevanceScore)
	}
	args = append(args, a.URL)

	update := tx.Rebind(`UPDATE articles SET ` + strings.Join(set, ", ") + ` WHERE url = ?`)
	if _, updateErr := tx.ExecContext(ctx, update, args...); updateErr != nil {
		return false, fmt.Errorf("failed to update article: %w", updateErr)
	}

	return false, nil
}

// Query lists articles newest first.
func (s *Store) Query(ctx context.Context, opts QueryOptions) ([]domain.Article, error) {
	var (
		where []string
		args  []any
	)

	if opts.Source != "" {
		where = append(where, "source = ?")
		args = append(args, opts.Source)
	}
	if opts.DaysBack > 0 {
		cutoff := s.now().UTC().AddDate(0, 0, -opts.DaysBack)
		where = append(where, "published_at >= ?")
		args = append(args, cutoff)
	}

	query := `SELECT ` + articleColumns + ` FROM articles`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY published_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, limitOrDefault(opts.Limit), max(opts.Offset, 0))

	articles, err := s.selectArticles(ctx, query, args...)
	if err != nil {
		return nil, wrap("query", err)
	}
	return articles, nil
}

// Search finds articles whose title, summary or content contains keyword,
// ignoring case, newest first.
func (s *Store) Search(ctx context.Context, keyword string, limit int) ([]domain.Article, error) {
	pattern := "%" + escapeLike(keyword) + "%"

	query := `SELECT ` + articleColumns + ` FROM articles
		WHERE LOWER(title) LIKE LOWER(?) ESCAPE '` + likeEscape + `'
		   OR LOWER(summary) LIKE LOWER(?) ESCAPE '` + likeEscape + `'
		   OR LOWER(content) LIKE LOWER(?) ESCAPE '` + likeEscape + `'
		ORDER BY published_at DESC, id DESC LIMIT ?`

	articles, err := s.selectArticles(ctx, query, pattern, pattern, pattern, limitOrDefault(limit))
	if err != nil {
		return nil, wrap("search", err)
	}
	return articles, nil
}

// Count returns the number of stored articles.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM articles`); err != nil {
		return 0, wrap("count", fmt.Errorf("failed to count articles: %w", err))
	}
	return n, nil
}

// ListSources returns the distinct source names, sorted.
func (s *Store) ListSources(ctx context.Context) ([]string, error) {
	sources := []string{}
	if err := s.db.SelectContext(ctx, &sources, `SELECT DISTINCT source FROM articles ORDER BY source`); err != nil {
		return nil, wrap("list sources", fmt.Errorf("failed to list sources: %w", err))
	}
	return sources, nil
}

// GetByID returns the article with the given id or ErrNotFound.
func (s *Store) GetByID(ctx context.Context, id int64) (*domain.Article, error) {
	var row articleRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(`SELECT `+articleColumns+` FROM articles WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrap("get", fmt.Errorf("failed to get article %d: %w", id, err))
	}

	a := row.toDomain()
	return &a, nil
}

// LastCrawled returns the most recent crawl time, or nil for an empty store.
func (s *Store) LastCrawled(ctx context.Context) (*time.Time, error) {
	var ts time.Time
	err := s.db.GetContext(ctx, &ts, `SELECT crawled_at FROM articles ORDER BY crawled_at DESC LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap("last crawled", fmt.Errorf("failed to read last crawl time: %w", err))
	}

	ts = ts.UTC()
	return &ts, nil
}

func (s *Store) selectArticles(ctx context.Context, query string, args ...any) ([]domain.Article, error) {
	var rows []articleRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to select articles: %w", err)
	}

	articles := make([]domain.Article, 0, len(rows))
	for _, r := range rows {
		articles = append(articles, r.toDomain())
	}
	return articles, nil
}

func (s *Store) getTx(ctx context.Context, tx *sqlx.Tx, where string, args ...any) (domain.Article, error) {
	var row articleRow
	query := tx.Rebind(`SELECT ` + articleColumns + ` FROM articles WHERE ` + where)
	if err := tx.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Article{}, ErrNotFound
		}
		return domain.Article{}, fmt.Errorf("failed to read article: %w", err)
	}
	return row.toDomain(), nil
}

// withTx runs fn in a transaction, committing on success and rolling
// back on error or panic.
func (s *Store) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
			}
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func normalizeTime(t, fallback time.Time) time.Time {
	if t.IsZero() {
		return fallback
	}
	return t.UTC().Truncate(time.Microsecond)
}

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return DefaultQueryLimit
	}
	return limit
}

func escapeLike(s string) string {
	r := strings.NewReplacer(likeEscape, likeEscape+likeEscape, "%", likeEscape+"%", "_", likeEscape+"_")
	return r.Replace(s)
}
