package storage_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/techcrawler/internal/domain"
	"github.com/jonesrussell/north-cloud/techcrawler/internal/storage"
)

var articleColumns = []string{
	"id", "title", "url", "summary", "content", "source", "published_at",
	"crawled_at", "updated_at", "relevant", "processed", "relevance_score", "tags",
}

func newMockStore(t *testing.T) (*storage.Store, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	db := sqlx.NewDb(mockDB, "postgres")
	return storage.New(db), mock
}

func expectationsMet(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet sqlmock expectations: %v", err)
	}
}

func TestStore_Postgres_UpsertInsertsNewRow(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	now := time.Now().UTC()
	a := domain.NewArticle("Wired", "Title", "https://x/1", "sum", now, now)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO articles .+ ON CONFLICT \(url\) DO NOTHING RETURNING id`).
		WithArgs("Title", "https://x/1", "sum", "sum", "Wired",
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), true, false, 0.0, "").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectQuery(`SELECT .+ FROM articles WHERE url = \$1`).
		WithArgs("https://x/1").
		WillReturnRows(sqlmock.NewRows(articleColumns).
			AddRow(7, "Title", "https://x/1", "sum", "sum", "Wired", now, now, now, true, false, 0.0, ""))
	mock.ExpectCommit()

	stored, err := store.Upsert(context.Background(), &a)
	require.NoError(t, err)
	assert.EqualValues(t, 7, stored.ID)
	assert.Empty(t, stored.Tags)

	expectationsMet(t, mock)
}

func TestStore_Postgres_UpsertUpdatesOnConflict(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	now := time.Now().UTC()
	a := domain.NewArticle("Wired", "Title", "https://x/1", "new sum", now, now)
	a.Tags = []string{"META (Meta)"}

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO articles`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec(`UPDATE articles SET summary = \$1, content = \$2, updated_at = CASE .+ tags = \$5 WHERE url = \$6`).
		WithArgs("new sum", "new sum", sqlmock.AnyArg(), sqlmock.AnyArg(), "META (Meta)", "https://x/1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT .+ FROM articles WHERE url = \$1`).
		WithArgs("https://x/1").
		WillReturnRows(sqlmock.NewRows(articleColumns).
			AddRow(3, "Title", "https://x/1", "new sum", "new sum", "Wired", now, now, now, true, false, 0.0, "META (Meta)"))
	mock.ExpectCommit()

	stored, err := store.Upsert(context.Background(), &a)
	require.NoError(t, err)
	assert.Equal(t, []string{"META (Meta)"}, stored.Tags)

	expectationsMet(t, mock)
}

func TestStore_Postgres_UpsertBatchRollsBack(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	now := time.Now().UTC()
	batch := []domain.Article{
		domain.NewArticle("Wired", "One", "https://x/1", "", now, now),
		domain.NewArticle("Wired", "Two", "https://x/2", "", now, now),
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO articles`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectQuery(`INSERT INTO articles`).
		WillReturnError(errors.New("connection reset by peer"))
	mock.ExpectRollback()

	n, err := store.UpsertBatch(context.Background(), batch)
	require.ErrorIs(t, err, storage.ErrStorage)
	assert.Contains(t, err.Error(), "connection reset by peer")
	assert.Zero(t, n)

	expectationsMet(t, mock)
}

func TestStore_Postgres_CommitFailure(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO articles`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit().WillReturnError(errors.New("serialization failure"))

	n, err := store.UpsertBatch(context.Background(), []domain.Article{
		domain.NewArticle("Wired", "One", "https://x/1", "", now, now),
	})
	require.ErrorIs(t, err, storage.ErrStorage)
	assert.Zero(t, n)

	expectationsMet(t, mock)
}

func TestStore_Postgres_BeginFailure(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

	_, err := store.UpsertBatch(context.Background(), []domain.Article{
		domain.NewArticle("Wired", "One", "https://x/1", "", now, now),
	})
	require.ErrorIs(t, err, storage.ErrStorage)

	expectationsMet(t, mock)
}

func TestStore_Postgres_QueryFilters(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT .+ FROM articles WHERE source = \$1 AND published_at >= \$2 ORDER BY published_at DESC, id DESC LIMIT \$3 OFFSET \$4`).
		WithArgs("Wired", sqlmock.AnyArg(), 20, 5).
		WillReturnRows(sqlmock.NewRows(articleColumns))

	articles, err := store.Query(context.Background(), storage.QueryOptions{
		Limit: 20, Offset: 5, Source: "Wired", DaysBack: 7,
	})
	require.NoError(t, err)
	assert.Empty(t, articles)

	expectationsMet(t, mock)
}

func TestStore_Postgres_SearchUsesLowerLike(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)

	mock.ExpectQuery(`WHERE LOWER\(title\) LIKE LOWER\(\$1\) .+ OR LOWER\(summary\) LIKE LOWER\(\$2\) .+ OR LOWER\(content\) LIKE LOWER\(\$3\) .+ LIMIT \$4`).
		WithArgs("%NVIDIA%", "%NVIDIA%", "%NVIDIA%", storage.DefaultQueryLimit).
		WillReturnRows(sqlmock.NewRows(articleColumns))

	_, err := store.Search(context.Background(), "NVIDIA", 0)
	require.NoError(t, err)

	expectationsMet(t, mock)
}

func TestStore_Postgres_CountError(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM articles`).
		WillReturnError(errors.New("connection refused"))

	_, err := store.Count(context.Background())
	require.ErrorIs(t, err, storage.ErrStorage)

	expectationsMet(t, mock)
}
