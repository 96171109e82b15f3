// Package storage persists articles keyed by canonical URL. It runs on
// SQLite for local use and on PostgreSQL in production.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/mattn/go-sqlite3"
)

const (
	driverPostgres = "postgres"
	// driverSQLite is go-sqlite3 with a Unicode-aware lower().
	driverSQLite = "sqlite3_techcrawler"

	// DefaultMaxOpenConns is the default maximum number of open connections.
	DefaultMaxOpenConns = 10
	// DefaultMaxIdleConns is the default maximum number of idle connections.
	DefaultMaxIdleConns = 5
	// DefaultConnMaxLifetime is the default maximum connection lifetime.
	DefaultConnMaxLifetime = 5 * time.Minute
	// DefaultPingTimeout bounds the connectivity check on open.
	DefaultPingTimeout = 5 * time.Second

	sqliteBusyTimeoutMS = 5000
)

func init() {
	sql.Register(driverSQLite, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			// Overrides the built-in lower(), which folds ASCII only.
			return conn.RegisterFunc("lower", unicodeLower, true)
		},
	})
	sqlx.BindDriver(driverSQLite, sqlx.QUESTION)
}

func unicodeLower(v any) any {
	switch s := v.(type) {
	case string:
		return strings.ToLower(s)
	case []byte:
		if s == nil {
			return nil
		}
		return strings.ToLower(string(s))
	default:
		return v
	}
}

// Config holds database settings.
type Config struct {
	// URL is sqlite://<path>, sqlite://:memory: or postgres://...
	URL             string        `mapstructure:"url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// parseURL maps a database URL onto a driver name and DSN.
func parseURL(rawURL string) (driver, dsn string, err error) {
	rawURL = strings.TrimSpace(rawURL)

	switch {
	case strings.HasPrefix(rawURL, "postgres://"), strings.HasPrefix(rawURL, "postgresql://"):
		return driverPostgres, rawURL, nil
	case strings.HasPrefix(rawURL, "sqlite://"):
		path := strings.TrimPrefix(rawURL, "sqlite://")
		if path == "" {
			return "", "", fmt.Errorf("%w: %q has no path", ErrUnsupportedDatabase, rawURL)
		}
		// sqlite:///abs/path.db keeps its leading slash.
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		return driverSQLite, fmt.Sprintf("%s%s_busy_timeout=%d&_foreign_keys=on", path, sep, sqliteBusyTimeoutMS), nil
	default:
		return "", "", fmt.Errorf("%w: %q", ErrUnsupportedDatabase, rawURL)
	}
}

// Connect opens and pings the database described by cfg.
func Connect(ctx context.Context, cfg Config) (*sqlx.DB, error) {
	driver, dsn, err := parseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	configurePool(db, driver, cfg)

	pingCtx, cancel := context.WithTimeout(ctx, DefaultPingTimeout)
	defer cancel()

	if pingErr := db.PingContext(pingCtx); pingErr != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", pingErr)
	}

	return db, nil
}

func configurePool(db *sqlx.DB, driver string, cfg Config) {
	if driver == driverSQLite {
		// One connection serialises writers and keeps :memory: databases alive.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		return
	}

	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = DefaultMaxOpenConns
	}
	maxIdle := cfg.MaxIdleConns
	if maxIdle <= 0 {
		maxIdle = DefaultMaxIdleConns
	}
	lifetime := cfg.ConnMaxLifetime
	if lifetime <= 0 {
		lifetime = DefaultConnMaxLifetime
	}

	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(lifetime)
}
