package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver used by goose
)

// Dialect identifies the database engine behind a connection URL.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// Pool abstracts the pgx connection pool to make testing easier.
type Pool interface {
	Acquire(ctx context.Context) (*pgxpool.Conn, error)
	Close()
}

// Connect initialises a PostgreSQL connection pool using the provided database URL.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	return pool, nil
}

// OpenSQL opens a database/sql handle on PostgreSQL through the pgx stdlib driver.
func OpenSQL(databaseURL string) (*sql.DB, error) {
	sqlDB, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return sqlDB, nil
}

// ParseURL resolves the dialect of databaseURL. For SQLite it also returns the
// file path (or ":memory:") to open; for PostgreSQL the URL is returned unchanged.
func ParseURL(databaseURL string) (Dialect, string, error) {
	raw := strings.TrimSpace(databaseURL)
	scheme, rest, ok := strings.Cut(raw, ":")
	if !ok {
		return "", "", fmt.Errorf("database url %q has no scheme", databaseURL)
	}

	switch strings.ToLower(scheme) {
	case "postgres", "postgresql":
		return DialectPostgres, raw, nil
	case "sqlite", "sqlite3":
		path := strings.TrimPrefix(rest, "//")
		if path == "" {
			return "", "", fmt.Errorf("database url %q has no sqlite path", databaseURL)
		}
		return DialectSQLite, path, nil
	default:
		return "", "", fmt.Errorf("unsupported database scheme %q", scheme)
	}
}
