// Package sqlite implements the repositories on an embedded SQLite database for
// local development and tests.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sqlitedrv "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/bestflix/backend/internal/db"
	"github.com/bestflix/backend/internal/repositories"
)

var (
	_ repositories.UserRepository       = (*UserRepository)(nil)
	_ repositories.MovieRepository      = (*MovieRepository)(nil)
	_ repositories.ResetTokenRepository = (*ResetTokenStore)(nil)
)

// Store owns the SQLite handle shared by the repositories.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path, applies pragmas and runs
// the embedded migrations. Use ":memory:" for a throwaway database.
func Open(ctx context.Context, path string) (*Store, error) {
	sqlDB, err := OpenDB(ctx, path)
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(ctx, sqlDB, db.DialectSQLite, "up"); err != nil {
		sqlDB.Close()
		return nil, err
	}

	return &Store{db: sqlDB}, nil
}

// OpenDB opens the database at path with the connection settings every caller
// needs, without touching the schema.
func OpenDB(ctx context.Context, path string) (*sql.DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite allows a single writer; one connection also keeps ":memory:" databases alive.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA foreign_keys = ON;",
		"PRAGMA busy_timeout = 5000;",
	}
	for _, pragma := range pragmas {
		if _, err := sqlDB.ExecContext(ctx, pragma); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("set pragma %q: %w", pragma, err)
		}
	}
	return sqlDB, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Users returns the user repository.
func (s *Store) Users() *UserRepository {
	return &UserRepository{db: s.db}
}

// Movies returns the movie repository.
func (s *Store) Movies() *MovieRepository {
	return &MovieRepository{db: s.db}
}

// ResetTokens returns the reset token repository.
func (s *Store) ResetTokens() *ResetTokenStore {
	return &ResetTokenStore{db: s.db}
}

// translateError maps constraint violations onto the repository sentinels.
func translateError(err error) error {
	var sqlErr *sqlitedrv.Error
	if !errors.As(err, &sqlErr) {
		return nil
	}
	switch sqlErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return repositories.ErrConflict
	case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
		return repositories.ErrNotFound
	case sqlite3.SQLITE_CONSTRAINT:
		// Without extended result codes only the message tells the constraints apart.
		msg := sqlErr.Error()
		switch {
		case strings.Contains(msg, "UNIQUE constraint failed"):
			return repositories.ErrConflict
		case strings.Contains(msg, "FOREIGN KEY constraint failed"):
			return repositories.ErrNotFound
		}
	}
	return nil
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
