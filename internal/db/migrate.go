package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pressly/goose/v3"

	"github.com/bestflix/backend/internal/logging"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationFS embed.FS

const (
	migrationMaxRetries  = 3
	migrationBaseBackoff = 100 * time.Millisecond
	migrationMaxBackoff  = 3 * time.Second
)

var retryablePgErrorCodes = map[string]struct{}{
	"40001": {}, // serialization_failure
	"40P01": {}, // deadlock_detected
	"55P03": {}, // lock_not_available
}

// goose keeps its base FS and dialect in package globals.
var gooseMu sync.Mutex

// Migrations returns the embedded migration files for dialect.
func Migrations(dialect Dialect) (fs.FS, error) {
	switch dialect {
	case DialectPostgres, DialectSQLite:
		return fs.Sub(migrationFS, "migrations/"+string(dialect))
	default:
		return nil, fmt.Errorf("no migrations for dialect %q", dialect)
	}
}

// Migrate runs command ("up", "status", "down" or "version") against sqlDB.
// "up" is retried on transient serialization and lock errors.
func Migrate(ctx context.Context, sqlDB *sql.DB, dialect Dialect, command string) error {
	fsys, err := Migrations(dialect)
	if err != nil {
		return err
	}

	gooseDialect := "postgres"
	if dialect == DialectSQLite {
		gooseDialect = "sqlite3"
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(fsys)
	defer goose.SetBaseFS(nil)
	goose.SetLogger(gooseLogger{logger: logging.FromContext(ctx).With("component", "migrate", "dialect", string(dialect))})
	defer goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(gooseDialect); err != nil {
		return fmt.Errorf("set migration dialect: %w", err)
	}

	switch command {
	case "up", "":
		return upWithRetry(ctx, sqlDB)
	case "status":
		return goose.StatusContext(ctx, sqlDB, ".")
	case "down":
		return goose.DownContext(ctx, sqlDB, ".")
	case "version":
		return goose.VersionContext(ctx, sqlDB, ".")
	default:
		return fmt.Errorf("unknown migrate command %q", command)
	}
}

// gooseLogger forwards goose output to slog.
type gooseLogger struct {
	logger *slog.Logger
}

func (l gooseLogger) Printf(format string, v ...interface{}) {
	l.logger.Info(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l gooseLogger) Fatalf(format string, v ...interface{}) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, v...)))
	os.Exit(1)
}

func upWithRetry(ctx context.Context, sqlDB *sql.DB) error {
	var attempt int
	for attempt = 0; attempt < migrationMaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * migrationBaseBackoff
			if backoff > migrationMaxBackoff {
				backoff = migrationMaxBackoff
			}
			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}

		err := goose.UpContext(ctx, sqlDB, ".")
		if err == nil {
			return nil
		}
		if !shouldRetryMigration(err) || attempt == migrationMaxRetries-1 {
			return fmt.Errorf("apply migrations: %w", err)
		}
	}

	return fmt.Errorf("apply migrations: exceeded max retries (%d)", attempt)
}

func shouldRetryMigration(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if _, ok := retryablePgErrorCodes[pgErr.Code]; ok {
			return true
		}
	}

	return errors.Is(err, pgx.ErrTxClosed)
}
