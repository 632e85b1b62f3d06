package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/bestflix/backend/internal/config"
	"github.com/bestflix/backend/internal/db"
	"github.com/bestflix/backend/internal/handlers"
	"github.com/bestflix/backend/internal/httpserver"
	"github.com/bestflix/backend/internal/logging"
	"github.com/bestflix/backend/internal/middleware"
	"github.com/bestflix/backend/internal/repositories/sqlite"
)

// Run bootstraps the BestFlix backend application.
func Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("expected command: serve, migrate, or useradd")
	}

	switch args[0] {
	case "serve":
		return serve(ctx)
	case "migrate":
		return runMigrations(ctx, args[1:])
	case "useradd":
		return runUserAdd(ctx, args[1:], os.Stdin, os.Stdout)
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{AddSource: true, Level: lvl}))
}

func serve(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)
	ctx = logging.WithLogger(ctx, logger)

	deps, cleanup, err := buildDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := cleanup(context.Background()); err != nil {
			logger.Error("release dependencies", "error", err)
		}
	}()

	srv := httpserver.New(httpserver.Options{
		Port:         cfg.AppPort,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}, newHandler(logger, cfg, deps))

	logger.Info("starting http server", "port", cfg.AppPort, "objectStore", cfg.ObjectStore.Backend)

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested, draining connections")
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	return srv.ShutdownWithin(cfg.ShutdownTimeout)
}

// newHandler builds the routed handler with the request-wide middleware applied.
func newHandler(logger *slog.Logger, cfg config.Config, deps handlers.Dependencies) http.Handler {
	mux := http.NewServeMux()
	handlers.RegisterRoutes(mux, deps)

	return middleware.RequestLogger(logger)(middleware.CORS(cfg.AllowedOrigin)(mux))
}

func runMigrations(ctx context.Context, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx = logging.WithLogger(ctx, newLogger(cfg.LogLevel))

	command := "up"
	if len(args) > 0 {
		command = strings.ToLower(args[0])
	}

	dialect, target, err := db.ParseURL(cfg.DatabaseURL)
	if err != nil {
		return err
	}

	var sqlDB *sql.DB
	switch dialect {
	case db.DialectPostgres:
		sqlDB, err = db.OpenSQL(target)
	case db.DialectSQLite:
		sqlDB, err = sqlite.OpenDB(ctx, target)
	}
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if err := db.Migrate(ctx, sqlDB, dialect, command); err != nil {
		return err
	}

	if command == "up" {
		fmt.Println("migrations applied")
	}
	return nil
}
