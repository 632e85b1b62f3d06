package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bestflix/backend/internal/auth"
	"github.com/bestflix/backend/internal/config"
	"github.com/bestflix/backend/internal/db"
	"github.com/bestflix/backend/internal/handlers"
	"github.com/bestflix/backend/internal/mail"
	"github.com/bestflix/backend/internal/media"
	"github.com/bestflix/backend/internal/middleware"
	"github.com/bestflix/backend/internal/movies"
	"github.com/bestflix/backend/internal/repositories"
	"github.com/bestflix/backend/internal/repositories/sqlite"
	"github.com/bestflix/backend/internal/storage"
)

// repositorySet groups the persistence backends selected by the database URL.
type repositorySet struct {
	users       repositories.UserRepository
	movies      repositories.MovieRepository
	resetTokens repositories.ResetTokenRepository
	database    handlers.Pinger
	close       func()
}

// openRepositories connects to PostgreSQL through pgx or opens the SQLite
// development database, depending on the URL scheme.
func openRepositories(ctx context.Context, databaseURL string) (repositorySet, error) {
	dialect, target, err := db.ParseURL(databaseURL)
	if err != nil {
		return repositorySet{}, err
	}

	switch dialect {
	case db.DialectPostgres:
		pool, err := db.Connect(ctx, target)
		if err != nil {
			return repositorySet{}, err
		}
		return repositorySet{
			users:       repositories.NewPostgresUserRepository(pool),
			movies:      repositories.NewPostgresMovieRepository(pool),
			resetTokens: repositories.NewPostgresResetTokenStore(pool),
			database:    pool,
			close:       pool.Close,
		}, nil
	case db.DialectSQLite:
		store, err := sqlite.Open(ctx, target)
		if err != nil {
			return repositorySet{}, err
		}
		return repositorySet{
			users:       store.Users(),
			movies:      store.Movies(),
			resetTokens: store.ResetTokens(),
			database:    store,
			close:       func() { _ = store.Close() },
		}, nil
	default:
		return repositorySet{}, fmt.Errorf("unsupported database dialect %q", dialect)
	}
}

func buildObjectStore(ctx context.Context, cfg config.ObjectStoreConfig) (storage.ObjectStore, error) {
	switch cfg.Backend {
	case "memory":
		return storage.NewMemoryStorage(), nil
	case "s3":
		return storage.NewS3Storage(ctx, storage.S3Config{
			Bucket:        cfg.Bucket,
			Region:        cfg.Region,
			Endpoint:      cfg.Endpoint,
			AccessKey:     cfg.AccessKey,
			SecretKey:     cfg.SecretKey,
			PublicBaseURL: cfg.PublicBaseURL,
		})
	default:
		return nil, fmt.Errorf("unsupported object store backend %q", cfg.Backend)
	}
}

func buildMailSender(cfg config.SMTPConfig, logger *slog.Logger) (mail.Sender, error) {
	if cfg.Host == "" {
		logger.Warn("smtp host not configured, reset mails will only be logged")
		return mail.LogSender{}, nil
	}
	return mail.NewSMTPSender(mail.SMTPConfig{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Username: cfg.Username,
		Password: cfg.Password,
		From:     cfg.From,
	})
}

// buildDependencies wires together concrete implementations used by the HTTP
// handlers. The returned cleanup releases the database.
func buildDependencies(ctx context.Context, cfg config.Config, logger *slog.Logger) (handlers.Dependencies, func(context.Context) error, error) {
	repos, err := openRepositories(ctx, cfg.DatabaseURL)
	if err != nil {
		return handlers.Dependencies{}, nil, err
	}
	cleanup := func(context.Context) error {
		repos.close()
		return nil
	}

	objects, err := buildObjectStore(ctx, cfg.ObjectStore)
	if err != nil {
		repos.close()
		return handlers.Dependencies{}, nil, err
	}

	sender, err := buildMailSender(cfg.SMTP, logger)
	if err != nil {
		repos.close()
		return handlers.Dependencies{}, nil, err
	}

	proxies, err := handlers.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		repos.close()
		return handlers.Dependencies{}, nil, err
	}

	codec := auth.NewCodec([]byte(cfg.JWT.Secret), cfg.JWT.TTL)
	hasher := auth.NewHasher(cfg.BcryptCost)
	notifier := mail.NewResetNotifier(sender, int(resetTTL(cfg).Minutes()))

	deps := handlers.Dependencies{
		Auth: auth.NewAuthenticator(repos.users, codec, hasher),
		Resets: auth.NewResetManager(repos.users, repos.resetTokens, notifier, hasher, auth.ResetOptions{
			TTL:         cfg.Reset.TTL,
			LinkBaseURL: cfg.Reset.LinkBaseURL,
		}),
		Movies: movies.NewService(repos.users, repos.movies, media.NewStore(objects)),
		Limiter: middleware.NewRateLimiter(middleware.RateLimitOptions{
			Requests: cfg.RateLimit.Requests,
			Window:   cfg.RateLimit.Window,
			Burst:    cfg.RateLimit.Burst,
		}),
		Database:         repos.database,
		TrustedProxies:   proxies,
		RequireAuth:      middleware.Authenticate(codec, repos.users),
		ExposeResetToken: cfg.Reset.ExposeToken,
		MaxUploadBytes:   cfg.MaxUploadBytes,
	}
	return deps, cleanup, nil
}

func resetTTL(cfg config.Config) time.Duration {
	if cfg.Reset.TTL > 0 {
		return cfg.Reset.TTL
	}
	return auth.DefaultResetTTL
}
