package handlers

import (
	"context"

	"github.com/bestflix/backend/internal/auth"
	"github.com/bestflix/backend/internal/media"
	"github.com/bestflix/backend/internal/models"
)

// Authenticator verifies credentials and registers accounts.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (string, error)
	Register(ctx context.Context, reg auth.Registration) (models.User, error)
}

// PasswordResetter drives the forgot-password flow.
type PasswordResetter interface {
	RequestReset(ctx context.Context, email string) (string, error)
	ConsumeReset(ctx context.Context, token, password string) error
}

// MovieCatalog captures the movie operations exposed over HTTP.
type MovieCatalog interface {
	Upload(ctx context.Context, username string, meta models.MovieMetadata, image, video media.Blob) (models.Movie, error)
	List(ctx context.Context) ([]models.Movie, error)
	ListByOwner(ctx context.Context, username string) ([]models.Movie, error)
	Get(ctx context.Context, id string) (models.Movie, error)
	Delete(ctx context.Context, id string) (string, error)
	Update(ctx context.Context, id string, meta models.MovieMetadata, image, video media.Blob) (models.Movie, error)
	Image(ctx context.Context, id string) (media.Object, error)
	Video(ctx context.Context, id string) (media.Object, string, error)
}
