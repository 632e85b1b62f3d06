package repositories

import (
	"context"

	"github.com/bestflix/backend/internal/models"
)

// MovieRepository defines the data access contract for movies and their ownership links.
type MovieRepository interface {
	// Create inserts the movie and links it to ownerID in a single transaction.
	Create(ctx context.Context, movie models.Movie, ownerID string) error
	List(ctx context.Context) ([]models.Movie, error)
	ListByOwner(ctx context.Context, userID string) ([]models.Movie, error)
	FindByID(ctx context.Context, id string) (models.Movie, error)
	Update(ctx context.Context, movie models.Movie) error
	// Delete removes the ownership links and then the movie in a single transaction.
	// Deleting a missing movie is not an error.
	Delete(ctx context.Context, id string) error
	FindOwnership(ctx context.Context, movieID string) (models.Ownership, error)
}
