package repositories

import (
	"context"
	"time"

	"github.com/bestflix/backend/internal/models"
)

// UserRepository defines the data access contract for users.
type UserRepository interface {
	Create(ctx context.Context, user models.User) error
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByUsername(ctx context.Context, username string) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	UpdatePassword(ctx context.Context, userID, passwordHash string, updatedAt time.Time) error
}
