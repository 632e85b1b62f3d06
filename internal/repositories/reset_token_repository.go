package repositories

import (
	"context"

	"github.com/bestflix/backend/internal/models"
)

// ResetTokenRepository persists password reset tokens.
type ResetTokenRepository interface {
	Save(ctx context.Context, token models.ResetToken) error
	Find(ctx context.Context, token string) (models.ResetToken, error)
	// Delete removes the token and returns ErrNotFound when no row was removed,
	// which lets callers use it as a single-use claim.
	Delete(ctx context.Context, token string) error
}
