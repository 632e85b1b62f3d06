package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bestflix/backend/internal/models"
	"github.com/bestflix/backend/internal/repositories"
)

// ResetTokenStore implements repositories.ResetTokenRepository on SQLite.
type ResetTokenStore struct {
	db *sql.DB
}

// Save stores or replaces a reset token record.
func (s *ResetTokenStore) Save(ctx context.Context, token models.ResetToken) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO password_reset_tokens (id, token, user_id, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (token) DO UPDATE SET user_id = excluded.user_id, expires_at = excluded.expires_at
	`, token.ID, token.Token, token.UserID, token.ExpiresAt.UTC(), token.CreatedAt.UTC())
	if err != nil {
		if mapped := translateError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("upsert reset token: %w", err)
	}
	return nil
}

// Find loads a reset token record.
func (s *ResetTokenStore) Find(ctx context.Context, token string) (models.ResetToken, error) {
	var stored models.ResetToken
	err := s.db.QueryRowContext(ctx, `
		SELECT id, token, user_id, expires_at, created_at
		FROM password_reset_tokens
		WHERE token = ?
	`, token).Scan(&stored.ID, &stored.Token, &stored.UserID, &stored.ExpiresAt, &stored.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ResetToken{}, repositories.ErrNotFound
		}
		return models.ResetToken{}, fmt.Errorf("select reset token: %w", err)
	}
	stored.ExpiresAt = stored.ExpiresAt.UTC()
	stored.CreatedAt = stored.CreatedAt.UTC()
	return stored, nil
}

// Delete removes a reset token, returning ErrNotFound when it was already gone.
func (s *ResetTokenStore) Delete(ctx context.Context, token string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM password_reset_tokens WHERE token = ?`, token)
	if err != nil {
		return fmt.Errorf("delete reset token: %w", err)
	}
	return requireRow(res)
}
