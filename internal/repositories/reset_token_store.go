package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bestflix/backend/internal/db"
	"github.com/bestflix/backend/internal/models"
)

// PostgresResetTokenStore persists password reset tokens to PostgreSQL.
type PostgresResetTokenStore struct {
	pool db.Pool
}

// NewPostgresResetTokenStore constructs a reset token store backed by PostgreSQL.
func NewPostgresResetTokenStore(pool db.Pool) *PostgresResetTokenStore {
	return &PostgresResetTokenStore{pool: pool}
}

// Save stores or replaces a reset token record.
func (s *PostgresResetTokenStore) Save(ctx context.Context, token models.ResetToken) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO password_reset_tokens (id, token, user_id, expires_at, created_at)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (token)
        DO UPDATE SET user_id = EXCLUDED.user_id, expires_at = EXCLUDED.expires_at
    `, token.ID, token.Token, token.UserID, token.ExpiresAt.UTC(), token.CreatedAt.UTC())
	if err != nil {
		if mapped := translatePgError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("upsert reset token: %w", err)
	}

	return nil
}

// Find loads a reset token record.
func (s *PostgresResetTokenStore) Find(ctx context.Context, token string) (models.ResetToken, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return models.ResetToken{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, token, user_id, expires_at, created_at
        FROM password_reset_tokens
        WHERE token = $1
    `, token)

	var stored models.ResetToken
	if err := row.Scan(&stored.ID, &stored.Token, &stored.UserID, &stored.ExpiresAt, &stored.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ResetToken{}, ErrNotFound
		}
		return models.ResetToken{}, fmt.Errorf("select reset token: %w", err)
	}

	stored.ExpiresAt = stored.ExpiresAt.UTC()
	stored.CreatedAt = stored.CreatedAt.UTC()
	return stored, nil
}

// Delete removes a reset token. Only one concurrent caller observes a nil error.
func (s *PostgresResetTokenStore) Delete(ctx context.Context, token string) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        DELETE FROM password_reset_tokens
        WHERE token = $1
    `, token)
	if err != nil {
		return fmt.Errorf("delete reset token: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}
