package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bestflix/backend/internal/apperr"
	"github.com/bestflix/backend/internal/logging"
	"github.com/bestflix/backend/internal/models"
	"github.com/bestflix/backend/internal/repositories"
	"github.com/bestflix/backend/internal/validation"
)

// DefaultResetTTL is how long a password reset token stays valid.
const DefaultResetTTL = 30 * time.Minute

// ResetMailer delivers password reset links.
type ResetMailer interface {
	SendPasswordReset(ctx context.Context, to, link string) error
}

// ResetOptions tunes a ResetManager.
type ResetOptions struct {
	TTL time.Duration
	// LinkBaseURL is the front-end page that receives the token as a "token" query parameter.
	LinkBaseURL string
}

// ResetManager issues and redeems single-use password reset tokens.
type ResetManager struct {
	users  repositories.UserRepository
	tokens repositories.ResetTokenRepository
	mailer ResetMailer
	hasher Hasher

	ttl      time.Duration
	linkBase string

	// NowFunc overrides the clock used for expiry checks.
	NowFunc func() time.Time
}

// NewResetManager constructs a ResetManager.
func NewResetManager(users repositories.UserRepository, tokens repositories.ResetTokenRepository, mailer ResetMailer, hasher Hasher, opts ResetOptions) *ResetManager {
	if users == nil || tokens == nil || mailer == nil {
		panic("auth: reset manager dependencies must not be nil")
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultResetTTL
	}
	return &ResetManager{
		users:    users,
		tokens:   tokens,
		mailer:   mailer,
		hasher:   hasher,
		ttl:      opts.TTL,
		linkBase: opts.LinkBaseURL,
	}
}

// RequestReset stores a fresh token for the account registered under email and
// mails the reset link. If the mail cannot be sent the token is discarded.
func (m *ResetManager) RequestReset(ctx context.Context, email string) (string, error) {
	ctx, span := logging.StartSpan(ctx, "auth.RequestReset")
	defer span.End()
	logger := logging.FromContext(ctx)

	email = strings.TrimSpace(strings.ToLower(email))
	user, err := m.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return "", apperr.ErrUserNotFound
		}
		span.RecordError(err)
		return "", fmt.Errorf("find user by email: %w", err)
	}

	now := m.now()
	token := models.ResetToken{
		ID:        uuid.NewString(),
		Token:     uuid.NewString(),
		UserID:    user.ID,
		ExpiresAt: now.Add(m.ttl),
		CreatedAt: now,
	}
	if err := m.tokens.Save(ctx, token); err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("save reset token: %w", err)
	}

	if err := m.mailer.SendPasswordReset(ctx, user.Email, m.link(token.Token)); err != nil {
		span.RecordError(err)
		if delErr := m.tokens.Delete(ctx, token.Token); delErr != nil && !errors.Is(delErr, repositories.ErrNotFound) {
			logger.Error("discard undelivered reset token", "userId", user.ID, "error", delErr)
		}
		return "", apperr.ErrMailDelivery.WithCause(err)
	}

	logger.Info("password reset requested", "userId", user.ID, "expiresAt", token.ExpiresAt)
	return token.Token, nil
}

type newPassword struct {
	Password string `json:"newPassword" validate:"required,min=6"`
}

// ConsumeReset replaces the password of the token's owner and invalidates the token.
// An expired token is deleted and rejected.
func (m *ResetManager) ConsumeReset(ctx context.Context, token, password string) error {
	ctx, span := logging.StartSpan(ctx, "auth.ConsumeReset")
	defer span.End()

	token = strings.TrimSpace(token)
	if token == "" {
		return apperr.ErrResetTokenNotFound
	}

	stored, err := m.tokens.Find(ctx, token)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return apperr.ErrResetTokenNotFound
		}
		span.RecordError(err)
		return fmt.Errorf("find reset token: %w", err)
	}

	if m.now().After(stored.ExpiresAt) {
		if err := m.tokens.Delete(ctx, token); err != nil && !errors.Is(err, repositories.ErrNotFound) {
			span.RecordError(err)
		}
		return apperr.ErrResetTokenExpired
	}

	if err := validation.Struct(newPassword{Password: password}); err != nil {
		return err
	}

	hashed, err := m.hasher.Hash(password)
	if err != nil {
		span.RecordError(err)
		return err
	}

	// Claim the token before writing so concurrent redeemers cannot both succeed.
	if err := m.tokens.Delete(ctx, token); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return apperr.ErrResetTokenNotFound
		}
		span.RecordError(err)
		return fmt.Errorf("claim reset token: %w", err)
	}

	if err := m.users.UpdatePassword(ctx, stored.UserID, hashed, m.now()); err != nil {
		span.RecordError(err)
		if restoreErr := m.tokens.Save(ctx, stored); restoreErr != nil {
			logging.FromContext(ctx).Error("restore reset token", "userId", stored.UserID, "error", restoreErr)
		}
		if errors.Is(err, repositories.ErrNotFound) {
			return apperr.ErrUserNotFound
		}
		return fmt.Errorf("update password: %w", err)
	}

	logging.FromContext(ctx).Info("password reset completed", "userId", stored.UserID)
	return nil
}

func (m *ResetManager) link(token string) string {
	base, err := url.Parse(m.linkBase)
	if err != nil || m.linkBase == "" {
		return m.linkBase + "?token=" + url.QueryEscape(token)
	}
	query := base.Query()
	query.Set("token", token)
	base.RawQuery = query.Encode()
	return base.String()
}

func (m *ResetManager) now() time.Time {
	if m.NowFunc != nil {
		return m.NowFunc()
	}
	return time.Now().UTC()
}
