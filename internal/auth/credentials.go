package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bestflix/backend/internal/apperr"
	"github.com/bestflix/backend/internal/logging"
	"github.com/bestflix/backend/internal/models"
	"github.com/bestflix/backend/internal/repositories"
	"github.com/bestflix/backend/internal/validation"
)

// Registration carries the fields required to create an account.
type Registration struct {
	Username string `json:"username" validate:"required,min=3,max=30"`
	Password string `json:"password" validate:"required,min=6"`
	Email    string `json:"email" validate:"required,email"`
}

// Authenticator verifies credentials and registers new accounts.
type Authenticator struct {
	users  repositories.UserRepository
	codec  *Codec
	hasher Hasher

	// NowFunc overrides the clock used for account timestamps.
	NowFunc func() time.Time
}

// NewAuthenticator wires an Authenticator over the user repository and token codec.
func NewAuthenticator(users repositories.UserRepository, codec *Codec, hasher Hasher) *Authenticator {
	if users == nil || codec == nil {
		panic("auth: user repository and codec must not be nil")
	}
	return &Authenticator{users: users, codec: codec, hasher: hasher}
}

// Authenticate checks username and password and returns a signed access token.
// Every failure is reported to the caller as ErrInvalidCredentials.
func (a *Authenticator) Authenticate(ctx context.Context, username, password string) (string, error) {
	ctx, span := logging.StartSpan(ctx, "auth.Authenticate")
	defer span.End()
	logger := logging.FromContext(ctx)

	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", apperr.ErrInvalidCredentials
	}

	user, err := a.users.FindByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			span.RecordError(err)
			logger.Error("credential lookup failed", "username", username, "error", err)
		}
		return "", apperr.ErrInvalidCredentials
	}

	ok, err := a.hasher.Matches(user.Password, password)
	if err != nil {
		span.RecordError(err)
		logger.Error("credential comparison failed", "userId", user.ID, "error", err)
		return "", apperr.ErrInvalidCredentials
	}
	if !ok {
		logger.Warn("password mismatch", "userId", user.ID)
		return "", apperr.ErrInvalidCredentials
	}

	token, err := a.codec.Issue(user.Username)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("issue token: %w", err)
	}
	return token, nil
}

// Register validates reg, hashes the password and persists a new user.
func (a *Authenticator) Register(ctx context.Context, reg Registration) (models.User, error) {
	ctx, span := logging.StartSpan(ctx, "auth.Register")
	defer span.End()

	reg.Username = strings.TrimSpace(reg.Username)
	reg.Email = strings.TrimSpace(strings.ToLower(reg.Email))
	if err := validation.Struct(reg); err != nil {
		return models.User{}, err
	}

	hashed, err := a.hasher.Hash(reg.Password)
	if err != nil {
		span.RecordError(err)
		return models.User{}, err
	}

	now := a.now()
	user := models.User{
		ID:        uuid.NewString(),
		Username:  reg.Username,
		Email:     reg.Email,
		Password:  hashed,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := a.users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			return models.User{}, apperr.ErrUserExists
		}
		span.RecordError(err)
		return models.User{}, fmt.Errorf("create user: %w", err)
	}

	logging.FromContext(ctx).Info("user registered", "userId", user.ID, "username", user.Username)
	return user, nil
}

func (a *Authenticator) now() time.Time {
	if a.NowFunc != nil {
		return a.NowFunc()
	}
	return time.Now().UTC()
}
