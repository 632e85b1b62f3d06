package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/bestflix/backend/internal/apperr"
	"github.com/bestflix/backend/internal/logging"
	"github.com/bestflix/backend/internal/models"
	"github.com/bestflix/backend/internal/repositories"
)

// TokenVerifier validates bearer tokens.
type TokenVerifier interface {
	Verify(token string) (string, error)
	CheckMatchesAndFresh(token, expected string) error
}

// SubjectLookup resolves a token subject to its account.
type SubjectLookup interface {
	FindByUsername(ctx context.Context, username string) (models.User, error)
}

// Authenticate requires a valid bearer token. The verified username is placed on
// the request context, where handlers read it with logging.SubjectFromContext.
func Authenticate(tokens TokenVerifier, users SubjectLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			logger := logging.FromContext(ctx)

			token, ok := bearerToken(r)
			if !ok {
				logger.Warn("missing bearer token")
				writeError(w, r, apperr.ErrMalformedToken)
				return
			}

			subject, err := tokens.Verify(token)
			if err != nil {
				logger.Warn("bearer token rejected", "error", err)
				writeError(w, r, apperr.From(err))
				return
			}

			user, err := users.FindByUsername(ctx, subject)
			if err != nil {
				if errors.Is(err, repositories.ErrNotFound) {
					logger.Warn("bearer token subject unknown", "subject", subject)
					writeError(w, r, apperr.ErrUserNotFound)
					return
				}
				logger.Error("bearer token subject lookup failed", "subject", subject, "error", err)
				writeError(w, r, apperr.ErrUnknown)
				return
			}

			if err := tokens.CheckMatchesAndFresh(token, user.Username); err != nil {
				logger.Warn("bearer token not fresh", "subject", subject, "error", err)
				writeError(w, r, apperr.From(err))
				return
			}

			next.ServeHTTP(w, r.WithContext(logging.WithSubject(ctx, user.Username)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
