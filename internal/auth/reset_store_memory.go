package auth

import (
	"context"
	"sync"

	"github.com/bestflix/backend/internal/models"
	"github.com/bestflix/backend/internal/repositories"
)

// NewInMemoryResetTokenStore returns a reset token store backed by a map.
func NewInMemoryResetTokenStore() *InMemoryResetTokenStore {
	return &InMemoryResetTokenStore{tokens: make(map[string]models.ResetToken)}
}

// InMemoryResetTokenStore implements repositories.ResetTokenRepository for tests
// and local development.
type InMemoryResetTokenStore struct {
	mu     sync.RWMutex
	tokens map[string]models.ResetToken
}

// Save persists the provided token.
func (s *InMemoryResetTokenStore) Save(_ context.Context, token models.ResetToken) error {
	s.mu.Lock()
	s.tokens[token.Token] = token
	s.mu.Unlock()
	return nil
}

// Find retrieves a token record.
func (s *InMemoryResetTokenStore) Find(_ context.Context, token string) (models.ResetToken, error) {
	s.mu.RLock()
	stored, ok := s.tokens[token]
	s.mu.RUnlock()
	if !ok {
		return models.ResetToken{}, repositories.ErrNotFound
	}
	return stored, nil
}

// Delete removes the token, reporting ErrNotFound when it was already gone.
func (s *InMemoryResetTokenStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tokens[token]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.tokens, token)
	return nil
}

// Has reports whether a token exists. Useful for tests.
func (s *InMemoryResetTokenStore) Has(token string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.tokens[token]
	return ok
}

// Len reports the number of stored tokens.
func (s *InMemoryResetTokenStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tokens)
}
