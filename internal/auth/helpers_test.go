package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/bestflix/backend/internal/models"
	"github.com/bestflix/backend/internal/repositories"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func testHasher() Hasher {
	return NewHasher(bcrypt.MinCost)
}

type memoryUsers struct {
	mu    sync.Mutex
	users map[string]models.User

	findErr   error
	updateErr error
}

func newMemoryUsers(users ...models.User) *memoryUsers {
	m := &memoryUsers{users: make(map[string]models.User)}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *memoryUsers) Create(_ context.Context, user models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return repositories.ErrConflict
		}
	}
	m.users[user.ID] = user
	return nil
}

func (m *memoryUsers) FindByID(_ context.Context, id string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	return user, nil
}

func (m *memoryUsers) FindByUsername(_ context.Context, username string) (models.User, error) {
	return m.find(func(u models.User) bool { return u.Username == username })
}

func (m *memoryUsers) FindByEmail(_ context.Context, email string) (models.User, error) {
	return m.find(func(u models.User) bool { return u.Email == email })
}

func (m *memoryUsers) find(match func(models.User) bool) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return models.User{}, m.findErr
	}
	for _, u := range m.users {
		if match(u) {
			return u, nil
		}
	}
	return models.User{}, repositories.ErrNotFound
}

func (m *memoryUsers) UpdatePassword(_ context.Context, userID, hash string, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	user, ok := m.users[userID]
	if !ok {
		return repositories.ErrNotFound
	}
	user.Password = hash
	user.UpdatedAt = updatedAt
	m.users[userID] = user
	return nil
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

type sentMail struct {
	to   string
	link string
}

func (m *recordingMailer) SendPasswordReset(_ context.Context, to, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to: to, link: link})
	return nil
}

var errStoreDown = errors.New("store unavailable")
