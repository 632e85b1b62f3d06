package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

type memoryObject struct {
	data        []byte
	contentType string
}

// MemoryStorage implements ObjectStore in process memory for tests and local development.
type MemoryStorage struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
}

// NewMemoryStorage returns an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{objects: make(map[string]memoryObject)}
}

// Put stores a copy of body under key and returns the key as its location.
func (m *MemoryStorage) Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	key = strings.TrimLeft(key, "/")
	if key == "" {
		return "", fmt.Errorf("memory storage: empty key")
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("memory storage read %s: %w", key, err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	m.objects[key] = memoryObject{data: data, contentType: contentType}
	m.mu.Unlock()
	return key, nil
}

// Get returns a reader over the object stored under key.
func (m *MemoryStorage) Get(_ context.Context, key string) (Object, error) {
	key = strings.TrimLeft(key, "/")
	m.mu.RLock()
	obj, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		return Object{}, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return Object{
		Body:        io.NopCloser(bytes.NewReader(obj.data)),
		ContentType: obj.contentType,
		Size:        int64(len(obj.data)),
	}, nil
}

// Delete removes the object stored under key.
func (m *MemoryStorage) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.objects, strings.TrimLeft(key, "/"))
	m.mu.Unlock()
	return nil
}

// Keys lists the stored keys. Useful for tests.
func (m *MemoryStorage) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.objects))
	for key := range m.objects {
		keys = append(keys, key)
	}
	return keys
}
