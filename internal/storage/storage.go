// Package storage provides object storage backends for media assets.
package storage

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrNotFound indicates no object exists under the requested key.
	ErrNotFound = errors.New("object not found")
	// ErrUnavailable indicates the backend could not be reached or refused the request.
	ErrUnavailable = errors.New("object store unavailable")
)

// Object is an opened stored object.
type Object struct {
	Body        io.ReadCloser
	ContentType string
	// Size is the object length in bytes, or -1 when unknown.
	Size int64
}

// ObjectStore persists binary objects under string keys.
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
	Get(ctx context.Context, key string) (Object, error)
	Delete(ctx context.Context, key string) error
}
