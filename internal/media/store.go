// Package media stores movie images and videos in an object store under
// generated keys.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/bestflix/backend/internal/apperr"
	"github.com/bestflix/backend/internal/logging"
	"github.com/bestflix/backend/internal/storage"
)

// Kind selects the key prefix an asset is stored under.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// Prefix returns the object key prefix for the kind.
func (k Kind) Prefix() string {
	switch k {
	case KindImage:
		return "images/"
	case KindVideo:
		return "videos/"
	default:
		return ""
	}
}

// Blob is an uploaded file.
type Blob struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Asset describes a stored blob.
type Asset struct {
	Key         string
	Location    string
	ContentType string
	Size        int64
}

// Store writes and reads media assets.
type Store struct {
	objects storage.ObjectStore
	newKey  func() string
}

// NewStore returns a Store persisting into objects.
func NewStore(objects storage.ObjectStore) *Store {
	if objects == nil {
		panic("media: object store must not be nil")
	}
	return &Store{objects: objects, newKey: uuid.NewString}
}

// Store saves blob under a fresh key made of a random UUID and the lower-cased
// extension of the original filename.
func (s *Store) Store(ctx context.Context, kind Kind, blob Blob) (Asset, error) {
	if kind.Prefix() == "" {
		return Asset{}, fmt.Errorf("media: unknown asset kind %q", kind)
	}
	if blob.Body == nil {
		return Asset{}, apperr.Validation(fmt.Sprintf("%s file is required", kind))
	}

	ext := strings.ToLower(filepath.Ext(path.Base(filepath.ToSlash(blob.Filename))))
	key := s.newKey() + ext

	contentType := blob.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		if guessed := mime.TypeByExtension(ext); guessed != "" {
			contentType = guessed
		}
	}

	counter := &countingReader{r: blob.Body}
	location, err := s.objects.Put(ctx, kind.Prefix()+key, counter, contentType)
	if err != nil {
		return Asset{}, translate(err)
	}

	logging.FromContext(ctx).Info("media asset stored", "kind", string(kind), "key", key, "bytes", counter.n)
	return Asset{Key: key, Location: location, ContentType: contentType, Size: counter.n}, nil
}

// Object is an opened asset. The caller must close Body.
type Object struct {
	Body        io.ReadCloser
	ContentType string
	Size        int64
}

// Fetch opens the asset stored under key.
func (s *Store) Fetch(ctx context.Context, kind Kind, key string) (Object, error) {
	if kind.Prefix() == "" {
		return Object{}, fmt.Errorf("media: unknown asset kind %q", kind)
	}
	if strings.TrimSpace(key) == "" || strings.Contains(key, "/") {
		return Object{}, apperr.ErrAssetNotFound
	}

	obj, err := s.objects.Get(ctx, kind.Prefix()+key)
	if err != nil {
		return Object{}, translate(err)
	}
	return Object{Body: obj.Body, ContentType: obj.ContentType, Size: obj.Size}, nil
}

// Remove deletes the asset stored under key. Empty keys are ignored.
func (s *Store) Remove(ctx context.Context, kind Kind, key string) error {
	if key == "" || kind.Prefix() == "" {
		return nil
	}
	if err := s.objects.Delete(ctx, kind.Prefix()+key); err != nil {
		return translate(err)
	}
	return nil
}

func translate(err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return apperr.ErrAssetNotFound.WithCause(err)
	case errors.Is(err, storage.ErrUnavailable):
		return apperr.ErrAssetStoreUnavailable.WithCause(err)
	default:
		return err
	}
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
