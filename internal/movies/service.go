// Package movies manages movie records, their ownership links and media assets.
package movies

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bestflix/backend/internal/apperr"
	"github.com/bestflix/backend/internal/logging"
	"github.com/bestflix/backend/internal/media"
	"github.com/bestflix/backend/internal/models"
	"github.com/bestflix/backend/internal/repositories"
)

// DeletedMessage confirms a completed Delete.
const DeletedMessage = "Movie deleted completely"

// DefaultMaxImageBytes bounds the poster kept inline on the movie record.
const DefaultMaxImageBytes = 10 << 20

// AssetStore persists and reads media assets.
type AssetStore interface {
	Store(ctx context.Context, kind media.Kind, blob media.Blob) (media.Asset, error)
	Fetch(ctx context.Context, kind media.Kind, key string) (media.Object, error)
	Remove(ctx context.Context, kind media.Kind, key string) error
}

// Service implements the movie catalog operations.
type Service struct {
	users  repositories.UserRepository
	movies repositories.MovieRepository
	assets AssetStore

	// MaxImageBytes caps the poster size; zero selects DefaultMaxImageBytes.
	MaxImageBytes int64
	NowFunc       func() time.Time
}

// NewService constructs a movie Service.
func NewService(users repositories.UserRepository, movies repositories.MovieRepository, assets AssetStore) *Service {
	if users == nil || movies == nil || assets == nil {
		panic("movies: dependencies must not be nil")
	}
	return &Service{users: users, movies: movies, assets: assets}
}

// Upload stores the poster and video, then records the movie owned by username.
func (s *Service) Upload(ctx context.Context, username string, meta models.MovieMetadata, image, video media.Blob) (models.Movie, error) {
	ctx, span := logging.StartSpan(ctx, "movies.Upload")
	defer span.End()

	user, err := s.users.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.Movie{}, apperr.ErrUserNotFound
		}
		span.RecordError(err)
		return models.Movie{}, fmt.Errorf("find uploader: %w", err)
	}

	now := s.now()
	movie := models.Movie{ID: uuid.NewString(), CreatedAt: now, UpdatedAt: now}
	meta.Apply(&movie)

	stored, err := s.storeAssets(ctx, &movie, image, video)
	if err != nil {
		span.RecordError(err)
		return models.Movie{}, err
	}

	if err := s.movies.Create(ctx, movie, user.ID); err != nil {
		span.RecordError(err)
		s.discard(ctx, stored)
		if errors.Is(err, repositories.ErrNotFound) {
			return models.Movie{}, apperr.ErrUserNotFound
		}
		return models.Movie{}, fmt.Errorf("create movie: %w", err)
	}

	logging.FromContext(ctx).Info("movie uploaded", "movieId", movie.ID, "userId", user.ID, "video", movie.VideoName)
	return movie, nil
}

// List returns every movie in the catalog.
func (s *Service) List(ctx context.Context) ([]models.Movie, error) {
	movies, err := s.movies.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list movies: %w", err)
	}
	if len(movies) == 0 {
		return nil, apperr.ErrNoMoviesFound
	}
	return movies, nil
}

// ListByOwner returns the movies uploaded by username.
func (s *Service) ListByOwner(ctx context.Context, username string) ([]models.Movie, error) {
	user, err := s.users.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperr.ErrNoMoviesFound
		}
		return nil, fmt.Errorf("find owner: %w", err)
	}

	movies, err := s.movies.ListByOwner(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("list movies by owner: %w", err)
	}
	if len(movies) == 0 {
		return nil, apperr.ErrNoMoviesFound
	}
	return movies, nil
}

// Get returns the movie with the given id.
func (s *Service) Get(ctx context.Context, id string) (models.Movie, error) {
	movie, err := s.movies.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.Movie{}, apperr.ErrNoMoviesFound
		}
		return models.Movie{}, fmt.Errorf("find movie: %w", err)
	}
	return movie, nil
}

// Delete removes the movie together with its ownership link. Unknown ids succeed.
func (s *Service) Delete(ctx context.Context, id string) (string, error) {
	ctx, span := logging.StartSpan(ctx, "movies.Delete")
	defer span.End()

	existing, err := s.movies.FindByID(ctx, id)
	found := err == nil
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		span.RecordError(err)
		return "", fmt.Errorf("find movie: %w", err)
	}

	if err := s.movies.Delete(ctx, id); err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("delete movie: %w", err)
	}

	if found {
		s.discard(ctx, assetsOf(existing))
		logging.FromContext(ctx).Info("movie deleted", "movieId", id)
	}
	return DeletedMessage, nil
}

// Update overwrites the metadata and both assets of movie id. The previous
// assets are removed once the record is saved.
func (s *Service) Update(ctx context.Context, id string, meta models.MovieMetadata, image, video media.Blob) (models.Movie, error) {
	ctx, span := logging.StartSpan(ctx, "movies.Update")
	defer span.End()

	if image.Body == nil {
		return models.Movie{}, apperr.Validation("image file is required")
	}
	if video.Body == nil {
		return models.Movie{}, apperr.Validation("video file is required")
	}

	movie, err := s.movies.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.Movie{}, apperr.ErrMovieNotFound
		}
		span.RecordError(err)
		return models.Movie{}, fmt.Errorf("find movie: %w", err)
	}

	previous := assetsOf(movie)
	meta.Apply(&movie)
	movie.UpdatedAt = s.now()

	stored, err := s.storeAssets(ctx, &movie, image, video)
	if err != nil {
		span.RecordError(err)
		return models.Movie{}, err
	}

	if err := s.movies.Update(ctx, movie); err != nil {
		span.RecordError(err)
		s.discard(ctx, stored)
		if errors.Is(err, repositories.ErrNotFound) {
			return models.Movie{}, apperr.ErrMovieNotFound
		}
		return models.Movie{}, fmt.Errorf("update movie: %w", err)
	}
	s.discard(ctx, previous)

	if _, err := s.movies.FindOwnership(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.Movie{}, apperr.ErrOwnershipLinkMissing
		}
		span.RecordError(err)
		return models.Movie{}, fmt.Errorf("find ownership: %w", err)
	}

	logging.FromContext(ctx).Info("movie updated", "movieId", id)
	return movie, nil
}

// Image returns the poster of movie id. Inline poster bytes are served directly;
// otherwise the asset store is consulted.
func (s *Service) Image(ctx context.Context, id string) (media.Object, error) {
	movie, err := s.Get(ctx, id)
	if err != nil {
		return media.Object{}, err
	}
	if len(movie.ImageData) > 0 {
		return media.Object{
			Body:        io.NopCloser(bytes.NewReader(movie.ImageData)),
			ContentType: movie.ImageType,
			Size:        int64(len(movie.ImageData)),
		}, nil
	}

	obj, err := s.assets.Fetch(ctx, media.KindImage, movie.ImageName)
	if err != nil {
		return media.Object{}, err
	}
	if movie.ImageType != "" {
		obj.ContentType = movie.ImageType
	}
	return obj, nil
}

// Video opens the video of movie id and returns it with the stored key.
func (s *Service) Video(ctx context.Context, id string) (media.Object, string, error) {
	movie, err := s.Get(ctx, id)
	if err != nil {
		return media.Object{}, "", err
	}

	obj, err := s.assets.Fetch(ctx, media.KindVideo, movie.VideoName)
	if err != nil {
		return media.Object{}, "", err
	}
	if movie.VideoType != "" {
		obj.ContentType = movie.VideoType
	}
	return obj, movie.VideoName, nil
}

type storedAsset struct {
	kind media.Kind
	key  string
}

func assetsOf(movie models.Movie) []storedAsset {
	return []storedAsset{
		{kind: media.KindImage, key: movie.ImageName},
		{kind: media.KindVideo, key: movie.VideoName},
	}
}

func (s *Service) storeAssets(ctx context.Context, movie *models.Movie, image, video media.Blob) ([]storedAsset, error) {
	img, err := s.storeImage(ctx, movie, image)
	if err != nil {
		return nil, err
	}
	vid, err := s.storeVideo(ctx, movie, video)
	if err != nil {
		s.discard(ctx, []storedAsset{img})
		return nil, err
	}
	return []storedAsset{img, vid}, nil
}

func (s *Service) storeImage(ctx context.Context, movie *models.Movie, blob media.Blob) (storedAsset, error) {
	if blob.Body == nil {
		return storedAsset{}, apperr.Validation("image file is required")
	}

	limit := s.MaxImageBytes
	if limit <= 0 {
		limit = DefaultMaxImageBytes
	}
	data, err := io.ReadAll(io.LimitReader(blob.Body, limit+1))
	if err != nil {
		return storedAsset{}, fmt.Errorf("read image: %w", err)
	}
	if int64(len(data)) > limit {
		return storedAsset{}, apperr.Validation(fmt.Sprintf("image must not exceed %d bytes", limit))
	}

	blob.Body = bytes.NewReader(data)
	asset, err := s.assets.Store(ctx, media.KindImage, blob)
	if err != nil {
		return storedAsset{}, err
	}

	movie.ImageName = asset.Key
	movie.ImageType = asset.ContentType
	movie.ImageData = data
	return storedAsset{kind: media.KindImage, key: asset.Key}, nil
}

func (s *Service) storeVideo(ctx context.Context, movie *models.Movie, blob media.Blob) (storedAsset, error) {
	if blob.Body == nil {
		return storedAsset{}, apperr.Validation("video file is required")
	}

	asset, err := s.assets.Store(ctx, media.KindVideo, blob)
	if err != nil {
		return storedAsset{}, err
	}

	movie.VideoName = asset.Key
	movie.VideoType = asset.ContentType
	movie.VideoPath = asset.Location
	return storedAsset{kind: media.KindVideo, key: asset.Key}, nil
}

// discard removes assets that are no longer referenced. Failures are logged only.
func (s *Service) discard(ctx context.Context, assets []storedAsset) {
	for _, a := range assets {
		if a.key == "" {
			continue
		}
		if err := s.assets.Remove(ctx, a.kind, a.key); err != nil {
			logging.FromContext(ctx).Warn("remove media asset", "kind", string(a.kind), "key", a.key, "error", err)
		}
	}
}

func (s *Service) now() time.Time {
	if s.NowFunc != nil {
		return s.NowFunc()
	}
	return time.Now().UTC()
}
