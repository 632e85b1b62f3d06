package movies

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bestflix/backend/internal/apperr"
	"github.com/bestflix/backend/internal/media"
	"github.com/bestflix/backend/internal/models"
	"github.com/bestflix/backend/internal/repositories"
	"github.com/bestflix/backend/internal/storage"
)

type stubUsers struct {
	users map[string]models.User
}

func (s stubUsers) Create(context.Context, models.User) error { return errors.New("not implemented") }

func (s stubUsers) FindByID(_ context.Context, id string) (models.User, error) {
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return models.User{}, repositories.ErrNotFound
}

func (s stubUsers) FindByUsername(_ context.Context, username string) (models.User, error) {
	u, ok := s.users[username]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	return u, nil
}

func (s stubUsers) FindByEmail(context.Context, string) (models.User, error) {
	return models.User{}, repositories.ErrNotFound
}

func (s stubUsers) UpdatePassword(context.Context, string, string, time.Time) error { return nil }

type memoryMovies struct {
	mu     sync.Mutex
	movies map[string]models.Movie
	owners map[string]string

	createErr error
}

func newMemoryMovies() *memoryMovies {
	return &memoryMovies{movies: make(map[string]models.Movie), owners: make(map[string]string)}
}

func (m *memoryMovies) Create(_ context.Context, movie models.Movie, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.movies[movie.ID] = movie
	m.owners[movie.ID] = ownerID
	return nil
}

func (m *memoryMovies) List(context.Context) ([]models.Movie, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Movie, 0, len(m.movies))
	for _, movie := range m.movies {
		out = append(out, movie)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MovieName < out[j].MovieName })
	return out, nil
}

func (m *memoryMovies) ListByOwner(_ context.Context, userID string) ([]models.Movie, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Movie
	for id, owner := range m.owners {
		if owner == userID {
			out = append(out, m.movies[id])
		}
	}
	return out, nil
}

func (m *memoryMovies) FindByID(_ context.Context, id string) (models.Movie, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	movie, ok := m.movies[id]
	if !ok {
		return models.Movie{}, repositories.ErrNotFound
	}
	return movie, nil
}

func (m *memoryMovies) Update(_ context.Context, movie models.Movie) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.movies[movie.ID]; !ok {
		return repositories.ErrNotFound
	}
	m.movies[movie.ID] = movie
	return nil
}

func (m *memoryMovies) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.owners, id)
	delete(m.movies, id)
	return nil
}

func (m *memoryMovies) FindOwnership(_ context.Context, movieID string) (models.Ownership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	owner, ok := m.owners[movieID]
	if !ok {
		return models.Ownership{}, repositories.ErrNotFound
	}
	return models.Ownership{UserID: owner, MovieID: movieID}, nil
}

type fixture struct {
	svc     *Service
	movies  *memoryMovies
	objects *storage.MemoryStorage
}

func newFixture() fixture {
	users := stubUsers{users: map[string]models.User{
		"elcin": {ID: "user-1", Username: "elcin"},
		"ayla":  {ID: "user-2", Username: "ayla"},
	}}
	movies := newMemoryMovies()
	objects := storage.NewMemoryStorage()
	return fixture{
		svc:     NewService(users, movies, media.NewStore(objects)),
		movies:  movies,
		objects: objects,
	}
}

func inception() models.MovieMetadata {
	release, _ := models.ParseDate("2010-07-16")
	return models.MovieMetadata{
		MovieName:   "Inception",
		Country:     "USA",
		ReleaseDate: release,
		Casts:       "Leonardo DiCaprio",
		Duration:    "148 min",
		About:       "Dreams within dreams",
		Category:    "Sci-Fi",
	}
}

func poster() media.Blob {
	return media.Blob{Filename: "inception.jpg", ContentType: "image/jpeg", Body: strings.NewReader("poster-bytes")}
}

func trailer() media.Blob {
	return media.Blob{Filename: "inception.mp4", ContentType: "video/mp4", Body: strings.NewReader("video-bytes")}
}

func TestUploadInception(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	movie, err := f.svc.Upload(ctx, "elcin", inception(), poster(), trailer())
	require.NoError(t, err)

	assert.Equal(t, "Inception", movie.MovieName)
	assert.Equal(t, "2010-07-16", movie.ReleaseDate.String())
	assert.True(t, strings.HasSuffix(movie.ImageName, ".jpg"))
	assert.True(t, strings.HasSuffix(movie.VideoName, ".mp4"))
	assert.Equal(t, "image/jpeg", movie.ImageType)
	assert.Equal(t, "video/mp4", movie.VideoType)
	assert.Equal(t, "videos/"+movie.VideoName, movie.VideoPath)
	assert.Equal(t, []byte("poster-bytes"), movie.ImageData)

	mine, err := f.svc.ListByOwner(ctx, "elcin")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, movie.ID, mine[0].ID)

	_, err = f.svc.ListByOwner(ctx, "ayla")
	assert.ErrorIs(t, err, apperr.ErrNoMoviesFound)

	all, err := f.svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	video, key, err := f.svc.Video(ctx, movie.ID)
	require.NoError(t, err)
	defer video.Body.Close()
	data, err := io.ReadAll(video.Body)
	require.NoError(t, err)
	assert.Equal(t, "video-bytes", string(data))
	assert.Equal(t, movie.VideoName, key)
	assert.Equal(t, "video/mp4", video.ContentType)

	image, err := f.svc.Image(ctx, movie.ID)
	require.NoError(t, err)
	data, err = io.ReadAll(image.Body)
	require.NoError(t, err)
	assert.Equal(t, "poster-bytes", string(data))
}

func TestUploadUnknownUserHasNoSideEffects(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Upload(context.Background(), "ghost", inception(), poster(), trailer())
	assert.ErrorIs(t, err, apperr.ErrUserNotFound)
	assert.Empty(t, f.objects.Keys())
	assert.Empty(t, f.movies.movies)
}

func TestUploadRemovesAssetsWhenRecordFails(t *testing.T) {
	f := newFixture()
	f.movies.createErr = errors.New("tx aborted")

	_, err := f.svc.Upload(context.Background(), "elcin", inception(), poster(), trailer())
	assert.Error(t, err)
	assert.Empty(t, f.objects.Keys())
}

func TestUploadRequiresBothFiles(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Upload(context.Background(), "elcin", inception(), media.Blob{}, trailer())
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.svc.Upload(context.Background(), "elcin", inception(), poster(), media.Blob{})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Empty(t, f.objects.Keys())
}

func TestUploadRejectsOversizedImage(t *testing.T) {
	f := newFixture()
	f.svc.MaxImageBytes = 4

	_, err := f.svc.Upload(context.Background(), "elcin", inception(), poster(), trailer())
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestEmptyCatalog(t *testing.T) {
	f := newFixture()

	_, err := f.svc.List(context.Background())
	assert.ErrorIs(t, err, apperr.ErrNoMoviesFound)

	_, err = f.svc.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, apperr.ErrNoMoviesFound)

	_, err = f.svc.ListByOwner(context.Background(), "ghost")
	assert.ErrorIs(t, err, apperr.ErrNoMoviesFound)
}

func TestDeleteRemovesMovieLinkAndAssets(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	movie, err := f.svc.Upload(ctx, "elcin", inception(), poster(), trailer())
	require.NoError(t, err)

	msg, err := f.svc.Delete(ctx, movie.ID)
	require.NoError(t, err)
	assert.Equal(t, "Movie deleted completely", msg)

	_, err = f.svc.Get(ctx, movie.ID)
	assert.ErrorIs(t, err, apperr.ErrNoMoviesFound)
	_, err = f.movies.FindOwnership(ctx, movie.ID)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
	assert.Empty(t, f.objects.Keys())

	msg, err = f.svc.Delete(ctx, movie.ID)
	require.NoError(t, err, "deleting a missing movie is not an error")
	assert.Equal(t, DeletedMessage, msg)
}

func TestUpdate(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	movie, err := f.svc.Upload(ctx, "elcin", inception(), poster(), trailer())
	require.NoError(t, err)

	meta := inception()
	meta.MovieName = "Inception (Director's Cut)"
	meta.Duration = "160 min"

	newPoster := media.Blob{Filename: "cut.png", ContentType: "image/png", Body: strings.NewReader("new-poster")}
	newVideo := media.Blob{Filename: "cut.webm", ContentType: "video/webm", Body: strings.NewReader("new-video")}
	updated, err := f.svc.Update(ctx, movie.ID, meta, newPoster, newVideo)
	require.NoError(t, err)

	assert.Equal(t, "Inception (Director's Cut)", updated.MovieName)
	assert.Equal(t, "160 min", updated.Duration)
	assert.NotEqual(t, movie.ImageName, updated.ImageName)
	assert.NotEqual(t, movie.VideoName, updated.VideoName)
	assert.Equal(t, "image/png", updated.ImageType)
	assert.Equal(t, "video/webm", updated.VideoType)
	assert.Equal(t, []byte("new-poster"), updated.ImageData)

	keys := f.objects.Keys()
	sort.Strings(keys)
	assert.Equal(t, []string{"images/" + updated.ImageName, "videos/" + updated.VideoName}, keys)

	stored, err := f.svc.Get(ctx, movie.ID)
	require.NoError(t, err)
	assert.Equal(t, "Inception (Director's Cut)", stored.MovieName)
	assert.Equal(t, updated.VideoName, stored.VideoName)
}

func TestUpdateRequiresBothFiles(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	movie, err := f.svc.Upload(ctx, "elcin", inception(), poster(), trailer())
	require.NoError(t, err)

	meta := inception()
	meta.Country = "UK"

	tests := map[string]struct {
		image media.Blob
		video media.Blob
	}{
		"no files":   {},
		"image only": {image: poster()},
		"video only": {video: trailer()},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.Update(ctx, movie.ID, meta, tc.image, tc.video)
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}

	stored, err := f.svc.Get(ctx, movie.ID)
	require.NoError(t, err)
	assert.Equal(t, "USA", stored.Country, "rejected updates leave the record untouched")
	assert.Equal(t, movie.ImageName, stored.ImageName)
	assert.Equal(t, movie.VideoName, stored.VideoName)
	assert.Len(t, f.objects.Keys(), 2)
}

func TestUpdateMissingMovie(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Update(context.Background(), "missing", inception(), poster(), trailer())
	assert.ErrorIs(t, err, apperr.ErrMovieNotFound)
	assert.Empty(t, f.objects.Keys())
}

func TestUpdateWithoutOwnershipLink(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	movie, err := f.svc.Upload(ctx, "elcin", inception(), poster(), trailer())
	require.NoError(t, err)
	delete(f.movies.owners, movie.ID)

	meta := inception()
	meta.Country = "UK"
	_, err = f.svc.Update(ctx, movie.ID, meta, poster(), trailer())
	assert.ErrorIs(t, err, apperr.ErrOwnershipLinkMissing)

	stored, err := f.svc.Get(ctx, movie.ID)
	require.NoError(t, err)
	assert.Equal(t, "UK", stored.Country, "the record is saved before the link check")
	assert.NotEqual(t, movie.VideoName, stored.VideoName)
}

func TestVideoMissingAsset(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	movie, err := f.svc.Upload(ctx, "elcin", inception(), poster(), trailer())
	require.NoError(t, err)
	require.NoError(t, f.objects.Delete(ctx, "videos/"+movie.VideoName))

	_, _, err = f.svc.Video(ctx, movie.ID)
	assert.ErrorIs(t, err, apperr.ErrAssetNotFound)
}
