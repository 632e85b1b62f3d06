package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/bestflix/backend/internal/models"
	"github.com/bestflix/backend/internal/repositories"
)

const movieColumns = `m.id, m.movie_name, m.country, m.release_date, m.casts, m.duration, m.about, m.category,
		m.image_name, m.image_type, m.image_data, m.video_name, m.video_type, m.video_path, m.created_at, m.updated_at`

// MovieRepository implements repositories.MovieRepository on SQLite.
type MovieRepository struct {
	db *sql.DB
}

// Create inserts the movie and its ownership link in one transaction.
func (r *MovieRepository) Create(ctx context.Context, movie models.Movie, ownerID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create movie: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO movies (id, movie_name, country, release_date, casts, duration, about, category,
			image_name, image_type, image_data, video_name, video_type, video_path, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, movie.ID, movie.MovieName, movie.Country, dateParam(movie.ReleaseDate), movie.Casts, movie.Duration,
		movie.About, movie.Category, movie.ImageName, movie.ImageType, movie.ImageData, movie.VideoName,
		movie.VideoType, movie.VideoPath, movie.CreatedAt.UTC(), movie.UpdatedAt.UTC())
	if err != nil {
		if mapped := translateError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("insert movie: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO users_movies (id, user_id, movie_id) VALUES (?, ?, ?)
	`, uuid.NewString(), ownerID, movie.ID)
	if err != nil {
		if mapped := translateError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("insert movie ownership: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create movie: %w", err)
	}
	return nil
}

// List returns every movie ordered by upload time.
func (r *MovieRepository) List(ctx context.Context) ([]models.Movie, error) {
	return r.query(ctx, `SELECT `+movieColumns+` FROM movies m ORDER BY m.created_at, m.id`)
}

// ListByOwner returns the movies linked to userID.
func (r *MovieRepository) ListByOwner(ctx context.Context, userID string) ([]models.Movie, error) {
	return r.query(ctx, `
		SELECT `+movieColumns+`
		FROM movies m
		JOIN users_movies um ON um.movie_id = m.id
		WHERE um.user_id = ?
		ORDER BY m.created_at, m.id
	`, userID)
}

func (r *MovieRepository) query(ctx context.Context, query string, args ...any) ([]models.Movie, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query movies: %w", err)
	}
	defer rows.Close()

	var movies []models.Movie
	for rows.Next() {
		movie, err := scanMovie(rows)
		if err != nil {
			return nil, err
		}
		movies = append(movies, movie)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate movies: %w", err)
	}
	return movies, nil
}

// FindByID fetches a movie by identifier.
func (r *MovieRepository) FindByID(ctx context.Context, id string) (models.Movie, error) {
	movie, err := scanMovie(r.db.QueryRowContext(ctx, `SELECT `+movieColumns+` FROM movies m WHERE m.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Movie{}, repositories.ErrNotFound
		}
		return models.Movie{}, err
	}
	return movie, nil
}

// Update overwrites every mutable column of the movie.
func (r *MovieRepository) Update(ctx context.Context, movie models.Movie) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE movies
		SET movie_name = ?, country = ?, release_date = ?, casts = ?, duration = ?, about = ?, category = ?,
			image_name = ?, image_type = ?, image_data = ?, video_name = ?, video_type = ?, video_path = ?,
			updated_at = ?
		WHERE id = ?
	`, movie.MovieName, movie.Country, dateParam(movie.ReleaseDate), movie.Casts, movie.Duration, movie.About,
		movie.Category, movie.ImageName, movie.ImageType, movie.ImageData, movie.VideoName, movie.VideoType,
		movie.VideoPath, movie.UpdatedAt.UTC(), movie.ID)
	if err != nil {
		return fmt.Errorf("update movie: %w", err)
	}
	return requireRow(res)
}

// Delete removes the ownership links and then the movie in one transaction.
func (r *MovieRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete movie: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM users_movies WHERE movie_id = ?`, id); err != nil {
		return fmt.Errorf("delete movie ownership: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM movies WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete movie: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete movie: %w", err)
	}
	return nil
}

// FindOwnership returns the ownership link of a movie.
func (r *MovieRepository) FindOwnership(ctx context.Context, movieID string) (models.Ownership, error) {
	var link models.Ownership
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, movie_id FROM users_movies WHERE movie_id = ?
	`, movieID).Scan(&link.ID, &link.UserID, &link.MovieID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Ownership{}, repositories.ErrNotFound
		}
		return models.Ownership{}, fmt.Errorf("select movie ownership: %w", err)
	}
	return link, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMovie(row scanner) (models.Movie, error) {
	var (
		movie   models.Movie
		release sql.NullString
	)
	err := row.Scan(&movie.ID, &movie.MovieName, &movie.Country, &release, &movie.Casts, &movie.Duration,
		&movie.About, &movie.Category, &movie.ImageName, &movie.ImageType, &movie.ImageData, &movie.VideoName,
		&movie.VideoType, &movie.VideoPath, &movie.CreatedAt, &movie.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Movie{}, err
		}
		return models.Movie{}, fmt.Errorf("scan movie: %w", err)
	}
	if release.Valid {
		date, err := models.ParseDate(release.String)
		if err != nil {
			return models.Movie{}, fmt.Errorf("parse release date %q: %w", release.String, err)
		}
		movie.ReleaseDate = date
	}
	return movie, nil
}

func dateParam(d models.Date) sql.NullString {
	return sql.NullString{String: d.String(), Valid: !d.IsZero()}
}
