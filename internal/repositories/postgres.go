package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/bestflix/backend/internal/db"
	"github.com/bestflix/backend/internal/models"
)

// translatePgError maps constraint violations onto the repository sentinels.
func translatePgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return ErrConflict
		case "23503":
			return ErrNotFound
		}
	}
	return nil
}

// PostgresUserRepository provides PostgreSQL-backed persistence for users.
type PostgresUserRepository struct {
	pool db.Pool
}

// NewPostgresUserRepository constructs a user repository backed by PostgreSQL.
func NewPostgresUserRepository(pool db.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// Create persists a new user record.
func (r *PostgresUserRepository) Create(ctx context.Context, user models.User) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO users (id, username, email, password_hash, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, user.ID, user.Username, user.Email, user.Password, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if mapped := translatePgError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// FindByID fetches a user by identifier.
func (r *PostgresUserRepository) FindByID(ctx context.Context, id string) (models.User, error) {
	return r.findOne(ctx, "id", id)
}

// FindByUsername fetches a user by their unique username.
func (r *PostgresUserRepository) FindByUsername(ctx context.Context, username string) (models.User, error) {
	return r.findOne(ctx, "username", username)
}

// FindByEmail fetches a user by their email address.
func (r *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	return r.findOne(ctx, "email", email)
}

func (r *PostgresUserRepository) findOne(ctx context.Context, column, value string) (models.User, error) {
	if column == "id" {
		if _, err := uuid.Parse(value); err != nil {
			return models.User{}, ErrNotFound
		}
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	// column is always one of the fixed identifiers passed by the Find methods.
	row := conn.QueryRow(ctx, `
        SELECT id, username, email, password_hash, created_at, updated_at
        FROM users
        WHERE `+column+` = $1
    `, value)

	var user models.User
	if err := row.Scan(&user.ID, &user.Username, &user.Email, &user.Password, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("select user by %s: %w", column, err)
	}

	return user, nil
}

// UpdatePassword replaces the stored password hash of a user.
func (r *PostgresUserRepository) UpdatePassword(ctx context.Context, userID, passwordHash string, updatedAt time.Time) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE users
        SET password_hash = $2, updated_at = $3
        WHERE id = $1
    `, userID, passwordHash, updatedAt)
	if err != nil {
		return fmt.Errorf("update user password: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

const movieColumns = `m.id, m.movie_name, m.country, m.release_date, m.casts, m.duration, m.about, m.category,
        m.image_name, m.image_type, m.image_data, m.video_name, m.video_type, m.video_path, m.created_at, m.updated_at`

// PostgresMovieRepository provides PostgreSQL-backed persistence for movies and ownership links.
type PostgresMovieRepository struct {
	pool db.Pool
}

// NewPostgresMovieRepository constructs a movie repository backed by PostgreSQL.
func NewPostgresMovieRepository(pool db.Pool) *PostgresMovieRepository {
	return &PostgresMovieRepository{pool: pool}
}

// Create inserts the movie and its ownership link atomically.
func (r *PostgresMovieRepository) Create(ctx context.Context, movie models.Movie, ownerID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create movie: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
        INSERT INTO movies (id, movie_name, country, release_date, casts, duration, about, category,
            image_name, image_type, image_data, video_name, video_type, video_path, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
    `, movie.ID, movie.MovieName, movie.Country, dateParam(movie.ReleaseDate), movie.Casts, movie.Duration,
		movie.About, movie.Category, movie.ImageName, movie.ImageType, movie.ImageData, movie.VideoName,
		movie.VideoType, movie.VideoPath, movie.CreatedAt, movie.UpdatedAt)
	if err != nil {
		if mapped := translatePgError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("insert movie: %w", err)
	}

	_, err = tx.Exec(ctx, `
        INSERT INTO users_movies (id, user_id, movie_id)
        VALUES ($1, $2, $3)
    `, uuid.NewString(), ownerID, movie.ID)
	if err != nil {
		if mapped := translatePgError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("insert movie ownership: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit create movie: %w", err)
	}
	return nil
}

// List returns every movie ordered by upload time.
func (r *PostgresMovieRepository) List(ctx context.Context) ([]models.Movie, error) {
	return r.query(ctx, `
        SELECT `+movieColumns+`
        FROM movies m
        ORDER BY m.created_at, m.id
    `)
}

// ListByOwner returns the movies linked to userID.
func (r *PostgresMovieRepository) ListByOwner(ctx context.Context, userID string) ([]models.Movie, error) {
	return r.query(ctx, `
        SELECT `+movieColumns+`
        FROM movies m
        JOIN users_movies um ON um.movie_id = m.id
        WHERE um.user_id = $1
        ORDER BY m.created_at, m.id
    `, userID)
}

func (r *PostgresMovieRepository) query(ctx context.Context, sql string, args ...any) ([]models.Movie, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query movies: %w", err)
	}
	defer rows.Close()

	var movies []models.Movie
	for rows.Next() {
		movie, err := scanMovie(rows)
		if err != nil {
			return nil, fmt.Errorf("scan movie: %w", err)
		}
		movies = append(movies, movie)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate movies: %w", err)
	}

	return movies, nil
}

// FindByID fetches a movie by identifier.
func (r *PostgresMovieRepository) FindByID(ctx context.Context, id string) (models.Movie, error) {
	if _, err := uuid.Parse(id); err != nil {
		return models.Movie{}, ErrNotFound
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Movie{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	movie, err := scanMovie(conn.QueryRow(ctx, `
        SELECT `+movieColumns+`
        FROM movies m
        WHERE m.id = $1
    `, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Movie{}, ErrNotFound
		}
		return models.Movie{}, fmt.Errorf("select movie: %w", err)
	}

	return movie, nil
}

// Update overwrites every mutable column of the movie.
func (r *PostgresMovieRepository) Update(ctx context.Context, movie models.Movie) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE movies
        SET movie_name = $2, country = $3, release_date = $4, casts = $5, duration = $6, about = $7,
            category = $8, image_name = $9, image_type = $10, image_data = $11, video_name = $12,
            video_type = $13, video_path = $14, updated_at = $15
        WHERE id = $1
    `, movie.ID, movie.MovieName, movie.Country, dateParam(movie.ReleaseDate), movie.Casts, movie.Duration,
		movie.About, movie.Category, movie.ImageName, movie.ImageType, movie.ImageData, movie.VideoName,
		movie.VideoType, movie.VideoPath, movie.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update movie: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete removes the ownership links and then the movie atomically.
func (r *PostgresMovieRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return nil
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delete movie: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM users_movies WHERE movie_id = $1`, id); err != nil {
		return fmt.Errorf("delete movie ownership: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM movies WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete movie: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit delete movie: %w", err)
	}
	return nil
}

// FindOwnership returns the ownership link of a movie.
func (r *PostgresMovieRepository) FindOwnership(ctx context.Context, movieID string) (models.Ownership, error) {
	if _, err := uuid.Parse(movieID); err != nil {
		return models.Ownership{}, ErrNotFound
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Ownership{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var link models.Ownership
	err = conn.QueryRow(ctx, `
        SELECT id, user_id, movie_id
        FROM users_movies
        WHERE movie_id = $1
    `, movieID).Scan(&link.ID, &link.UserID, &link.MovieID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Ownership{}, ErrNotFound
		}
		return models.Ownership{}, fmt.Errorf("select movie ownership: %w", err)
	}

	return link, nil
}

func scanMovie(row pgx.Row) (models.Movie, error) {
	var (
		movie   models.Movie
		release pgtype.Date
	)
	err := row.Scan(&movie.ID, &movie.MovieName, &movie.Country, &release, &movie.Casts, &movie.Duration,
		&movie.About, &movie.Category, &movie.ImageName, &movie.ImageType, &movie.ImageData, &movie.VideoName,
		&movie.VideoType, &movie.VideoPath, &movie.CreatedAt, &movie.UpdatedAt)
	if err != nil {
		return models.Movie{}, err
	}
	if release.Valid {
		movie.ReleaseDate = models.NewDate(release.Time)
	}
	return movie, nil
}

func dateParam(d models.Date) pgtype.Date {
	return pgtype.Date{Time: d.Time, Valid: !d.IsZero()}
}
