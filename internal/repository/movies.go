package repository

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/goodmovies/internal/domain"
)

// MoviesRepository provides persistence helpers for movie metadata.
type MoviesRepository struct {
	pool *pgxpool.Pool
}

const movieColumns = `
    movie_id,
    name,
    overview,
    created_at,
    updated_at
`

// MovieUpsertParams bundles the fields required to store a movie.
type MovieUpsertParams struct {
	MovieID  string
	Name     string
	Overview *string
}

// MovieListFilters encapsulates pagination options.
type MovieListFilters struct {
	Limit  int
	Cursor *MovieCursor
}

// MovieCursor allows stable pagination by created_at/movie_id.
type MovieCursor struct {
	CreatedAt time.Time `json:"createdAt"`
	MovieID   string    `json:"movieId"`
}

// MovieListResult returns the paginated payload.
type MovieListResult struct {
	Items      []domain.Movie
	NextCursor *string
}

// Upsert inserts or replaces a movie and reports whether it was newly created.
func (r *MoviesRepository) Upsert(ctx context.Context, params MovieUpsertParams) (domain.Movie, bool, error) {
	query := fmt.Sprintf(`
        INSERT INTO movies (movie_id, name, overview)
        VALUES ($1,$2,$3)
        ON CONFLICT (movie_id)
        DO UPDATE SET name = EXCLUDED.name, overview = EXCLUDED.overview, updated_at = now()
        RETURNING %s, (xmax = 0) AS inserted
    `, movieColumns)

	var (
		movie    domain.Movie
		overview *string
		inserted bool
	)
	err := r.pool.QueryRow(ctx, query, params.MovieID, params.Name, params.Overview).Scan(
		&movie.MovieID,
		&movie.Name,
		&overview,
		&movie.CreatedAt,
		&movie.UpdatedAt,
		&inserted,
	)
	if err != nil {
		return domain.Movie{}, false, err
	}
	if overview != nil {
		movie.Overview = *overview
	}
	return movie, inserted, nil
}

// Get fetches a movie by its identifier.
func (r *MoviesRepository) Get(ctx context.Context, movieID string) (domain.Movie, error) {
	query := fmt.Sprintf(`SELECT %s FROM movies WHERE movie_id = $1`, movieColumns)
	movie, err := scanMovie(r.pool.QueryRow(ctx, query, movieID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Movie{}, ErrNotFound
		}
		return domain.Movie{}, err
	}
	return movie, nil
}

// List returns movies newest first, one page at a time.
func (r *MoviesRepository) List(ctx context.Context, filters MovieListFilters) (MovieListResult, error) {
	if filters.Limit <= 0 {
		filters.Limit = 20
	} else if filters.Limit > 100 {
		filters.Limit = 100
	}

	args := make([]interface{}, 0, 2)
	queryBuilder := strings.Builder{}
	queryBuilder.WriteString("SELECT ")
	queryBuilder.WriteString(movieColumns)
	queryBuilder.WriteString(" FROM movies")
	if filters.Cursor != nil {
		args = append(args, filters.Cursor.CreatedAt, filters.Cursor.MovieID)
		queryBuilder.WriteString(" WHERE (created_at, movie_id) < ($1, $2)")
	}
	queryBuilder.WriteString(" ORDER BY created_at DESC, movie_id DESC")
	queryBuilder.WriteString(fmt.Sprintf(" LIMIT %d", filters.Limit))

	rows, err := r.pool.Query(ctx, queryBuilder.String(), args...)
	if err != nil {
		return MovieListResult{}, err
	}
	defer rows.Close()

	items := make([]domain.Movie, 0)
	for rows.Next() {
		movie, err := scanMovie(rows)
		if err != nil {
			return MovieListResult{}, err
		}
		items = append(items, movie)
	}
	if err := rows.Err(); err != nil {
		return MovieListResult{}, err
	}

	var nextCursor *string
	if len(items) == filters.Limit {
		last := items[len(items)-1]
		token, err := encodeCursor(MovieCursor{CreatedAt: last.CreatedAt, MovieID: last.MovieID})
		if err != nil {
			return MovieListResult{}, err
		}
		nextCursor = &token
	}

	return MovieListResult{Items: items, NextCursor: nextCursor}, nil
}

func scanMovie(row pgx.Row) (domain.Movie, error) {
	var (
		movie    domain.Movie
		overview *string
	)
	err := row.Scan(
		&movie.MovieID,
		&movie.Name,
		&overview,
		&movie.CreatedAt,
		&movie.UpdatedAt,
	)
	if err != nil {
		return domain.Movie{}, err
	}
	if overview != nil {
		movie.Overview = *overview
	}
	return movie, nil
}

func encodeCursor(c MovieCursor) (string, error) {
	payload, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(payload), nil
}

// DecodeCursor parses a cursor token into a MovieCursor.
func DecodeCursor(token string) (*MovieCursor, error) {
	if token == "" {
		return nil, nil
	}
	data, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor: %w", err)
	}
	var cursor MovieCursor
	if err := json.Unmarshal(data, &cursor); err != nil {
		return nil, fmt.Errorf("invalid cursor payload: %w", err)
	}
	return &cursor, nil
}
