package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/goodmovies/internal/domain"
)

// RatingsRepository provides helpers for user ratings.
type RatingsRepository struct {
	pool *pgxpool.Pool
}

// RatingUpsertParams captures the payload required to upsert a rating.
type RatingUpsertParams struct {
	UserID  string
	MovieID string
	Value   int
}

// ListByUser returns the ratings of a user in the order they were first recorded.
func (r *RatingsRepository) ListByUser(ctx context.Context, userID string) ([]domain.Rating, error) {
	const query = `
        SELECT movie_id, rating
        FROM ratings
        WHERE user_id = $1
        ORDER BY created_at, movie_id
    `
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list ratings: %w", err)
	}
	defer rows.Close()

	ratings := make([]domain.Rating, 0)
	for rows.Next() {
		var rating domain.Rating
		if err := rows.Scan(&rating.MovieID, &rating.Rating); err != nil {
			return nil, err
		}
		ratings = append(ratings, rating)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ratings, nil
}

// Upsert inserts or updates a rating and indicates whether it was newly created.
// Updating keeps the original created_at so the user's rating order is stable.
func (r *RatingsRepository) Upsert(ctx context.Context, params RatingUpsertParams) (domain.StoredRating, bool, error) {
	const query = `
        INSERT INTO ratings (user_id, movie_id, rating)
        VALUES ($1,$2,$3)
        ON CONFLICT (user_id, movie_id)
        DO UPDATE SET rating = EXCLUDED.rating, updated_at = now()
        RETURNING user_id, movie_id, rating, created_at, updated_at, (xmax = 0) AS inserted
    `

	var rating domain.StoredRating
	var inserted bool
	err := r.pool.QueryRow(ctx, query, params.UserID, params.MovieID, params.Value).Scan(
		&rating.UserID,
		&rating.MovieID,
		&rating.Value,
		&rating.CreatedAt,
		&rating.UpdatedAt,
		&inserted,
	)
	if err != nil {
		return domain.StoredRating{}, false, err
	}
	return rating, inserted, nil
}

// Get retrieves the rating a user gave to a movie.
func (r *RatingsRepository) Get(ctx context.Context, userID, movieID string) (domain.StoredRating, error) {
	const query = `
        SELECT user_id, movie_id, rating, created_at, updated_at
        FROM ratings
        WHERE user_id = $1 AND movie_id = $2
    `
	var rating domain.StoredRating
	err := r.pool.QueryRow(ctx, query, userID, movieID).Scan(
		&rating.UserID,
		&rating.MovieID,
		&rating.Value,
		&rating.CreatedAt,
		&rating.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.StoredRating{}, ErrNotFound
		}
		return domain.StoredRating{}, err
	}
	return rating, nil
}

// Delete removes the rating a user gave to a movie.
func (r *RatingsRepository) Delete(ctx context.Context, userID, movieID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM ratings WHERE user_id = $1 AND movie_id = $2`, userID, movieID)
	if err != nil {
		return fmt.Errorf("delete rating: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
