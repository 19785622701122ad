// Package catalog merges a user's ratings with movie metadata from the movie info service.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Clark-Hu/goodmovies/internal/domain"
	"github.com/Clark-Hu/goodmovies/internal/logging"
	"github.com/Clark-Hu/goodmovies/internal/upstream"
)

// Policy decides what happens when a single movie lookup fails.
type Policy string

const (
	// FailFast aborts the whole catalog on the first failed movie lookup.
	FailFast Policy = "fail-fast"
	// Partial keeps going and marks items whose lookup failed as unavailable.
	Partial Policy = "partial"
)

var (
	// ErrRatingsUnavailable wraps failures of the ratings lookup.
	ErrRatingsUnavailable = errors.New("catalog: ratings unavailable")
	// ErrMovieUnavailable wraps failures of a movie lookup under FailFast.
	ErrMovieUnavailable = errors.New("catalog: movie unavailable")
)

// DefaultConcurrency bounds the number of in-flight movie lookups per request.
const DefaultConcurrency = 8

// Options tunes an Aggregator.
type Options struct {
	Concurrency int
	Policy      Policy
	Logger      *zap.Logger
}

// Aggregator builds catalogs from the ratings and movie info services.
type Aggregator struct {
	ratings     upstream.RatingsClient
	movies      upstream.MovieClient
	concurrency int
	policy      Policy
	logger      *zap.Logger
}

// New constructs an Aggregator. Zero options select DefaultConcurrency and FailFast.
func New(ratings upstream.RatingsClient, movies upstream.MovieClient, opts Options) *Aggregator {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Policy == "" {
		opts.Policy = FailFast
	}
	return &Aggregator{
		ratings:     ratings,
		movies:      movies,
		concurrency: opts.Concurrency,
		policy:      opts.Policy,
		logger:      logging.OrNop(opts.Logger),
	}
}

// GetCatalog returns one item per rating of userID, in the order the ratings service returned them.
func (a *Aggregator) GetCatalog(ctx context.Context, userID string) ([]domain.CatalogItem, error) {
	userRating, err := a.ratings.UserRating(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: user %s: %w", ErrRatingsUnavailable, userID, err)
	}

	ratings := userRating.UserRating
	items := make([]domain.CatalogItem, len(ratings))
	if len(ratings) == 0 {
		return items, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, rating := range ratings {
		g.Go(func() error {
			movie, err := a.movies.Movie(gctx, rating.MovieID)
			if err != nil {
				if a.policy == Partial && ctx.Err() == nil {
					a.logger.Warn("movie lookup failed, marking item unavailable",
						zap.String("user_id", userID),
						zap.String("movie_id", rating.MovieID),
						zap.Error(err))
					items[i] = domain.CatalogItem{
						Description: domain.PlaceholderDescription,
						Rating:      rating.Rating,
						Unavailable: true,
					}
					return nil
				}
				return fmt.Errorf("%w: movie %s: %w", ErrMovieUnavailable, rating.MovieID, err)
			}
			items[i] = domain.NewCatalogItem(movie, rating)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return items, nil
}
