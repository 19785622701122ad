package upstream

import (
	"context"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/Clark-Hu/goodmovies/internal/discovery"
	"github.com/Clark-Hu/goodmovies/internal/domain"
)

// MovieClient fetches movie metadata by id.
type MovieClient interface {
	Movie(ctx context.Context, movieID string) (domain.Movie, error)
}

// HTTPMovieClient implements MovieClient against the movie info service.
type HTTPMovieClient struct {
	getter jsonGetter
}

// NewMovieClient constructs a movie info client for the logical service name.
func NewMovieClient(service string, resolver discovery.Resolver, client *http.Client, logger *zap.Logger) *HTTPMovieClient {
	return &HTTPMovieClient{getter: newJSONGetter(service, resolver, client, logger)}
}

// Movie calls GET /movies/{movieId}.
func (c *HTTPMovieClient) Movie(ctx context.Context, movieID string) (domain.Movie, error) {
	var movie domain.Movie
	if err := c.getter.get(ctx, "/movies/"+url.PathEscape(movieID), &movie); err != nil {
		return domain.Movie{}, err
	}
	return movie, nil
}
