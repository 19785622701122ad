package upstream

import (
	"context"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/Clark-Hu/goodmovies/internal/discovery"
	"github.com/Clark-Hu/goodmovies/internal/domain"
)

// RatingsClient fetches the ratings of a user.
type RatingsClient interface {
	UserRating(ctx context.Context, userID string) (domain.UserRating, error)
}

// HTTPRatingsClient implements RatingsClient against the ratings data service.
type HTTPRatingsClient struct {
	getter jsonGetter
}

// NewRatingsClient constructs a ratings client for the logical service name.
func NewRatingsClient(service string, resolver discovery.Resolver, client *http.Client, logger *zap.Logger) *HTTPRatingsClient {
	return &HTTPRatingsClient{getter: newJSONGetter(service, resolver, client, logger)}
}

// UserRating calls GET /ratingsdata/user/{userId}.
func (c *HTTPRatingsClient) UserRating(ctx context.Context, userID string) (domain.UserRating, error) {
	var payload *domain.UserRating
	if err := c.getter.get(ctx, "/ratingsdata/user/"+url.PathEscape(userID), &payload); err != nil {
		return domain.UserRating{}, err
	}
	if payload == nil || payload.UserRating == nil {
		return domain.UserRating{}, ErrEmptyResponse
	}
	return *payload, nil
}
