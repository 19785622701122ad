package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Clark-Hu/goodmovies/internal/catalog"
	"github.com/Clark-Hu/goodmovies/internal/config"
	"github.com/Clark-Hu/goodmovies/internal/discovery"
	"github.com/Clark-Hu/goodmovies/internal/domain"
	"github.com/Clark-Hu/goodmovies/internal/upstream"
)

type fakeCatalog struct {
	items []domain.CatalogItem
	err   error
	users []string
}

func (f *fakeCatalog) GetCatalog(_ context.Context, userID string) ([]domain.CatalogItem, error) {
	f.users = append(f.users, userID)
	return f.items, f.err
}

func catalogConfig() config.Config {
	return config.Config{Role: config.RoleCatalog, ServiceName: "movie-catalog-service"}
}

func TestHandleGetCatalog(t *testing.T) {
	fake := &fakeCatalog{items: []domain.CatalogItem{
		{Name: "Sholay", Description: "Description", Rating: 4},
	}}
	srv := New(catalogConfig(), Deps{Catalog: fake}, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/catalog/user%201", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `[{"name":"Sholay","description":"Description","rating":4}]`, rec.Body.String())
	assert.Equal(t, []string{"user 1"}, fake.users)
}

func TestHandleGetCatalog_UserIDIsNotRewritten(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		userID string
	}{
		{"escaped space", "/catalog/user%201", "user 1"},
		{"escaped percent", "/catalog/50%25", "50%"},
		{"surrounding spaces", "/catalog/%20x%20", " x "},
		{"escaped slash", "/catalog/a%2Fb", "a/b"},
		{"plain", "/catalog/42", "42"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeCatalog{items: []domain.CatalogItem{}}
			srv := New(catalogConfig(), Deps{Catalog: fake}, nil)

			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, []string{tt.userID}, fake.users)
		})
	}
}

func TestHandleGetCatalog_EmptyIsArray(t *testing.T) {
	srv := New(catalogConfig(), Deps{Catalog: &fakeCatalog{items: []domain.CatalogItem{}}}, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/catalog/7", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestHandleGetCatalog_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{
			name:   "unknown user",
			err:    fmt.Errorf("%w: user 1: %w", catalog.ErrRatingsUnavailable, upstream.ErrNotFound),
			status: http.StatusNotFound,
			code:   "NOT_FOUND",
		},
		{
			name:   "movie not found is a gateway error",
			err:    fmt.Errorf("%w: movie 1: %w", catalog.ErrMovieUnavailable, upstream.ErrNotFound),
			status: http.StatusBadGateway,
			code:   "UPSTREAM_ERROR",
		},
		{
			name:   "timeout",
			err:    fmt.Errorf("%w: movie 1: %w", catalog.ErrMovieUnavailable, context.DeadlineExceeded),
			status: http.StatusGatewayTimeout,
			code:   "UPSTREAM_TIMEOUT",
		},
		{
			name:   "empty ratings body",
			err:    fmt.Errorf("%w: user 1: %w", catalog.ErrRatingsUnavailable, upstream.ErrEmptyResponse),
			status: http.StatusBadGateway,
			code:   "UPSTREAM_ERROR",
		},
		{
			name:   "anything else",
			err:    errors.New("boom"),
			status: http.StatusBadGateway,
			code:   "UPSTREAM_ERROR",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := New(catalogConfig(), Deps{Catalog: &fakeCatalog{err: tt.err}}, nil)

			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/catalog/1", nil))

			require.Equal(t, tt.status, rec.Code)
			var body errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body.Code)
		})
	}
}

// newFakeProviders serves both provider contracts and counts movie lookups.
func newFakeProviders(t *testing.T, movieCalls *atomic.Int32) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	r.Get("/ratingsdata/user/{userId}", func(w http.ResponseWriter, r *http.Request) {
		switch chi.URLParam(r, "userId") {
		case "1":
			_, _ = w.Write([]byte(`{"userId":"1","userRating":[{"movieId":"100","rating":4},{"movieId":"200","rating":3}]}`))
		case "2":
			_, _ = w.Write([]byte(`{"userId":"2","userRating":[{"movieId":"100","rating":5},{"movieId":"404","rating":1}]}`))
		case "down":
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			_, _ = w.Write([]byte(`{"userId":"x","userRating":[]}`))
		}
	})
	r.Get("/movies/{movieId}", func(w http.ResponseWriter, r *http.Request) {
		movieCalls.Add(1)
		switch chi.URLParam(r, "movieId") {
		case "100":
			_, _ = w.Write([]byte(`{"movieId":"100","name":"Sholay"}`))
		case "200":
			_, _ = w.Write([]byte(`{"movieId":"200","name":"Dil"}`))
		default:
			http.NotFound(w, r)
		}
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestCatalogEndToEnd(t *testing.T) {
	var movieCalls atomic.Int32
	providers := newFakeProviders(t, &movieCalls)
	resolver := discovery.NewStatic(map[string]string{
		config.DefaultRatingsService:   providers.URL,
		config.DefaultMovieInfoService: providers.URL,
	})
	ratings := upstream.NewRatingsClient(config.DefaultRatingsService, resolver, providers.Client(), nil)
	movies := upstream.NewMovieClient(config.DefaultMovieInfoService, resolver, providers.Client(), nil)

	tests := []struct {
		name       string
		policy     catalog.Policy
		userID     string
		status     int
		body       string
		movieCalls int32
	}{
		{
			name:       "scenario",
			policy:     catalog.FailFast,
			userID:     "1",
			status:     http.StatusOK,
			body:       `[{"name":"Sholay","description":"Description","rating":4},{"name":"Dil","description":"Description","rating":3}]`,
			movieCalls: 2,
		},
		{
			name:       "no ratings",
			policy:     catalog.FailFast,
			userID:     "new",
			status:     http.StatusOK,
			body:       `[]`,
			movieCalls: 0,
		},
		{
			name:       "ratings provider down",
			policy:     catalog.FailFast,
			userID:     "down",
			status:     http.StatusBadGateway,
			movieCalls: 0,
		},
		{
			name:   "missing movie under partial policy",
			policy: catalog.Partial,
			userID: "2",
			status: http.StatusOK,
			body: `[{"name":"Sholay","description":"Description","rating":5},` +
				`{"name":"","description":"Description","rating":1,"unavailable":true}]`,
			movieCalls: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			movieCalls.Store(0)
			agg := catalog.New(ratings, movies, catalog.Options{Concurrency: 2, Policy: tt.policy})
			srv := New(catalogConfig(), Deps{Catalog: agg}, nil)

			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/catalog/"+tt.userID, nil))

			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.body != "" {
				assert.JSONEq(t, tt.body, rec.Body.String())
			}
			assert.Equal(t, tt.movieCalls, movieCalls.Load())
		})
	}
}

func TestCatalogEndToEnd_FailFastMissingMovie(t *testing.T) {
	var movieCalls atomic.Int32
	providers := newFakeProviders(t, &movieCalls)
	resolver := discovery.NewStatic(map[string]string{"r": providers.URL, "m": providers.URL})
	agg := catalog.New(
		upstream.NewRatingsClient("r", resolver, providers.Client(), nil),
		upstream.NewMovieClient("m", resolver, providers.Client(), nil),
		catalog.Options{Concurrency: 1},
	)
	srv := New(catalogConfig(), Deps{Catalog: agg}, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/catalog/2", nil))

	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.NotContains(t, rec.Body.String(), "Sholay")
}

func TestCatalogEndToEnd_SlowProviderTimesOut(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/ratingsdata/user/{userId}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"userId":"1","userRating":[{"movieId":"100","rating":4}]}`))
	})
	r.Get("/movies/{movieId}", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
			return
		}
		_, _ = w.Write([]byte(`{"movieId":"100","name":"Sholay"}`))
	})
	providers := httptest.NewServer(r)
	t.Cleanup(providers.Close)

	resolver := discovery.NewStatic(map[string]string{"r": providers.URL, "m": providers.URL})
	client := upstream.NewHTTPClient(200 * time.Millisecond)
	agg := catalog.New(
		upstream.NewRatingsClient("r", resolver, client, nil),
		upstream.NewMovieClient("m", resolver, client, nil),
		catalog.Options{},
	)
	srv := New(catalogConfig(), Deps{Catalog: agg}, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/catalog/1", nil))

	require.Equal(t, http.StatusGatewayTimeout, rec.Code, rec.Body.String())
	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "UPSTREAM_TIMEOUT", body.Code)
}
