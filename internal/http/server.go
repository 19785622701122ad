package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Clark-Hu/goodmovies/internal/config"
	"github.com/Clark-Hu/goodmovies/internal/domain"
	"github.com/Clark-Hu/goodmovies/internal/logging"
	"github.com/Clark-Hu/goodmovies/internal/repository"
	"github.com/Clark-Hu/goodmovies/internal/store"
)

// CatalogService builds the catalog of a user.
type CatalogService interface {
	GetCatalog(ctx context.Context, userID string) ([]domain.CatalogItem, error)
}

// Deps are the collaborators a role needs; fields unused by the role may be nil.
type Deps struct {
	Store   *store.Store
	Repo    *repository.Repository
	Catalog CatalogService
}

// Server wires HTTP routing, middleware, and handlers.
type Server struct {
	cfg     config.Config
	store   *store.Store
	repo    *repository.Repository
	catalog CatalogService
	logger  *zap.Logger
	router  chi.Router
	httpSrv *http.Server
}

// New constructs the HTTP server with base middleware and the routes of cfg.Role.
func New(cfg config.Config, deps Deps, logger *zap.Logger) *Server {
	logger = logging.OrNop(logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	if cfg.RateLimitRPS > 0 {
		r.Use(rateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
	}

	s := &Server{
		cfg:     cfg,
		store:   deps.Store,
		repo:    deps.Repo,
		catalog: deps.Catalog,
		logger:  logger,
		router:  r,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.Get("/", s.handleGreeting)
	s.router.Get("/healthz", s.handleHealthz)

	switch s.cfg.Role {
	case config.RoleCatalog:
		s.router.Get("/catalog/{userId}", s.handleGetCatalog)
	case config.RoleRatings:
		s.router.Route("/ratingsdata/user/{userId}", func(r chi.Router) {
			r.Get("/", s.handleGetUserRatings)
			r.Put("/movies/{movieId}", s.handlePutRating)
			r.Delete("/movies/{movieId}", s.handleDeleteRating)
		})
	case config.RoleMovieInfo:
		s.router.Route("/movies", func(r chi.Router) {
			r.Get("/", s.handleListMovies)
			r.Get("/{movieId}", s.handleGetMovie)
			r.Put("/{movieId}", s.handlePutMovie)
		})
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start boots the HTTP server and blocks until ctx is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:         ":" + s.cfg.Port,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.cfg.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(s.cfg.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.IdleTimeoutSecs) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.httpSrv.Addr), zap.String("role", string(s.cfg.Role)))
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpSrv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleGreeting(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	greeting := s.cfg.Greeting
	if greeting == "" {
		greeting = s.cfg.ServiceName
	}
	_, _ = w.Write([]byte(greeting))
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if s.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.store.HealthCheck(ctx); err != nil {
			s.logger.Warn("health check failed", zap.Error(err))
			s.respondError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "Database unreachable")
			return
		}
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
