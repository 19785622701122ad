// Package app boots the catalog and provider services from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Clark-Hu/goodmovies/internal/catalog"
	"github.com/Clark-Hu/goodmovies/internal/config"
	"github.com/Clark-Hu/goodmovies/internal/discovery"
	httpserver "github.com/Clark-Hu/goodmovies/internal/http"
	"github.com/Clark-Hu/goodmovies/internal/repository"
	"github.com/Clark-Hu/goodmovies/internal/store"
	"github.com/Clark-Hu/goodmovies/internal/upstream"
)

const heartbeatInterval = 1 * time.Second

// Run starts the service described by cfg and blocks until ctx is cancelled.
func Run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	var (
		deps     httpserver.Deps
		registry discovery.Registry
	)

	if cfg.ConsulAddr != "" {
		consulClient, err := discovery.NewConsul(cfg.ConsulAddr)
		if err != nil {
			return err
		}
		registry = consulClient
	}

	switch cfg.Role {
	case config.RoleCatalog:
		deps.Catalog = newAggregator(cfg, registry, logger)
	case config.RoleRatings, config.RoleMovieInfo:
		st, err := openStore(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer st.Close()
		go st.LogStats(ctx, time.Minute)
		deps.Store = st
		deps.Repo = repository.New(st)
	default:
		return fmt.Errorf("unknown role %q", cfg.Role)
	}

	if registry != nil {
		deregister, err := register(ctx, cfg, registry, logger)
		if err != nil {
			return err
		}
		defer deregister()
	}

	server := httpserver.New(cfg, deps, logger)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			serverErrCh <- err
			return
		}
		serverErrCh <- nil
	}()

	var runErr error
	select {
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			runErr = fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Warn("graceful shutdown error", zap.Error(err))
	}
	return runErr
}

func newAggregator(cfg config.Config, registry discovery.Registry, logger *zap.Logger) *catalog.Aggregator {
	var resolver discovery.Resolver = discovery.NewStatic(cfg.ServiceAddrs)
	if r, ok := registry.(discovery.Resolver); ok && len(cfg.ServiceAddrs) == 0 {
		resolver = r
	}

	httpClient := upstream.NewHTTPClient(time.Duration(cfg.UpstreamTimeoutSecs) * time.Second)
	ratings := upstream.NewRatingsClient(cfg.RatingsService, resolver, httpClient, logger)
	movies := upstream.NewMovieClient(cfg.MovieInfoService, resolver, httpClient, logger)

	logger.Info("catalog aggregator configured",
		zap.String("ratings_service", cfg.RatingsService),
		zap.String("movie_info_service", cfg.MovieInfoService),
		zap.Int("concurrency", cfg.FetchConcurrency),
		zap.String("policy", cfg.FailurePolicy))
	return catalog.New(ratings, movies, catalog.Options{
		Concurrency: cfg.FetchConcurrency,
		Policy:      catalog.Policy(cfg.FailurePolicy),
		Logger:      logger.Named("catalog"),
	})
}

func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (*store.Store, error) {
	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	st, err := store.New(dbCtx, cfg.DBURL, store.Options{
		MaxConns:               int32(cfg.DBMaxConns),
		MinConns:               int32(cfg.DBMinConns),
		MaxConnIdleTime:        time.Duration(cfg.DBMaxIdleSecs) * time.Second,
		MaxConnLifetime:        time.Duration(cfg.DBMaxLifeSecs) * time.Second,
		ConnTimeout:            time.Duration(cfg.DBConnTimeoutSecs) * time.Second,
		StatementCacheCapacity: cfg.DBStatementCache,
		Logger:                 logger,
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return st, nil
}

// register announces this instance and keeps its health check green until ctx ends.
func register(ctx context.Context, cfg config.Config, registry discovery.Registry, logger *zap.Logger) (func(), error) {
	hostPort := cfg.AdvertiseAddr
	if hostPort == "" {
		hostPort = net.JoinHostPort("localhost", cfg.Port)
	}
	instanceID := discovery.GenerateInstanceID(cfg.ServiceName)
	if err := registry.Register(ctx, instanceID, cfg.ServiceName, hostPort); err != nil {
		return nil, fmt.Errorf("register %s: %w", cfg.ServiceName, err)
	}
	logger.Info("registered service instance", zap.String("instance_id", instanceID), zap.String("addr", hostPort))

	go discovery.Heartbeat(ctx, registry, instanceID, cfg.ServiceName, heartbeatInterval, func(err error) {
		logger.Warn("failed to report healthy state", zap.Error(err))
	})

	return func() {
		deregCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := registry.Deregister(deregCtx, instanceID, cfg.ServiceName); err != nil {
			logger.Warn("deregister failed", zap.Error(err))
		}
	}, nil
}
