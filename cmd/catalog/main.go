package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/Clark-Hu/goodmovies/internal/app"
	"github.com/Clark-Hu/goodmovies/internal/config"
	"github.com/Clark-Hu/goodmovies/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(config.RoleCatalog)
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger, err := logging.New(cfg.ServiceName, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := app.Run(ctx, cfg, logger); err != nil {
		logger.Fatal("catalog service stopped", zap.Error(err))
	}
}
