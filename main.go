package main

import (
	"context"
	"log"

	"voice-qa-server/internal/bootstrap"
	"voice-qa-server/internal/config"
	"voice-qa-server/internal/observability"
	"voice-qa-server/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %s", err)
	}

	logger := observability.NewLogger()
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deps, err := bootstrap.Initialize(ctx, cfg, logger)
	if err != nil {
		logger.Fatal(ctx, "failed to initialize dependencies", err)
	}

	srv := server.New(cfg, deps, logger)
	if err := srv.Setup(); err != nil {
		deps.Cleanup()
		logger.Fatal(ctx, "failed to set up router", err)
	}
	if err := srv.Start(ctx); err != nil {
		deps.Cleanup()
		logger.Fatal(ctx, "failed to start server", err)
	}

	if err := srv.WaitForShutdown(ctx); err != nil {
		logger.Error(ctx, "shutdown failed", err)
	}
}
