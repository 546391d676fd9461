package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pgtask-dev/pgtask"
	"github.com/pgtask-dev/pgtask/internal/config"
	"github.com/pgtask-dev/pgtask/internal/events"
	"github.com/pgtask-dev/pgtask/internal/logger"
	"github.com/pgtask-dev/pgtask/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.LogLevel, os.Getenv("ENV") != "production")
	log := logger.Get()
	log.Info().Msg("starting worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := store.Open(ctx, store.Config{
		DSN:            cfg.Database.DSN,
		MaxConns:       cfg.Database.MaxConns,
		MinConns:       cfg.Database.MinConns,
		ConnectTimeout: cfg.Database.ConnectTimeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open store")
	}
	defer st.Close()

	publisher := events.NewLocalPublisher()
	defer publisher.Close()

	w := pgtask.NewWorker[JobStep](st).
		WithConcurrency(cfg.Worker.Concurrency).
		WithReconnectBackoff(cfg.Worker.ReconnectBackoff).
		WithLogger(*log).
		WithPublisher(publisher)

	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info().Msg("shutdown signal received")
		cancel()
		select {
		case <-errCh:
		case <-time.After(10 * time.Second):
			log.Warn().Msg("worker did not stop within grace period")
		}
	case err := <-errCh:
		if err != nil && err != context.Canceled {
			log.Error().Err(err).Msg("worker exited")
		}
	}

	log.Info().Msg("worker stopped")
}
