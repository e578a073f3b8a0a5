// Package main is the entry point for the stockledger background worker.
// It relays the transactional outbox, purges expired idempotency keys and,
// when enabled, closes approved periods.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"stockledger/internal/app"
	"stockledger/internal/config"
	"stockledger/internal/infrastructure/cache"
	"stockledger/internal/infrastructure/storage/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := app.NewLogger(cfg, "worker")
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Info("starting stockledger worker")

	pool, err := app.OpenPool(ctx, cfg, "stockledger-worker")
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	rdb, err := app.OpenRedis(ctx, cfg)
	if err != nil {
		log.Fatalw("failed to connect to redis", "error", err)
	}
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	application, err := app.New(ctx, cfg, pool.Unwrap(), rdb)
	if err != nil {
		log.Fatalw("failed to build application", "error", err)
	}

	var handler postgres.OutboxHandler = logHandler{log: log}
	if rdb != nil {
		handler = cache.NewEventChannel(rdb)
	}

	w := &Worker{
		relay:       postgres.NewOutboxRelay(application.TxManager, cfg.Worker.BatchSize, handler),
		idempotency: application.Idempotency,
		pool:        pool,
		cfg:         cfg.Worker,
		log:         log,
	}
	if cfg.Worker.AutoClosePeriods {
		w.periods = application.Periods
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.Run(ctx)
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	cancel()

	wg.Wait()
	log.Info("worker stopped")
}
