// Package main is the entry point for the stockledger API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"stockledger/internal/app"
	"stockledger/internal/config"
	"stockledger/internal/domain/auth"
	v1 "stockledger/internal/infrastructure/http/v1"
	"stockledger/internal/infrastructure/http/v1/handlers"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := app.NewLogger(cfg, "server")
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx := context.Background()
	log.Infow("starting stockledger server", "version", version)

	if cfg.Database.MigrateOnStart {
		if err := app.Migrate(ctx, cfg.Database.URL); err != nil {
			log.Fatalw("failed to apply migrations", "error", err)
		}
	}

	pool, err := app.OpenPool(ctx, cfg, "stockledger-server")
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

	if cfg.Auth.JWTSecret == "" {
		log.Warn("auth.jwt_secret is empty, every protected request will be rejected")
	}
	jwtCfg := auth.DefaultJWTConfig(cfg.Auth.JWTSecret)
	if cfg.Auth.Issuer != "" {
		jwtCfg.Issuer = cfg.Auth.Issuer
	}

	checks := map[string]handlers.Pinger{"database": pool}
	if rdb != nil {
		checks["redis"] = handlers.PingerFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
	}

	router, err := v1.NewRouter(v1.RouterConfig{
		App:                application,
		HealthChecks:       checks,
		Version:            version,
		Logger:             log,
		JWTValidator:       auth.NewJWTService(jwtCfg),
		IdempotencyEnabled: cfg.HTTP.IdempotencyEnabled,
		Development:        cfg.App.IsDevelopment(),
	})
	if err != nil {
		log.Fatalw("failed to build router", "error", err)
	}

	server := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		log.Infow("HTTP server listening", "port", cfg.HTTP.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server error", "error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}
