package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"stockledger/internal/config"
	"stockledger/internal/infrastructure/cache"
	"stockledger/internal/infrastructure/storage/postgres"
	"stockledger/internal/infrastructure/storage/postgres/migrations"
	"stockledger/pkg/logger"
)

// NewLogger builds the process logger from config and installs it as the
// default for context-based logging.
func NewLogger(cfg *config.Config, component string) (*logger.Logger, error) {
	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.App.IsDevelopment(),
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	log = log.With("app", cfg.App.Name, "env", cfg.App.Env).WithComponent(component)
	logger.SetDefault(log)
	return log, nil
}

// OpenPool connects to PostgreSQL with the configured pool limits.
func OpenPool(ctx context.Context, cfg *config.Config, applicationName string) (*postgres.Pool, error) {
	poolCfg := postgres.PoolConfig{
		DSN:             cfg.Database.URL,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		ApplicationName: applicationName,
	}

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "database connection established",
		"max_conns", poolCfg.MaxConns,
		"application", applicationName)
	return pool, nil
}

// Migrate applies all pending migrations.
func Migrate(ctx context.Context, dsn string) error {
	m, err := migrations.New(dsn)
	if err != nil {
		return err
	}
	defer func() { _ = m.Close() }()
	return m.Up(ctx)
}

// OpenRedis connects to Redis when it is enabled. It returns nil, nil when
// Redis is disabled.
func OpenRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	rdb, err := cache.NewRedisClient(ctx, cache.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "redis connection established", "addr", rdb.Options().Addr)
	return rdb, nil
}
