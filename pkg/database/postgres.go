package database

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/richxcame/cyber-patrol/pkg/config"
	"github.com/richxcame/cyber-patrol/pkg/logger"
	"github.com/richxcame/cyber-patrol/pkg/resilience"
	"go.uber.org/zap"
)

const (
	healthCheckPeriod = 30 * time.Second
	maxConnLifetime   = time.Hour
	maxConnIdleTime   = 10 * time.Minute
)

// NewPostgresPool opens the alert and evidence store. The first ping is retried
// with backoff so the patrol service can start alongside a database that is still booting.
func NewPostgresPool(ctx context.Context, cfg *config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := poolConfigFor(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = cfg.ConnectAttempts
	retry.MaxBackoff = 5 * time.Second
	attempt := 0
	_, err = resilience.Retry(ctx, retry, func(ctx context.Context) (interface{}, error) {
		attempt++
		if err := pool.Ping(ctx); err != nil {
			logger.Warn("Patrol store not reachable yet",
				zap.String("host", cfg.Host), zap.Int("attempt", attempt), zap.Error(err))
			return nil, err
		}
		return nil, nil
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	logger.Info("Patrol store connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.DBName),
		zap.Int32("max_conns", poolConfig.MaxConns),
	)
	return pool, nil
}

func poolConfigFor(cfg *config.DatabaseConfig) (*pgxpool.Config, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 && cfg.MinConns <= cfg.MaxConns {
		poolConfig.MinConns = int32(cfg.MinConns)
	}
	poolConfig.HealthCheckPeriod = healthCheckPeriod
	poolConfig.MaxConnLifetime = maxConnLifetime
	poolConfig.MaxConnIdleTime = maxConnIdleTime

	params := poolConfig.ConnConfig.RuntimeParams
	if cfg.ApplicationName != "" {
		params["application_name"] = cfg.ApplicationName
	}
	if cfg.StatementTimeout > 0 {
		params["statement_timeout"] = strconv.FormatInt(cfg.StatementTimeout.Milliseconds(), 10)
	}
	return poolConfig, nil
}

// Close closes the pool if it was opened
func Close(pool *pgxpool.Pool) {
	if pool != nil {
		pool.Close()
	}
}
