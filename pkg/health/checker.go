package health

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// CheckerConfig bounds each dependency check
type CheckerConfig struct {
	Timeout time.Duration
}

// DefaultCheckerConfig returns a 2 second check timeout
func DefaultCheckerConfig() CheckerConfig {
	return CheckerConfig{Timeout: 2 * time.Second}
}

// Pinger is satisfied by *pgxpool.Pool
type Pinger interface {
	Ping(ctx context.Context) error
}

// Connectivity is satisfied by *eventbus.Bus
type Connectivity interface {
	IsConnected() bool
}

// DatabaseChecker returns a health check function for PostgreSQL
func DatabaseChecker(db Pinger, cfg CheckerConfig) func() error {
	return func() error {
		if db == nil {
			return errors.New("database connection is nil")
		}
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
		defer cancel()
		return db.Ping(ctx)
	}
}

// RedisChecker returns a health check function for Redis
func RedisChecker(client redis.Cmdable, cfg CheckerConfig) func() error {
	return func() error {
		if client == nil {
			return errors.New("redis client is nil")
		}
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
		defer cancel()
		return client.Ping(ctx).Err()
	}
}

// NATSChecker returns a health check function for the event bus connection
func NATSChecker(bus Connectivity) func() error {
	return func() error {
		if bus == nil || !bus.IsConnected() {
			return errors.New("nats not connected")
		}
		return nil
	}
}
