package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/richxcame/cyber-patrol/pkg/config"
	"github.com/richxcame/cyber-patrol/pkg/logger"
	"github.com/richxcame/cyber-patrol/pkg/resilience"
	"go.uber.org/zap"
)

const (
	defaultReadTimeout  = 3 * time.Second
	defaultWriteTimeout = 3 * time.Second
	connectTimeout      = 5 * time.Second
)

// ClientInterface is the subset of Redis used by the committed-key ledger and health checks
type ClientInterface interface {
	redis.Cmdable
	Close() error
}

// Client wraps the Redis client. It satisfies redis.Cmdable.
type Client struct {
	*redis.Client
}

var _ ClientInterface = (*Client)(nil)

// NewRedisClient connects to Redis, retrying transient failures during the first ping
func NewRedisClient(cfg *config.RedisConfig) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*connectTimeout)
	defer cancel()

	_, err := RetryableOperation(ctx, func(ctx context.Context) (string, error) {
		pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()
		return client.Ping(pingCtx).Result()
	}, "redis.ping")
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("unable to connect to redis: %w", err)
	}

	return &Client{Client: client}, nil
}

// Close closes the Redis client
func (c *Client) Close() error {
	return c.Client.Close()
}

// ConservativeRetryConfig retries briefly; used for calls on the request path
func ConservativeRetryConfig() resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    50 * time.Millisecond,
		MaxBackoff:        1 * time.Second,
		BackoffMultiplier: 2.0,
		EnableJitter:      true,
		RetryableChecker:  isRedisRetryable,
	}
}

// AggressiveRetryConfig retries more times with short waits; used at startup
func AggressiveRetryConfig() resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:       5,
		InitialBackoff:    20 * time.Millisecond,
		MaxBackoff:        500 * time.Millisecond,
		BackoffMultiplier: 2.0,
		EnableJitter:      true,
		RetryableChecker:  isRedisRetryable,
	}
}

// RetryableOperation runs op under ConservativeRetryConfig and logs the final failure under name
func RetryableOperation[T any](ctx context.Context, op func(ctx context.Context) (T, error), name string) (T, error) {
	result, err := resilience.Retry(ctx, ConservativeRetryConfig(), func(ctx context.Context) (interface{}, error) {
		return op(ctx)
	})
	if err != nil {
		logger.WithContext(ctx).Warn("Redis operation failed", zap.String("operation", name), zap.Error(err))
		var zero T
		return zero, err
	}
	return result.(T), nil
}

var nonRetryableMessages = []string{
	"wrongtype",
	"err syntax",
	"invalid argument",
	"noauth",
	"wrongpass",
	"noperm",
	"unknown command",
	"execabort",
}

var retryableMessages = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"no such host",
	"network is unreachable",
	"i/o timeout",
	"timeout",
	"server closed",
	"unexpected eof",
	"pool timeout",
	"connection pool exhausted",
	"loading",
	"busy",
	"masterdown",
	"readonly",
	"noscript",
	"clusterdown",
	"tryagain",
	"moved",
	"ask",
}

// isRedisRetryable treats unknown failures as transient. Cancellation, missing keys and
// command or auth errors are final.
func isRedisRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, redis.Nil) {
		return false
	}

	msg := strings.ToLower(err.Error())
	for _, m := range nonRetryableMessages {
		if strings.Contains(msg, m) {
			return false
		}
	}
	for _, m := range retryableMessages {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return true
}
