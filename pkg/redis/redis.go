package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/richxcame/trust-risk/pkg/config"
	"github.com/richxcame/trust-risk/pkg/logger"
	"github.com/richxcame/trust-risk/pkg/resilience"
	"go.uber.org/zap"
)

// ClientInterface is the subset of Redis operations the signal cache relies on.
type ClientInterface interface {
	GetString(ctx context.Context, key string) (string, error)
	SetWithExpiration(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	Close() error
}

// Client wraps the Redis client
type Client struct {
	*redis.Client
	retryConfig resilience.RetryConfig
}

// NewRedisClient creates a new Redis client
func NewRedisClient(cfg *config.RedisConfig) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		ReadTimeout:  cfg.RedisReadTimeoutDuration(),
		WriteTimeout: cfg.RedisWriteTimeoutDuration(),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("unable to connect to redis: %w", err)
	}

	return Wrap(client), nil
}

// Wrap adapts an existing go-redis client, e.g. one from redismock.
func Wrap(client *redis.Client) *Client {
	return &Client{Client: client, retryConfig: ConservativeRetryConfig()}
}

// WithRetryConfig replaces the retry policy used by the client's helpers.
func (c *Client) WithRetryConfig(cfg resilience.RetryConfig) *Client {
	c.retryConfig = cfg
	return c
}

// SetWithExpiration sets a key-value pair with expiration
func (c *Client) SetWithExpiration(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	_, err := retry(ctx, c.retryConfig, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.Set(ctx, key, value, expiration).Err()
	}, "redis.set")
	return err
}

// GetString gets a string value by key. A missing key returns redis.Nil.
func (c *Client) GetString(ctx context.Context, key string) (string, error) {
	return retry(ctx, c.retryConfig, func(ctx context.Context) (string, error) {
		return c.Get(ctx, key).Result()
	}, "redis.get")
}

// Delete deletes keys
func (c *Client) Delete(ctx context.Context, keys ...string) error {
	_, err := retry(ctx, c.retryConfig, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.Del(ctx, keys...).Err()
	}, "redis.del")
	return err
}

// Exists checks if a key exists
func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	return retry(ctx, c.retryConfig, func(ctx context.Context) (bool, error) {
		n, err := c.Client.Exists(ctx, key).Result()
		return n > 0, err
	}, "redis.exists")
}

// Close closes the Redis client
func (c *Client) Close() error {
	return c.Client.Close()
}

// IsNil reports whether err is a cache miss.
func IsNil(err error) bool {
	return errors.Is(err, redis.Nil)
}

// RetryableOperation runs op with the conservative Redis retry policy.
func RetryableOperation[T any](ctx context.Context, op func(ctx context.Context) (T, error), name string) (T, error) {
	return retry(ctx, ConservativeRetryConfig(), op, name)
}

func retry[T any](ctx context.Context, cfg resilience.RetryConfig, op func(ctx context.Context) (T, error), name string) (T, error) {
	var zero T
	result, err := resilience.Retry(ctx, cfg, func(ctx context.Context) (interface{}, error) {
		return op(ctx)
	})
	if err != nil {
		if !IsNil(err) {
			logger.Debug("redis operation failed", zap.String("operation", name), zap.Error(err))
		}
		return zero, err
	}
	v, _ := result.(T)
	return v, nil
}

// ConservativeRetryConfig retries once quickly; suitable for request paths.
func ConservativeRetryConfig() resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:       2,
		InitialBackoff:    50 * time.Millisecond,
		MaxBackoff:        1 * time.Second,
		BackoffMultiplier: 2.0,
		EnableJitter:      true,
		RetryableChecker:  isRedisRetryable,
	}
}

// AggressiveRetryConfig retries harder; suitable for background writes.
func AggressiveRetryConfig() resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:       4,
		InitialBackoff:    20 * time.Millisecond,
		MaxBackoff:        500 * time.Millisecond,
		BackoffMultiplier: 2.0,
		EnableJitter:      true,
		RetryableChecker:  isRedisRetryable,
	}
}

var nonRetryableRedisErrors = []string{
	"wrongtype",
	"syntax error",
	"invalid argument",
	"noauth",
	"wrongpass",
	"noperm",
	"unknown command",
	"execabort",
	"noscript",
}

// isRedisRetryable classifies Redis errors. Unknown errors are retried;
// cache misses, cancellation and command errors are not.
func isRedisRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || IsNil(err) {
		return false
	}

	msg := strings.ToLower(err.Error())
	for _, s := range nonRetryableRedisErrors {
		if strings.Contains(msg, s) {
			return false
		}
	}
	return true
}
