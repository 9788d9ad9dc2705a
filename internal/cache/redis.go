package cache

import (
	"context"
	"time"

	"github.com/richxcame/trust-risk/pkg/redis"
)

// RedisBackend stores entries in Redis.
type RedisBackend struct {
	client redis.ClientInterface
}

// NewRedisBackend creates a Redis-backed cache backend.
func NewRedisBackend(client redis.ClientInterface) *RedisBackend {
	return &RedisBackend{client: client}
}

func (b *RedisBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := b.client.GetString(ctx, key)
	if err != nil {
		if redis.IsNil(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return []byte(val), true, nil
}

func (b *RedisBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return b.client.SetWithExpiration(ctx, key, string(value), ttl)
}

func (b *RedisBackend) Delete(ctx context.Context, key string) error {
	return b.client.Delete(ctx, key)
}

func (b *RedisBackend) Exists(ctx context.Context, key string) (bool, error) {
	return b.client.Exists(ctx, key)
}
