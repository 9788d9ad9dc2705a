package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Namespace partitions the key space by signal source.
type Namespace string

const (
	NamespaceIPReputation  Namespace = "ip_reputation"
	NamespaceThreatIntel   Namespace = "threat_intel"
	NamespaceDeviceHistory Namespace = "device_history"
	NamespaceDeviceCheck   Namespace = "device_check"
	NamespaceIdentity      Namespace = "identity"
	NamespaceFraudResult   Namespace = "fraud_result"
)

// Backend stores raw bytes with a TTL. Expired entries must never be returned.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// Cache is the namespaced, JSON-encoding signal cache. Backend failures are
// logged and reported as misses; they never reach the caller.
type Cache struct {
	backend Backend
	prefix  string
	logger  *zap.Logger
}

// New creates a signal cache over backend.
func New(backend Backend, prefix string, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{backend: backend, prefix: prefix, logger: logger}
}

// Key builds the backend key for (namespace, key).
func (c *Cache) Key(namespace Namespace, key string) string {
	if c.prefix == "" {
		return string(namespace) + ":" + key
	}
	return c.prefix + ":" + string(namespace) + ":" + key
}

// Get decodes the cached value into dest and reports whether it was present.
func (c *Cache) Get(ctx context.Context, namespace Namespace, key string, dest interface{}) bool {
	raw, ok, err := c.backend.Get(ctx, c.Key(namespace, key))
	if err != nil {
		recordError(namespace, "get")
		c.logger.Warn("cache get failed, treating as miss",
			zap.String("namespace", string(namespace)),
			zap.Error(err),
		)
		return false
	}
	if !ok {
		recordMiss(namespace)
		return false
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		recordError(namespace, "decode")
		c.logger.Warn("cache entry undecodable, treating as miss",
			zap.String("namespace", string(namespace)),
			zap.Error(err),
		)
		return false
	}
	recordHit(namespace)
	return true
}

// Set stores value for ttl. Failures are logged and swallowed.
func (c *Cache) Set(ctx context.Context, namespace Namespace, key string, value interface{}, ttl time.Duration) {
	raw, err := json.Marshal(value)
	if err != nil {
		recordError(namespace, "encode")
		c.logger.Warn("cache value unencodable", zap.String("namespace", string(namespace)), zap.Error(err))
		return
	}
	if err := c.backend.Set(ctx, c.Key(namespace, key), raw, ttl); err != nil {
		recordError(namespace, "set")
		c.logger.Warn("cache set failed", zap.String("namespace", string(namespace)), zap.Error(err))
	}
}

// Delete removes an entry. Failures are logged and swallowed.
func (c *Cache) Delete(ctx context.Context, namespace Namespace, key string) {
	if err := c.backend.Delete(ctx, c.Key(namespace, key)); err != nil {
		recordError(namespace, "delete")
		c.logger.Warn("cache delete failed", zap.String("namespace", string(namespace)), zap.Error(err))
	}
}

// Exists reports whether a live entry exists. Backend errors report false.
func (c *Cache) Exists(ctx context.Context, namespace Namespace, key string) bool {
	ok, err := c.backend.Exists(ctx, c.Key(namespace, key))
	if err != nil {
		recordError(namespace, "exists")
		c.logger.Warn("cache exists failed", zap.String("namespace", string(namespace)), zap.Error(err))
		return false
	}
	return ok
}

// GetOrSet returns the cached value, or calls fetch on a miss and stores a
// non-nil result for ttl. A nil result means absent and is not cached.
// Concurrent misses may fetch more than once.
func GetOrSet[T any](ctx context.Context, c *Cache, namespace Namespace, key string, ttl time.Duration, fetch func(ctx context.Context) (*T, error)) (*T, error) {
	var cached T
	if c.Get(ctx, namespace, key, &cached) {
		return &cached, nil
	}

	value, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	if value == nil {
		return nil, nil
	}

	c.Set(ctx, namespace, key, value, ttl)
	return value, nil
}

// HashKey derives a stable, PII-free key from its parts.
func HashKey(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}
