package health

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/richxcame/trust-risk/pkg/common"
)

// DefaultTimeout bounds a single dependency check.
const DefaultTimeout = 2 * time.Second

type pinger interface {
	Ping(ctx context.Context) error
}

type natsStatus interface {
	Status() nats.Status
}

// DatabaseChecker returns a health check function for a database/sql handle
func DatabaseChecker(db *sql.DB) common.CheckFunc {
	return func(ctx context.Context) error {
		if db == nil {
			return errors.New("database connection is nil")
		}
		ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
		defer cancel()
		return db.PingContext(ctx)
	}
}

// PoolChecker returns a health check function for a pgx pool
func PoolChecker(pool *pgxpool.Pool) common.CheckFunc {
	if pool == nil {
		return pingChecker(nil)
	}
	return pingChecker(pool)
}

func pingChecker(p pinger) common.CheckFunc {
	return func(ctx context.Context) error {
		if p == nil {
			return errors.New("database pool is nil")
		}
		ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
		defer cancel()
		return p.Ping(ctx)
	}
}

// RedisChecker returns a health check function for Redis
func RedisChecker(client redis.Cmdable) common.CheckFunc {
	return func(ctx context.Context) error {
		if client == nil {
			return errors.New("redis client is nil")
		}
		ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
		defer cancel()
		return client.Ping(ctx).Err()
	}
}

// NATSChecker returns a health check function for a NATS connection
func NATSChecker(conn *nats.Conn) common.CheckFunc {
	if conn == nil {
		return natsChecker(nil)
	}
	return natsChecker(conn)
}

func natsChecker(conn natsStatus) common.CheckFunc {
	return func(ctx context.Context) error {
		if conn == nil {
			return errors.New("nats connection is nil")
		}
		if s := conn.Status(); s != nats.CONNECTED {
			return fmt.Errorf("nats connection is %s", s)
		}
		return nil
	}
}
