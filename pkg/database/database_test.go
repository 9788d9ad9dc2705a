package database

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsPostgresRetryable_Codes(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"40001", true},  // serialization_failure
		{"40P01", true},  // deadlock_detected
		{"55P03", true},  // lock_not_available
		{"53000", true},  // insufficient_resources
		{"53100", false}, // disk_full
		{"53200", false}, // out_of_memory
		{"53300", true},  // too_many_connections
		{"08000", true},
		{"08003", true},
		{"08006", true},
		{"57P01", true},
		{"57P03", true},
		{"XX000", true},
		{"23505", false}, // unique_violation
		{"22001", false}, // string_data_right_truncation
		{"42P01", false}, // undefined_table
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, isPostgresRetryable(&pgconn.PgError{Code: tt.code}))
		})
	}
}

func TestIsPostgresRetryable_WrappedPgError(t *testing.T) {
	err := fmt.Errorf("query failed: %w", &pgconn.PgError{Code: "40001"})
	assert.True(t, isPostgresRetryable(err))
}

func TestIsPostgresRetryable_Messages(t *testing.T) {
	tests := []struct {
		msg  string
		want bool
	}{
		{"dial tcp 127.0.0.1:5432: connection refused", true},
		{"read: connection reset by peer", true},
		{"write: broken pipe", true},
		{"lookup db: no such host", true},
		{"i/o timeout", true},
		{"FATAL: too many connections for role", true},
		{"server closed the connection unexpectedly", true},
		{"temporary failure in name resolution", true},
		{"password authentication failed", false},
		{"some unknown error", false},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			assert.Equal(t, tt.want, isPostgresRetryable(errors.New(tt.msg)))
		})
	}
}

func TestIsPostgresRetryable_NotRetried(t *testing.T) {
	assert.False(t, isPostgresRetryable(nil))
	assert.False(t, isPostgresRetryable(context.Canceled))
	assert.False(t, isPostgresRetryable(context.DeadlineExceeded))
}

func TestPingWithRetry(t *testing.T) {
	t.Run("recovers after transient failures", func(t *testing.T) {
		attempts := 0
		ping := func(ctx context.Context) error {
			attempts++
			if attempts < 2 {
				return errors.New("connection refused")
			}
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		assert.NoError(t, pingWithRetry(ctx, ping))
		assert.Equal(t, 2, attempts)
	})

	t.Run("stops on permanent failure", func(t *testing.T) {
		attempts := 0
		ping := func(ctx context.Context) error {
			attempts++
			return errors.New("password authentication failed")
		}

		assert.Error(t, pingWithRetry(context.Background(), ping))
		assert.Equal(t, 1, attempts)
	})
}

func TestRetryConfig(t *testing.T) {
	cfg := RetryConfig()
	assert.Equal(t, 5, cfg.MaxAttempts)
	assert.NotNil(t, cfg.RetryableChecker)
}
