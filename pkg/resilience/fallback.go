package resilience

import (
	"context"

	"github.com/richxcame/trust-risk/pkg/logger"
	"go.uber.org/zap"
)

// FallbackFunc runs in place of the operation while the breaker rejects calls.
type FallbackFunc func(ctx context.Context, err error) (interface{}, error)

// NoopFallback surfaces ErrCircuitOpen unchanged.
func NoopFallback(ctx context.Context, err error) (interface{}, error) {
	return nil, ErrCircuitOpen
}

// GracefulDegradation logs the rejection and surfaces ErrCircuitOpen so the
// caller can treat the dependency as absent.
func GracefulDegradation(dependency string) FallbackFunc {
	return func(ctx context.Context, err error) (interface{}, error) {
		logger.WithContext(ctx).Warn("breaker open, dependency degraded",
			zap.String("dependency", dependency),
			zap.Error(err),
		)
		return nil, ErrCircuitOpen
	}
}
