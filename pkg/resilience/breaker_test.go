package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func failing(ctx context.Context) (interface{}, error) {
	return nil, errVendorDown
}

func TestCircuitBreaker_TripsAfterThreshold(t *testing.T) {
	breaker := NewCircuitBreaker(Settings{
		Name:             "test-trip",
		Interval:         time.Minute,
		Timeout:          time.Minute,
		FailureThreshold: 3,
	}, NoopFallback)

	for i := 0; i < 3; i++ {
		_, err := breaker.Execute(context.Background(), failing)
		assert.ErrorIs(t, err, errVendorDown)
	}
	assert.Equal(t, gobreaker.StateOpen, breaker.State())

	calls := 0
	_, err := breaker.Execute(context.Background(), func(ctx context.Context) (interface{}, error) {
		calls++
		return "clean", nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 0, calls, "open breaker must not call upstream")
}

func TestCircuitBreaker_HalfOpenRecovers(t *testing.T) {
	breaker := NewCircuitBreaker(Settings{
		Name:             "test-recover",
		Timeout:          20 * time.Millisecond,
		FailureThreshold: 1,
		SuccessThreshold: 1,
	}, GracefulDegradation("identity"))

	_, _ = breaker.Execute(context.Background(), failing)
	assert.Equal(t, gobreaker.StateOpen, breaker.State())

	time.Sleep(30 * time.Millisecond)

	result, err := breaker.Execute(context.Background(), func(ctx context.Context) (interface{}, error) {
		return "clean", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "clean", result)
	assert.Equal(t, gobreaker.StateClosed, breaker.State())
}

func TestCircuitBreaker_CancellationDoesNotTrip(t *testing.T) {
	breaker := NewCircuitBreaker(Settings{
		Name:             "test-cancel",
		Timeout:          time.Minute,
		FailureThreshold: 1,
	}, NoopFallback)

	_, err := breaker.Execute(context.Background(), func(ctx context.Context) (interface{}, error) {
		return nil, context.Canceled
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, gobreaker.StateClosed, breaker.State())
}

func TestNextBreakerName(t *testing.T) {
	assert.Equal(t, "vendors", nextBreakerName("vendors"))
	assert.Contains(t, nextBreakerName(""), "breaker-")
}

func TestBuildSettings_Defaults(t *testing.T) {
	s := BuildSettings("ip-reputation", 0, 0, 0, 0)
	assert.Equal(t, "ip-reputation", s.Name)
	assert.Equal(t, time.Minute, s.Interval)
	assert.Equal(t, 30*time.Second, s.Timeout)
	assert.Equal(t, uint32(5), s.FailureThreshold)
	assert.Equal(t, uint32(1), s.SuccessThreshold)

	s = BuildSettings("threat-intel", 10, 5, 2, 3)
	assert.Equal(t, 10*time.Second, s.Interval)
	assert.Equal(t, 5*time.Second, s.Timeout)
	assert.Equal(t, uint32(2), s.FailureThreshold)
	assert.Equal(t, uint32(3), s.SuccessThreshold)
}
