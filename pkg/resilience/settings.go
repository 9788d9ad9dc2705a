package resilience

import "time"

// BuildSettings turns integer tuning knobs, as they come from env config,
// into breaker Settings. Non-positive values take the defaults: 60s interval,
// 30s open timeout, 5 failures to trip, 1 success to close.
func BuildSettings(name string, intervalSeconds, timeoutSeconds, failureThreshold, successThreshold int) Settings {
	return Settings{
		Name:             name,
		Interval:         secondsOr(intervalSeconds, time.Minute),
		Timeout:          secondsOr(timeoutSeconds, 30*time.Second),
		FailureThreshold: uint32(positiveOr(failureThreshold, 5)),
		SuccessThreshold: uint32(positiveOr(successThreshold, 1)),
	}
}

func secondsOr(n int, fallback time.Duration) time.Duration {
	if n <= 0 {
		return fallback
	}
	return time.Duration(n) * time.Second
}

func positiveOr(n, fallback int) int {
	if n <= 0 {
		return fallback
	}
	return n
}
