package resilience

import (
	"strconv"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker"
)

const (
	outcomeRequest  = "request"
	outcomeFailure  = "failure"
	outcomeFallback = "fallback"
)

var (
	breakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "risk",
		Subsystem: "breaker",
		Name:      "state",
		Help:      "Circuit breaker state (0=closed, 0.5=half-open, 1=open)",
	}, []string{"breaker"})

	breakerOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "risk",
		Subsystem: "breaker",
		Name:      "outcomes_total",
		Help:      "Breaker executions by outcome: request, failure or fallback",
	}, []string{"breaker", "outcome"})

	breakerTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "risk",
		Subsystem: "breaker",
		Name:      "transitions_total",
		Help:      "Circuit breaker state transitions",
	}, []string{"breaker", "from", "to"})

	unnamedBreakers uint64
)

// nextBreakerName keeps explicit names and numbers anonymous breakers.
func nextBreakerName(base string) string {
	if base != "" {
		return base
	}
	return "breaker-" + strconv.FormatUint(atomic.AddUint64(&unnamedBreakers, 1), 10)
}

func breakerStateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 0.5
	case gobreaker.StateOpen:
		return 1
	}
	return -1
}

func recordBreakerState(name string, state gobreaker.State) {
	breakerState.WithLabelValues(name).Set(breakerStateValue(state))
}

func recordBreakerStateChange(name string, from, to gobreaker.State) {
	breakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
	recordBreakerState(name, to)
}

func recordBreakerRequest(name string)  { breakerOutcomes.WithLabelValues(name, outcomeRequest).Inc() }
func recordBreakerFailure(name string)  { breakerOutcomes.WithLabelValues(name, outcomeFailure).Inc() }
func recordBreakerFallback(name string) { breakerOutcomes.WithLabelValues(name, outcomeFallback).Inc() }
