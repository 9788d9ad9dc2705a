package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "risk_cache_requests_total",
		Help: "Signal cache lookups by namespace and result (hit, miss)",
	}, []string{"namespace", "result"})

	cacheErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "risk_cache_errors_total",
		Help: "Signal cache backend errors swallowed by the cache",
	}, []string{"namespace", "operation"})
)

func recordHit(namespace Namespace) {
	cacheRequestsTotal.WithLabelValues(string(namespace), "hit").Inc()
}

func recordMiss(namespace Namespace) {
	cacheRequestsTotal.WithLabelValues(string(namespace), "miss").Inc()
}

func recordError(namespace Namespace, operation string) {
	cacheErrorsTotal.WithLabelValues(string(namespace), operation).Inc()
}
