package fraud

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	analysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "risk_analyses_total",
			Help: "Transaction analyses by risk level and source",
		},
		[]string{"level", "source"},
	)

	analysisDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "risk_analysis_duration_seconds",
			Help:    "Time to compute a fresh verdict",
			Buckets: prometheus.DefBuckets,
		},
	)

	signalsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "risk_signal_dropped_total",
			Help: "Vendor and anomaly signals dropped after a failure",
		},
		[]string{"signal"},
	)

	sideEffectErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "risk_verdict_side_effect_errors_total",
			Help: "Failed best-effort verdict side effects",
		},
		[]string{"effect"},
	)
)
