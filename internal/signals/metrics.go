package signals

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var droppedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "risk_internal_signal_dropped_total",
		Help: "Internal signals dropped because their data could not be loaded",
	},
	[]string{"signal"},
)

func recordDropped(signal string) {
	droppedTotal.WithLabelValues(signal).Inc()
}
