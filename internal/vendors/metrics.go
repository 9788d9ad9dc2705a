package vendors

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var vendorCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "risk_vendor_call_duration_seconds",
	Help:    "Vendor adapter call latency by check, provider and outcome",
	Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5},
}, []string{"check", "provider", "outcome"})

func observeCall(check, provider string, start time.Time, found bool, err error) {
	outcome := "found"
	switch {
	case err != nil:
		outcome = "error"
	case !found:
		outcome = "absent"
	}
	vendorCallDuration.WithLabelValues(check, provider, outcome).Observe(time.Since(start).Seconds())
}
