package deviceip

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/richxcame/trust-risk/pkg/models"
)

var assessmentsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "risk_device_ip_assessments_total",
		Help: "Device/IP assessments by resulting risk level",
	},
	[]string{"level"},
)

func observeAssessment(level models.RiskLevel) {
	assessmentsTotal.WithLabelValues(string(level)).Inc()
}
