package fraud

import (
	"context"

	"github.com/richxcame/trust-risk/internal/deviceip"
	"github.com/richxcame/trust-risk/pkg/models"
)

// SignalCollector derives internal signals for a transaction.
type SignalCollector interface {
	Collect(ctx context.Context, userID, transactionID, ip, userAgent, deviceFingerprint string) []models.Signal
}

// DeviceIPAssessor produces the composite device/IP assessment.
type DeviceIPAssessor interface {
	Assess(ctx context.Context, userID, ip, deviceFingerprint, email string) *deviceip.DeviceIPRiskAssessment
}

// AnomalyScorer scores the already collected signals as a whole. A nil
// signal means no opinion.
type AnomalyScorer interface {
	Score(ctx context.Context, sigs []models.Signal) (*models.Signal, error)
}

// AuditStore persists verdicts for later review.
type AuditStore interface {
	RecordVerdict(ctx context.Context, result *FraudDetectionResult) error
	ListVerdicts(ctx context.Context, transactionID string, limit int) ([]*VerdictRecord, error)
}

// VerdictPublisher announces verdicts to downstream consumers.
type VerdictPublisher interface {
	PublishVerdict(ctx context.Context, result *FraudDetectionResult) error
}
