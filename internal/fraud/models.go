package fraud

import (
	"time"

	"github.com/richxcame/trust-risk/pkg/models"
)

// Decision is the action a caller should take on a verdict.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReview  Decision = "review"
	DecisionBlock   Decision = "block"
)

// AnalyzeRequest identifies a transaction and its request context.
type AnalyzeRequest struct {
	TransactionID     string `json:"transaction_id" validate:"required,record_id"`
	UserID            string `json:"user_id" validate:"required,record_id"`
	IPAddress         string `json:"ip_address" validate:"ip_or_unknown"`
	UserAgent         string `json:"user_agent"`
	DeviceFingerprint string `json:"device_fingerprint"`
	Email             string `json:"email" validate:"omitempty,email"`
}

// ReanalyzeRequest is the body of a re-analysis; the transaction comes from the path.
type ReanalyzeRequest struct {
	UserID            string `json:"user_id" validate:"required,record_id"`
	IPAddress         string `json:"ip_address" validate:"ip_or_unknown"`
	UserAgent         string `json:"user_agent"`
	DeviceFingerprint string `json:"device_fingerprint"`
	Email             string `json:"email" validate:"omitempty,email"`
}

// AssessRequest is the body of a device/IP assessment.
type AssessRequest struct {
	UserID            string `json:"user_id" validate:"required,record_id"`
	IPAddress         string `json:"ip_address" validate:"ip_or_unknown"`
	DeviceFingerprint string `json:"device_fingerprint"`
	Email             string `json:"email" validate:"omitempty,email"`
}

// FraudDetectionResult is the verdict for one transaction.
type FraudDetectionResult struct {
	TransactionID   string                 `json:"transaction_id"`
	UserID          string                 `json:"user_id"`
	OverallScore    float64                `json:"overall_score"`
	RiskLevel       models.RiskLevel       `json:"risk_level"`
	Decision        Decision               `json:"decision"`
	Signals         []models.Signal        `json:"signals"`
	Confidence      float64                `json:"confidence"`
	Recommendations []string               `json:"recommendations"`
	Flags           []string               `json:"flags"`
	VendorResults   map[string]interface{} `json:"vendor_results,omitempty"`
	Escalated       bool                   `json:"escalated"`
	Timestamp       time.Time              `json:"timestamp"`
}

// DecisionFor maps a risk level to the action a caller should take.
func DecisionFor(level models.RiskLevel) Decision {
	switch level {
	case models.RiskLevelCritical, models.RiskLevelHigh:
		return DecisionBlock
	case models.RiskLevelMedium:
		return DecisionReview
	default:
		return DecisionApprove
	}
}

// Signal names produced by the engine itself.
const (
	SignalIdentity     = "identity_verification"
	SignalIPReputation = "ip_reputation"
	SignalThreatIntel  = "threat_intel"
	SignalAnomaly      = "anomaly_detection"
)

// Result flags.
const (
	FlagInsufficientData = "insufficient_data"
	FlagDeviceIPCritical = "device_ip_critical"
)
