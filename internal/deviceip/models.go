package deviceip

import (
	"strings"
	"time"

	"github.com/richxcame/trust-risk/internal/vendors"
	"github.com/richxcame/trust-risk/pkg/models"
)

// Flags raised by the composer.
const (
	FlagInsufficientData = "insufficient_data"
	FlagProxy            = "proxy_detected"
	FlagVPN              = "vpn_detected"
	FlagTor              = "tor_detected"
	FlagNewDevice        = "new_device"
	FlagSharedDevice     = "device_shared_across_accounts"
	FlagActiveThreat     = "active_threat"
)

// DeviceFingerprintResult is the scored device history for one user.
type DeviceFingerprintResult struct {
	DeviceID        string    `json:"device_id"`
	IsNewDevice     bool      `json:"is_new_device"`
	IsSuspicious    bool      `json:"is_suspicious"`
	DeviceCount     int       `json:"device_count"`
	FirstSeen       time.Time `json:"first_seen"`
	LastSeen        time.Time `json:"last_seen"`
	AssociatedUsers []string  `json:"associated_users"`
	RiskScore       float64   `json:"risk_score"`
}

// DeviceIPRiskAssessment combines IP, device and threat lookups. It is
// recomputed on every request and never cached itself.
type DeviceIPRiskAssessment struct {
	UserID             string                      `json:"user_id"`
	IPReputation       *vendors.IPReputationResult `json:"ip_reputation,omitempty"`
	DeviceFingerprint  *DeviceFingerprintResult    `json:"device_fingerprint,omitempty"`
	ThreatIntelligence *vendors.ThreatIntelResult  `json:"threat_intelligence,omitempty"`
	OverallRiskScore   float64                     `json:"overall_risk_score"`
	RiskLevel          models.RiskLevel            `json:"risk_level"`
	Recommendations    []string                    `json:"recommendations"`
	Flags              []string                    `json:"flags"`
	Metadata           map[string]interface{}      `json:"metadata"`
	AssessedAt         time.Time                   `json:"assessed_at"`
}

// HasFlag reports whether flag was raised.
func (a *DeviceIPRiskAssessment) HasFlag(flag string) bool {
	for _, f := range a.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// SpecificRecommendations returns the rule-based recommendations without the
// generic monitoring note.
func (a *DeviceIPRiskAssessment) SpecificRecommendations() []string {
	out := make([]string, 0, len(a.Recommendations))
	for _, r := range a.Recommendations {
		if !strings.HasPrefix(r, monitorPrefix) {
			out = append(out, r)
		}
	}
	return out
}
