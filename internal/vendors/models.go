package vendors

import "time"

// ThreatLevel is the coarse severity reported with an IP reputation result.
type ThreatLevel string

const (
	ThreatLevelLow    ThreatLevel = "low"
	ThreatLevelMedium ThreatLevel = "medium"
	ThreatLevelHigh   ThreatLevel = "high"
)

// ThreatLevelForScore maps a 0-100 risk score to a threat level.
func ThreatLevelForScore(score float64) ThreatLevel {
	switch {
	case score >= 70:
		return ThreatLevelHigh
	case score >= 40:
		return ThreatLevelMedium
	default:
		return ThreatLevelLow
	}
}

// IdentityRequest is the input to an identity verification check.
type IdentityRequest struct {
	UserID       string                 `json:"user_id"`
	Email        string                 `json:"email,omitempty"`
	Phone        *string                `json:"phone,omitempty"`
	DocumentData map[string]interface{} `json:"document_data,omitempty"`
}

// IdentityResult is a normalized identity verification outcome.
type IdentityResult struct {
	Verified   bool                   `json:"verified"`
	Confidence float64                `json:"confidence"`
	RiskScore  float64                `json:"risk_score"`
	Flags      []string               `json:"flags"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	Provider   string                 `json:"provider"`
}

// IPReputationResult is a normalized IP reputation lookup.
type IPReputationResult struct {
	RiskScore   float64                `json:"risk_score"`
	IsProxy     bool                   `json:"is_proxy"`
	IsVPN       bool                   `json:"is_vpn"`
	IsTor       bool                   `json:"is_tor"`
	Country     string                 `json:"country"`
	City        string                 `json:"city,omitempty"`
	ISP         string                 `json:"isp,omitempty"`
	ThreatLevel ThreatLevel            `json:"threat_level"`
	Flags       []string               `json:"flags"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	Provider    string                 `json:"provider"`
}

// ThreatIntelRequest is the input to a threat intelligence lookup.
type ThreatIntelRequest struct {
	UserID string `json:"user_id"`
	IP     string `json:"ip"`
	Email  string `json:"email,omitempty"`
}

// ThreatIntelResult is a normalized threat intelligence lookup.
type ThreatIntelResult struct {
	IsThreat    bool                   `json:"is_threat"`
	ThreatTypes []string               `json:"threat_types"`
	RiskScore   float64                `json:"risk_score"`
	LastSeen    *time.Time             `json:"last_seen,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	Provider    string                 `json:"provider"`
}
