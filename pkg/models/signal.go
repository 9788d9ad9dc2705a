package models

import "time"

// SignalType identifies where a signal came from
type SignalType string

const (
	SignalTypeInternal SignalType = "internal"
	SignalTypeVendor   SignalType = "vendor"
	SignalTypeML       SignalType = "ml"
)

// Signal is one scored, weighted risk input
type Signal struct {
	Type      SignalType             `json:"type"`
	Name      string                 `json:"name"`
	Score     float64                `json:"score"`  // 0-100, higher is riskier
	Weight    float64                `json:"weight"` // 0-1, renormalized by the engine
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// NewSignal builds a signal with its score clamped to [0,100].
func NewSignal(signalType SignalType, name string, score, weight float64, metadata map[string]interface{}) Signal {
	return Signal{
		Type:      signalType,
		Name:      name,
		Score:     ClampScore(score),
		Weight:    weight,
		Metadata:  metadata,
		Timestamp: time.Now().UTC(),
	}
}

// ClampScore bounds a score to [0,100].
func ClampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// RiskLevel is the ordinal classification of a composite score
type RiskLevel string

const (
	RiskLevelLow      RiskLevel = "low"
	RiskLevelMedium   RiskLevel = "medium"
	RiskLevelHigh     RiskLevel = "high"
	RiskLevelCritical RiskLevel = "critical"
)

// Rank orders risk levels from low (0) to critical (3).
func (l RiskLevel) Rank() int {
	switch l {
	case RiskLevelMedium:
		return 1
	case RiskLevelHigh:
		return 2
	case RiskLevelCritical:
		return 3
	default:
		return 0
	}
}
