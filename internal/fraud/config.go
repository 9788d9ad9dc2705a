package fraud

import (
	"fmt"
	"time"

	"github.com/richxcame/trust-risk/internal/deviceip"
	"github.com/richxcame/trust-risk/internal/signals"
)

// Thresholds are the lower bounds of the medium, high and critical levels.
// Scores below Medium are low.
type Thresholds struct {
	Medium   float64
	High     float64
	Critical float64
}

// VendorWeights are the weights of vendor-sourced signals.
type VendorWeights struct {
	Identity     float64
	IPReputation float64
	ThreatIntel  float64
}

// ScoringConfig holds every weight, threshold and feature flag the engine
// uses. It is copied into the engine at construction and never mutated.
type ScoringConfig struct {
	Internal          signals.Weights
	Vendor            VendorWeights
	AnomalyWeight     float64
	Composite         deviceip.Weights
	Thresholds        Thresholds
	VendorAPIsEnabled bool
	MLScoringEnabled  bool
	ResultTTL         time.Duration
	ShortTTL          time.Duration
}

// DefaultScoringConfig returns the standard weights and thresholds.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		Internal:          signals.DefaultWeights(),
		Vendor:            VendorWeights{Identity: 0.15, IPReputation: 0.12, ThreatIntel: 0.10},
		AnomalyWeight:     0.08,
		Composite:         deviceip.DefaultConfig().Weights,
		Thresholds:        Thresholds{Medium: 50, High: 70, Critical: 85},
		VendorAPIsEnabled: true,
		MLScoringEnabled:  true,
		ResultTTL:         24 * time.Hour,
		ShortTTL:          time.Hour,
	}
}

// Validate checks that weights lie in [0,1] and thresholds are strictly
// increasing inside (0,100], so every score maps to exactly one level.
func (c ScoringConfig) Validate() error {
	weights := map[string]float64{
		"account_age":         c.Internal.AccountAge,
		"transaction_history": c.Internal.TransactionHistory,
		"device_fingerprint":  c.Internal.DeviceFingerprint,
		"velocity":            c.Internal.Velocity,
		"behavior_pattern":    c.Internal.BehaviorPattern,
		"identity":            c.Vendor.Identity,
		"ip_reputation":       c.Vendor.IPReputation,
		"threat_intel":        c.Vendor.ThreatIntel,
		"anomaly_detection":   c.AnomalyWeight,
		"composite_ip":        c.Composite.IPReputation,
		"composite_device":    c.Composite.DeviceFingerprint,
		"composite_threat":    c.Composite.ThreatIntel,
	}
	for name, w := range weights {
		if w < 0 || w > 1 {
			return fmt.Errorf("weight %s must be within [0,1], got %v", name, w)
		}
	}

	t := c.Thresholds
	if !(0 < t.Medium && t.Medium < t.High && t.High < t.Critical && t.Critical <= 100) {
		return fmt.Errorf("thresholds must satisfy 0 < medium < high < critical <= 100, got %v/%v/%v",
			t.Medium, t.High, t.Critical)
	}
	if c.ResultTTL <= 0 {
		return fmt.Errorf("result ttl must be positive")
	}
	return nil
}
