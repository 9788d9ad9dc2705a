package deviceip

import (
	"fmt"
	"time"
)

// Weights are the relative contributions of each lookup to the composite.
type Weights struct {
	IPReputation      float64
	DeviceFingerprint float64
	ThreatIntel       float64
}

// Thresholds are the lower bounds of each composite risk level.
type Thresholds struct {
	Medium   float64
	High     float64
	Critical float64
}

// Config tunes the composer.
type Config struct {
	Weights      Weights
	Thresholds   Thresholds
	DefaultScore float64       // used when no lookup produced a result
	ShortTTL     time.Duration // IP reputation, threat intel and device checks
}

// DefaultConfig returns the standard weights (0.4/0.3/0.3) and thresholds (40/65/85).
func DefaultConfig() Config {
	return Config{
		Weights:      Weights{IPReputation: 0.4, DeviceFingerprint: 0.3, ThreatIntel: 0.3},
		Thresholds:   Thresholds{Medium: 40, High: 65, Critical: 85},
		DefaultScore: 50,
		ShortTTL:     time.Hour,
	}
}

// Validate checks weights are non-negative and thresholds are increasing.
func (c Config) Validate() error {
	w := c.Weights
	if w.IPReputation < 0 || w.DeviceFingerprint < 0 || w.ThreatIntel < 0 {
		return fmt.Errorf("composite weights must be non-negative")
	}
	t := c.Thresholds
	if !(0 < t.Medium && t.Medium < t.High && t.High < t.Critical && t.Critical <= 100) {
		return fmt.Errorf("composite thresholds must satisfy 0 < medium < high < critical <= 100")
	}
	return nil
}
