package fraud

import (
	"math"
	"sort"

	"github.com/richxcame/trust-risk/internal/signals"
	"github.com/richxcame/trust-risk/pkg/models"
)

// Aggregate returns the weighted mean of the signal scores, renormalized by
// the total weight. An empty set or zero total weight scores 0. Terms are
// summed in a canonical order so the result does not depend on input order.
func Aggregate(sigs []models.Signal) float64 {
	if len(sigs) == 0 {
		return 0
	}

	sorted := make([]models.Signal, len(sigs))
	copy(sorted, sigs)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		if a.Score != b.Score {
			return a.Score < b.Score
		}
		return a.Weight < b.Weight
	})

	var weighted, total float64
	for _, s := range sorted {
		weighted += models.ClampScore(s.Score) * s.Weight
		total += s.Weight
	}
	if total <= 0 {
		return 0
	}
	return models.ClampScore(weighted / total)
}

// Classify maps a score onto a risk level. It is monotonic in score.
func (t Thresholds) Classify(score float64) models.RiskLevel {
	switch {
	case score >= t.Critical:
		return models.RiskLevelCritical
	case score >= t.High:
		return models.RiskLevelHigh
	case score >= t.Medium:
		return models.RiskLevelMedium
	default:
		return models.RiskLevelLow
	}
}

// Confidence starts at 0.3, adds 0.05 per signal up to 0.9, then 0.05 per
// vendor signal, clamped to [0,1] and rounded to two decimals.
func Confidence(sigs []models.Signal) float64 {
	var vendor int
	for _, s := range sigs {
		if s.Type == models.SignalTypeVendor {
			vendor++
		}
	}
	c := math.Min(0.3+0.05*float64(len(sigs)), 0.9) + 0.05*float64(vendor)
	c = math.Max(0, math.Min(c, 1))
	return math.Round(c*100) / 100
}

// Recommendation texts.
const (
	RecommendBlock            = "Block transaction and flag for manual review"
	RecommendIdentityCheck    = "Require additional identity verification"
	RecommendVerification     = "Require additional verification"
	RecommendMonitor          = "Monitor closely"
	RecommendIPReputation     = "IP address has a poor reputation: verify the connection origin"
	RecommendIdentityMismatch = "Identity verification flagged the user: request document verification"
	RecommendVelocity         = "Unusual transaction velocity: apply rate limits"
)

// Signals scoring above this get a targeted recommendation.
const highScoringSignal = 60.0

// Recommend builds the ordered, deduplicated recommendation list for a level
// and its signals. extra is appended after the level and signal notes.
func Recommend(level models.RiskLevel, sigs []models.Signal, extra ...string) []string {
	recs := make([]string, 0, 4+len(extra))
	switch level {
	case models.RiskLevelCritical, models.RiskLevelHigh:
		recs = append(recs, RecommendBlock, RecommendIdentityCheck)
	case models.RiskLevelMedium:
		recs = append(recs, RecommendVerification, RecommendMonitor)
	}

	for _, s := range sigs {
		if s.Score <= highScoringSignal {
			continue
		}
		switch s.Name {
		case SignalIPReputation:
			recs = append(recs, RecommendIPReputation)
		case SignalIdentity:
			recs = append(recs, RecommendIdentityMismatch)
		case signals.SignalVelocity:
			recs = append(recs, RecommendVelocity)
		}
	}
	recs = append(recs, extra...)
	return dedupe(recs)
}

func dedupe(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := items[:0]
	for _, it := range items {
		if _, ok := seen[it]; ok {
			continue
		}
		seen[it] = struct{}{}
		out = append(out, it)
	}
	return out
}
