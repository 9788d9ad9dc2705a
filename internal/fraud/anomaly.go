package fraud

import (
	"context"

	"github.com/richxcame/trust-risk/pkg/models"
)

// HeuristicAnomalyScorer counts signals already scoring above 60 and turns
// the count into an anomaly signal. It stands in for a trained model.
type HeuristicAnomalyScorer struct {
	weight float64
}

// NewHeuristicAnomalyScorer creates the heuristic scorer.
func NewHeuristicAnomalyScorer(weight float64) *HeuristicAnomalyScorer {
	return &HeuristicAnomalyScorer{weight: weight}
}

// Score returns nil for an empty signal set.
func (h *HeuristicAnomalyScorer) Score(ctx context.Context, sigs []models.Signal) (*models.Signal, error) {
	if len(sigs) == 0 {
		return nil, nil
	}
	high := 0
	for _, s := range sigs {
		if s.Score > 60 {
			high++
		}
	}

	score := 10.0
	switch {
	case high > 3:
		score = 70
	case high > 1:
		score = 40
	}

	s := models.NewSignal(models.SignalTypeML, SignalAnomaly, score, h.weight, map[string]interface{}{
		"high_risk_signals": high,
		"model":             "heuristic",
	})
	return &s, nil
}
