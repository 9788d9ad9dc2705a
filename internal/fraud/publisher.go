package fraud

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/richxcame/trust-risk/pkg/models"
)

// VerdictEvent is the payload published for a verdict.
type VerdictEvent struct {
	TransactionID   string           `json:"transaction_id"`
	UserID          string           `json:"user_id"`
	OverallScore    float64          `json:"overall_score"`
	RiskLevel       models.RiskLevel `json:"risk_level"`
	Decision        Decision         `json:"decision"`
	Confidence      float64          `json:"confidence"`
	Recommendations []string         `json:"recommendations"`
	Flags           []string         `json:"flags"`
	Timestamp       time.Time        `json:"timestamp"`
}

type natsConn interface {
	Publish(subject string, data []byte) error
}

// NATSPublisher publishes verdicts on <prefix>.<risk level>.
type NATSPublisher struct {
	conn   natsConn
	prefix string
}

var _ VerdictPublisher = (*NATSPublisher)(nil)

// NewNATSPublisher creates a publisher over an open connection.
func NewNATSPublisher(conn *nats.Conn, prefix string) *NATSPublisher {
	return newNATSPublisher(conn, prefix)
}

func newNATSPublisher(conn natsConn, prefix string) *NATSPublisher {
	if prefix == "" {
		prefix = "risk.verdict"
	}
	return &NATSPublisher{conn: conn, prefix: prefix}
}

// Subject returns the subject a verdict at level is published on.
func (p *NATSPublisher) Subject(level models.RiskLevel) string {
	return p.prefix + "." + string(level)
}

func (p *NATSPublisher) PublishVerdict(ctx context.Context, result *FraudDetectionResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(VerdictEvent{
		TransactionID:   result.TransactionID,
		UserID:          result.UserID,
		OverallScore:    result.OverallScore,
		RiskLevel:       result.RiskLevel,
		Decision:        result.Decision,
		Confidence:      result.Confidence,
		Recommendations: result.Recommendations,
		Flags:           result.Flags,
		Timestamp:       result.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("failed to encode verdict event: %w", err)
	}

	if err := p.conn.Publish(p.Subject(result.RiskLevel), data); err != nil {
		return fmt.Errorf("failed to publish verdict: %w", err)
	}
	return nil
}
