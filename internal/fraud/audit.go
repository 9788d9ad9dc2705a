package fraud

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/richxcame/trust-risk/pkg/models"
)

// VerdictRecord is one row of the verdict audit log.
type VerdictRecord struct {
	ID              uuid.UUID        `json:"id"`
	TransactionID   string           `json:"transaction_id"`
	UserID          string           `json:"user_id"`
	OverallScore    float64          `json:"overall_score"`
	RiskLevel       models.RiskLevel `json:"risk_level"`
	Decision        Decision         `json:"decision"`
	Confidence      float64          `json:"confidence"`
	Recommendations []string         `json:"recommendations"`
	Flags           []string         `json:"flags"`
	Signals         []models.Signal  `json:"signals"`
	Escalated       bool             `json:"escalated"`
	CreatedAt       time.Time        `json:"created_at"`
}

// AuditRepository writes verdicts to the risk_verdicts table.
type AuditRepository struct {
	db *sql.DB
}

var _ AuditStore = (*AuditRepository)(nil)

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// RecordVerdict appends a verdict to the audit log
func (r *AuditRepository) RecordVerdict(ctx context.Context, result *FraudDetectionResult) error {
	signalsJSON, err := json.Marshal(result.Signals)
	if err != nil {
		return fmt.Errorf("failed to encode signals: %w", err)
	}

	query := `
		INSERT INTO risk_verdicts (
			id, transaction_id, user_id, overall_score, risk_level, decision,
			confidence, recommendations, flags, signals, escalated, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err = r.db.ExecContext(ctx, query,
		uuid.New(),
		result.TransactionID,
		result.UserID,
		result.OverallScore,
		string(result.RiskLevel),
		string(result.Decision),
		result.Confidence,
		pq.Array(result.Recommendations),
		pq.Array(result.Flags),
		signalsJSON,
		result.Escalated,
		result.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert verdict: %w", err)
	}
	return nil
}

// ListVerdicts returns the recorded verdicts for a transaction, newest first
func (r *AuditRepository) ListVerdicts(ctx context.Context, transactionID string, limit int) ([]*VerdictRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	query := `
		SELECT id, transaction_id, user_id, overall_score, risk_level, decision,
		       confidence, recommendations, flags, signals, escalated, created_at
		FROM risk_verdicts
		WHERE transaction_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, transactionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query verdicts: %w", err)
	}
	defer rows.Close()

	records := make([]*VerdictRecord, 0)
	for rows.Next() {
		var rec VerdictRecord
		var signalsJSON []byte
		if err := rows.Scan(
			&rec.ID,
			&rec.TransactionID,
			&rec.UserID,
			&rec.OverallScore,
			&rec.RiskLevel,
			&rec.Decision,
			&rec.Confidence,
			pq.Array(&rec.Recommendations),
			pq.Array(&rec.Flags),
			&signalsJSON,
			&rec.Escalated,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan verdict: %w", err)
		}
		if len(signalsJSON) > 0 {
			if err := json.Unmarshal(signalsJSON, &rec.Signals); err != nil {
				rec.Signals = nil
			}
		}
		records = append(records, &rec)
	}

	return records, rows.Err()
}
