package fraud

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/richxcame/trust-risk/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var verdictColumns = []string{
	"id", "transaction_id", "user_id", "overall_score", "risk_level", "decision",
	"confidence", "recommendations", "flags", "signals", "escalated", "created_at",
}

func newAuditRepository(t *testing.T) (*AuditRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewAuditRepository(db), mock
}

func TestAuditRepository_RecordVerdict(t *testing.T) {
	repo, mock := newAuditRepository(t)
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	result := &FraudDetectionResult{
		TransactionID:   "5001",
		UserID:          "101",
		OverallScore:    72.5,
		RiskLevel:       models.RiskLevelHigh,
		Decision:        DecisionBlock,
		Confidence:      0.6,
		Recommendations: []string{RecommendBlock},
		Flags:           []string{FlagDeviceIPCritical},
		Signals:         []models.Signal{sig("velocity", 70, 0.08)},
		Escalated:       true,
		Timestamp:       ts,
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO risk_verdicts")).
		WithArgs(sqlmock.AnyArg(), "5001", "101", 72.5, "high", "block", 0.6,
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), true, ts).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.RecordVerdict(context.Background(), result))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepository_RecordVerdictError(t *testing.T) {
	repo, mock := newAuditRepository(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO risk_verdicts")).
		WillReturnError(errors.New("connection reset"))

	err := repo.RecordVerdict(context.Background(), &FraudDetectionResult{TransactionID: "1", UserID: "2"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to insert verdict")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepository_ListVerdicts(t *testing.T) {
	repo, mock := newAuditRepository(t)
	id := uuid.New()
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	signalsJSON, err := json.Marshal([]models.Signal{sig("account_age", 60, 0.1)})
	require.NoError(t, err)

	rows := sqlmock.NewRows(verdictColumns).
		AddRow(id.String(), "5001", "101", 39.2, "high", "block", 0.55,
			"{\"Block transaction\",\"Monitor\"}", "{device_ip_critical}", signalsJSON, true, ts)
	mock.ExpectQuery(regexp.QuoteMeta("FROM risk_verdicts")).
		WithArgs("5001", 5).
		WillReturnRows(rows)

	records, err := repo.ListVerdicts(context.Background(), "5001", 5)
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, id, rec.ID)
	assert.Equal(t, models.RiskLevelHigh, rec.RiskLevel)
	assert.Equal(t, DecisionBlock, rec.Decision)
	assert.Equal(t, []string{"Block transaction", "Monitor"}, rec.Recommendations)
	assert.Equal(t, []string{"device_ip_critical"}, rec.Flags)
	require.Len(t, rec.Signals, 1)
	assert.Equal(t, "account_age", rec.Signals[0].Name)
	assert.True(t, rec.Escalated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepository_ListVerdictsDefaultsLimit(t *testing.T) {
	repo, mock := newAuditRepository(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM risk_verdicts")).
		WithArgs("7", 20).
		WillReturnRows(sqlmock.NewRows(verdictColumns))

	records, err := repo.ListVerdicts(context.Background(), "7", 500)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.NoError(t, mock.ExpectationsWereMet())
}
