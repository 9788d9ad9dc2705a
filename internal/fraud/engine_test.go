package fraud

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/richxcame/trust-risk/internal/cache"
	"github.com/richxcame/trust-risk/internal/devicehistory"
	"github.com/richxcame/trust-risk/internal/deviceip"
	"github.com/richxcame/trust-risk/internal/signals"
	"github.com/richxcame/trust-risk/internal/vendors"
	"github.com/richxcame/trust-risk/pkg/common"
	"github.com/richxcame/trust-risk/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type stubCollector struct {
	mu      sync.Mutex
	signals []models.Signal
	calls   int
}

func (s *stubCollector) Collect(ctx context.Context, userID, transactionID, ip, userAgent, deviceFingerprint string) []models.Signal {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return append([]models.Signal(nil), s.signals...)
}

func (s *stubCollector) set(sigs ...models.Signal) {
	s.mu.Lock()
	s.signals = sigs
	s.mu.Unlock()
}

type mockSignalRepository struct {
	mock.Mock
}

func (m *mockSignalRepository) GetUser(ctx context.Context, userID string) (*models.User, error) {
	args := m.Called(ctx, userID)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *mockSignalRepository) GetRecentTransactions(ctx context.Context, userID string, limit int) ([]models.Transaction, error) {
	args := m.Called(ctx, userID, limit)
	txs, _ := args.Get(0).([]models.Transaction)
	return txs, args.Error(1)
}

func (m *mockSignalRepository) CountTransactionsSince(ctx context.Context, userID string, since time.Time) (int, error) {
	args := m.Called(ctx, userID, since)
	return args.Int(0), args.Error(1)
}

func (m *mockSignalRepository) GetTransaction(ctx context.Context, transactionID string) (*models.Transaction, error) {
	args := m.Called(ctx, transactionID)
	tx, _ := args.Get(0).(*models.Transaction)
	return tx, args.Error(1)
}

type mockAuditStore struct {
	mock.Mock
}

func (m *mockAuditStore) RecordVerdict(ctx context.Context, result *FraudDetectionResult) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}

func (m *mockAuditStore) ListVerdicts(ctx context.Context, transactionID string, limit int) ([]*VerdictRecord, error) {
	args := m.Called(ctx, transactionID, limit)
	records, _ := args.Get(0).([]*VerdictRecord)
	return records, args.Error(1)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishVerdict(ctx context.Context, result *FraudDetectionResult) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}

type failingIdentity struct{}

func (failingIdentity) Name() string { return "failing" }

func (failingIdentity) CheckIdentity(ctx context.Context, req vendors.IdentityRequest) (*vendors.IdentityResult, error) {
	return nil, errors.New("identity vendor timeout")
}

// world wires the real composer, device store and static vendors around a
// given collector.
type world struct {
	cache    *cache.Cache
	store    *devicehistory.Store
	ipRep    *vendors.StaticIPReputation
	threat   *vendors.StaticThreatIntel
	identity *vendors.StaticIdentity
	composer *deviceip.Composer
}

func newWorld(threatFallback *vendors.ThreatIntelResult) *world {
	c := cache.New(cache.NewMemoryBackend(0), "risk", nil)
	w := &world{
		cache:    c,
		store:    devicehistory.NewStore(c, 30*24*time.Hour, nil),
		ipRep:    vendors.DefaultStaticIPReputation(),
		threat:   vendors.NewStaticThreatIntel(threatFallback),
		identity: vendors.DefaultStaticIdentity(),
	}
	w.composer = deviceip.NewComposer(c, w.ipRep, w.threat, w.store, deviceip.DefaultConfig(), nil)
	return w
}

func (w *world) engine(t *testing.T, collector SignalCollector, cfg ScoringConfig, opts ...Option) *Engine {
	t.Helper()
	e, err := NewEngine(cfg, w.cache, collector, w.composer, w.identity, nil, opts...)
	require.NoError(t, err)
	return e
}

func signalByName(result *FraudDetectionResult, name string) (models.Signal, bool) {
	for _, s := range result.Signals {
		if s.Name == name {
			return s, true
		}
	}
	return models.Signal{}, false
}

func TestAnalyzeTransaction_NewUserOnTorExit(t *testing.T) {
	w := newWorld(nil)
	w.ipRep.Put("185.220.101.4", &vendors.IPReputationResult{
		RiskScore:   90,
		IsTor:       true,
		Country:     "DE",
		ThreatLevel: vendors.ThreatLevelHigh,
		Flags:       []string{deviceip.FlagTor},
		Provider:    "static",
	})

	repo := new(mockSignalRepository)
	repo.On("GetUser", mock.Anything, "101").Return(&models.User{ID: "101", CreatedAt: time.Now().Add(-48 * time.Hour)}, nil)
	repo.On("GetRecentTransactions", mock.Anything, "101", signals.HistoryLimit).Return([]models.Transaction{}, nil)
	repo.On("CountTransactionsSince", mock.Anything, "101", mock.AnythingOfType("time.Time")).Return(0, nil)
	repo.On("GetTransaction", mock.Anything, "5001").Return(&models.Transaction{ID: "5001", UserID: "101", Amount: 900}, nil)

	collector := signals.NewCollector(repo, w.store, signals.DefaultWeights(), nil)
	e := w.engine(t, collector, DefaultScoringConfig())

	result, err := e.AnalyzeTransaction(context.Background(), AnalyzeRequest{
		TransactionID: "5001",
		UserID:        "101",
		IPAddress:     "185.220.101.4",
	})
	require.NoError(t, err)

	age, ok := signalByName(result, signals.SignalAccountAge)
	require.True(t, ok)
	assert.Equal(t, 60.0, age.Score)

	history, ok := signalByName(result, signals.SignalTransactionHistory)
	require.True(t, ok)
	assert.Equal(t, 40.0, history.Score)

	ip, ok := signalByName(result, SignalIPReputation)
	require.True(t, ok)
	assert.Equal(t, 90.0, ip.Score)
	assert.Equal(t, models.SignalTypeVendor, ip.Type)

	composite, ok := result.VendorResults["device_ip"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, models.RiskLevelCritical, composite["risk_level"])
	assert.GreaterOrEqual(t, composite["overall_risk_score"].(float64), 85.0)

	assert.Equal(t, models.RiskLevelHigh, result.RiskLevel)
	assert.True(t, result.Escalated)
	assert.Equal(t, DecisionBlock, result.Decision)
	assert.Contains(t, result.Flags, FlagDeviceIPCritical)
	assert.Contains(t, result.Recommendations, RecommendBlock)
	assert.Contains(t, result.Recommendations, deviceip.RecommendTorBlock)
	assert.Contains(t, result.Recommendations, RecommendIPReputation)
}

func TestAnalyzeTransaction_TrustedUserIsLow(t *testing.T) {
	w := newWorld(&vendors.ThreatIntelResult{RiskScore: 5, ThreatTypes: []string{}, Provider: "static"})

	history := make([]models.Transaction, 50)
	for i := range history {
		history[i] = models.Transaction{ID: "h" + strconv.Itoa(i), UserID: "102", Amount: 100, Status: models.TransactionStatusCompleted}
	}

	repo := new(mockSignalRepository)
	repo.On("GetUser", mock.Anything, "102").Return(&models.User{ID: "102", IsVerified: true, CreatedAt: time.Now().AddDate(0, 0, -400)}, nil)
	repo.On("GetRecentTransactions", mock.Anything, "102", signals.HistoryLimit).Return(history, nil)
	repo.On("CountTransactionsSince", mock.Anything, "102", mock.AnythingOfType("time.Time")).Return(1, nil)
	repo.On("GetTransaction", mock.Anything, "5002").Return(&models.Transaction{ID: "5002", UserID: "102", Amount: 110}, nil)

	w.store.Observe(context.Background(), "fp-home", "102")

	collector := signals.NewCollector(repo, w.store, signals.DefaultWeights(), nil)
	e := w.engine(t, collector, DefaultScoringConfig())

	result, err := e.AnalyzeTransaction(context.Background(), AnalyzeRequest{
		TransactionID:     "5002",
		UserID:            "102",
		IPAddress:         "8.8.8.8",
		DeviceFingerprint: "fp-home",
	})
	require.NoError(t, err)

	assert.Equal(t, models.RiskLevelLow, result.RiskLevel)
	assert.Less(t, result.OverallScore, 20.0)
	assert.Equal(t, DecisionApprove, result.Decision)
	assert.Empty(t, result.Recommendations)
	assert.False(t, result.Escalated)

	device, ok := signalByName(result, signals.SignalDeviceFingerprint)
	require.True(t, ok)
	assert.Equal(t, 10.0, device.Score)

	_, ok = signalByName(result, signals.SignalBehaviorPattern)
	assert.True(t, ok)
	assert.Len(t, result.Signals, 9)
}

func TestAnalyzeTransaction_CacheHitIsDeterministic(t *testing.T) {
	w := newWorld(nil)
	collector := &stubCollector{}
	collector.set(sig(signals.SignalAccountAge, 30, 0.10), sig(signals.SignalVelocity, 40, 0.08))
	e := w.engine(t, collector, DefaultScoringConfig())
	req := AnalyzeRequest{TransactionID: "77", UserID: "9", IPAddress: "8.8.8.8"}

	first, err := e.AnalyzeTransaction(context.Background(), req)
	require.NoError(t, err)

	collector.set(sig(signals.SignalAccountAge, 60, 0.10))
	second, err := e.AnalyzeTransaction(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first.OverallScore, second.OverallScore)
	assert.Equal(t, first.RiskLevel, second.RiskLevel)
	assert.Equal(t, first.Confidence, second.Confidence)
	assert.Equal(t, 1, collector.calls)

	cached, ok, err := e.GetCachedResult(context.Background(), "77")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, first.OverallScore, cached.OverallScore)
}

func TestReanalyzeTransaction_OverwritesCache(t *testing.T) {
	w := newWorld(nil)
	collector := &stubCollector{}
	collector.set(sig(signals.SignalAccountAge, 10, 0.10))
	cfg := DefaultScoringConfig()
	cfg.VendorAPIsEnabled = false
	cfg.MLScoringEnabled = false
	e := w.engine(t, collector, cfg)
	req := AnalyzeRequest{TransactionID: "78", UserID: "9"}

	first, err := e.AnalyzeTransaction(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 10.0, first.OverallScore)

	collector.set(sig(signals.SignalAccountAge, 60, 0.10))
	again, err := e.ReanalyzeTransaction(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 60.0, again.OverallScore)

	cached, ok, err := e.GetCachedResult(context.Background(), "78")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 60.0, cached.OverallScore)
	assert.Equal(t, models.RiskLevelMedium, cached.RiskLevel)
}

func TestAnalyzeTransaction_NoSignalsScoresZero(t *testing.T) {
	w := newWorld(nil)
	cfg := DefaultScoringConfig()
	cfg.VendorAPIsEnabled = false
	e := w.engine(t, &stubCollector{}, cfg)

	result, err := e.AnalyzeTransaction(context.Background(), AnalyzeRequest{TransactionID: "1", UserID: "2"})
	require.NoError(t, err)

	assert.Equal(t, 0.0, result.OverallScore)
	assert.Equal(t, models.RiskLevelLow, result.RiskLevel)
	assert.Empty(t, result.Signals)
	assert.Equal(t, 0.3, result.Confidence)
	assert.Contains(t, result.Flags, FlagInsufficientData)
	assert.Nil(t, result.VendorResults)
}

func TestAnalyzeTransaction_VendorFailureDropsSignal(t *testing.T) {
	w := newWorld(&vendors.ThreatIntelResult{RiskScore: 5})
	collector := &stubCollector{}
	collector.set(sig(signals.SignalAccountAge, 10, 0.10))

	e, err := NewEngine(DefaultScoringConfig(), w.cache, collector, w.composer, failingIdentity{}, nil)
	require.NoError(t, err)

	result, err := e.AnalyzeTransaction(context.Background(), AnalyzeRequest{TransactionID: "3", UserID: "4", IPAddress: "8.8.8.8"})
	require.NoError(t, err)

	_, ok := signalByName(result, SignalIdentity)
	assert.False(t, ok)
	_, ok = signalByName(result, SignalIPReputation)
	assert.True(t, ok)
	_, ok = signalByName(result, SignalThreatIntel)
	assert.True(t, ok)
	assert.NotContains(t, result.VendorResults, "identity")
}

func TestAnalyzeTransaction_VendorSignalsInFixedOrder(t *testing.T) {
	w := newWorld(&vendors.ThreatIntelResult{RiskScore: 5})
	collector := &stubCollector{}
	collector.set(sig(signals.SignalAccountAge, 10, 0.10))
	e := w.engine(t, collector, DefaultScoringConfig())

	result, err := e.AnalyzeTransaction(context.Background(), AnalyzeRequest{TransactionID: "5", UserID: "6", IPAddress: "8.8.8.8"})
	require.NoError(t, err)

	names := make([]string, 0, len(result.Signals))
	for _, s := range result.Signals {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{signals.SignalAccountAge, SignalIdentity, SignalIPReputation, SignalThreatIntel, SignalAnomaly}, names)
	assert.Equal(t, 0.15, result.Signals[1].Weight)
	assert.Equal(t, 0.12, result.Signals[2].Weight)
	assert.Equal(t, 0.10, result.Signals[3].Weight)
	assert.Equal(t, 0.08, result.Signals[4].Weight)
	assert.Contains(t, result.VendorResults, "identity")
	assert.Contains(t, result.VendorResults, "ip_reputation")
	assert.Contains(t, result.VendorResults, "threat_intel")
}

func TestAnalyzeTransaction_InvalidIDsRejected(t *testing.T) {
	w := newWorld(nil)
	collector := &stubCollector{}
	e := w.engine(t, collector, DefaultScoringConfig())

	tests := []AnalyzeRequest{
		{TransactionID: "abc", UserID: "1"},
		{TransactionID: "1", UserID: "-1"},
		{TransactionID: "", UserID: "1"},
		{TransactionID: " 123 ", UserID: "1"},
		{TransactionID: "1", UserID: "42\n"},
	}
	for _, req := range tests {
		_, err := e.AnalyzeTransaction(context.Background(), req)
		require.Error(t, err)
		appErr, ok := common.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, http.StatusBadRequest, appErr.Code)
	}
	assert.Equal(t, 0, collector.calls)

	_, _, err := e.GetCachedResult(context.Background(), "not-an-id")
	assert.Error(t, err)

	_, err = e.AssessDeviceIPRisk(context.Background(), "x", "8.8.8.8", "", "")
	assert.Error(t, err)
}

func TestAnalyzeTransaction_AuditAndPublish(t *testing.T) {
	w := newWorld(nil)
	collector := &stubCollector{}
	collector.set(sig(signals.SignalAccountAge, 90, 0.10), sig(signals.SignalVelocity, 90, 0.08))
	cfg := DefaultScoringConfig()
	cfg.VendorAPIsEnabled = false
	cfg.MLScoringEnabled = false

	audit := new(mockAuditStore)
	publisher := new(mockPublisher)
	audit.On("RecordVerdict", mock.Anything, mock.MatchedBy(func(r *FraudDetectionResult) bool {
		return r.TransactionID == "10"
	})).Return(errors.New("db down")).Once()
	publisher.On("PublishVerdict", mock.Anything, mock.MatchedBy(func(r *FraudDetectionResult) bool {
		return r.RiskLevel == models.RiskLevelCritical
	})).Return(nil).Once()

	e := w.engine(t, collector, cfg, WithAuditStore(audit), WithPublisher(publisher))

	result, err := e.AnalyzeTransaction(context.Background(), AnalyzeRequest{TransactionID: "10", UserID: "11"})
	require.NoError(t, err)
	assert.Equal(t, models.RiskLevelCritical, result.RiskLevel)

	audit.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestAnalyzeTransaction_LowRiskNotPublished(t *testing.T) {
	w := newWorld(nil)
	collector := &stubCollector{}
	collector.set(sig(signals.SignalAccountAge, 10, 0.10))
	cfg := DefaultScoringConfig()
	cfg.VendorAPIsEnabled = false

	publisher := new(mockPublisher)
	e := w.engine(t, collector, cfg, WithPublisher(publisher))

	_, err := e.AnalyzeTransaction(context.Background(), AnalyzeRequest{TransactionID: "12", UserID: "11"})
	require.NoError(t, err)
	publisher.AssertNotCalled(t, "PublishVerdict", mock.Anything, mock.Anything)
}

func TestVerdictHistory(t *testing.T) {
	w := newWorld(nil)
	e := w.engine(t, &stubCollector{}, DefaultScoringConfig())

	_, err := e.VerdictHistory(context.Background(), "10", 5)
	appErr, ok := common.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusServiceUnavailable, appErr.Code)

	audit := new(mockAuditStore)
	records := []*VerdictRecord{{TransactionID: "10", RiskLevel: models.RiskLevelLow}}
	audit.On("ListVerdicts", mock.Anything, "10", 5).Return(records, nil).Once()
	e = w.engine(t, &stubCollector{}, DefaultScoringConfig(), WithAuditStore(audit))

	got, err := e.VerdictHistory(context.Background(), "10", 5)
	require.NoError(t, err)
	assert.Equal(t, records, got)
}

func TestAssessDeviceIPRisk(t *testing.T) {
	w := newWorld(nil)
	e := w.engine(t, &stubCollector{}, DefaultScoringConfig())

	a, err := e.AssessDeviceIPRisk(context.Background(), "42", "", "", "")
	require.NoError(t, err)
	assert.Equal(t, 50.0, a.OverallRiskScore)
	assert.Equal(t, models.RiskLevelMedium, a.RiskLevel)
	assert.True(t, a.HasFlag(deviceip.FlagInsufficientData))
}

func TestNewEngine_RejectsInvalidConfig(t *testing.T) {
	cfg := DefaultScoringConfig()
	cfg.Thresholds.Critical = 60
	_, err := NewEngine(cfg, nil, &stubCollector{}, nil, nil, nil)
	assert.Error(t, err)
}
