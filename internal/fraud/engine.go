package fraud

import (
	"context"
	"fmt"
	"time"

	"github.com/richxcame/trust-risk/internal/cache"
	"github.com/richxcame/trust-risk/internal/deviceip"
	"github.com/richxcame/trust-risk/internal/vendors"
	"github.com/richxcame/trust-risk/pkg/common"
	"github.com/richxcame/trust-risk/pkg/logger"
	"github.com/richxcame/trust-risk/pkg/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("github.com/richxcame/trust-risk/internal/fraud")

// Engine scores transactions from internal, vendor and anomaly signals and
// caches each verdict per transaction.
type Engine struct {
	cfg       ScoringConfig
	cache     *cache.Cache
	collector SignalCollector
	composer  DeviceIPAssessor
	identity  vendors.IdentityAdapter
	anomaly   AnomalyScorer
	audit     AuditStore
	publisher VerdictPublisher
	logger    *zap.Logger
	now       func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithAnomalyScorer replaces the heuristic anomaly scorer.
func WithAnomalyScorer(a AnomalyScorer) Option {
	return func(e *Engine) { e.anomaly = a }
}

// WithAuditStore records every fresh verdict.
func WithAuditStore(a AuditStore) Option {
	return func(e *Engine) { e.audit = a }
}

// WithPublisher announces high and critical verdicts.
func WithPublisher(p VerdictPublisher) Option {
	return func(e *Engine) { e.publisher = p }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates a scoring engine. composer and identity may be nil, in
// which case the matching vendor signals are never produced.
func NewEngine(cfg ScoringConfig, c *cache.Cache, collector SignalCollector, composer DeviceIPAssessor, identity vendors.IdentityAdapter, log *zap.Logger, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scoring config: %w", err)
	}
	if cfg.ShortTTL <= 0 {
		cfg.ShortTTL = time.Hour
	}
	if log == nil {
		log = zap.NewNop()
	}

	e := &Engine{
		cfg:       cfg,
		cache:     c,
		collector: collector,
		composer:  composer,
		identity:  identity,
		anomaly:   NewHeuristicAnomalyScorer(cfg.AnomalyWeight),
		logger:    log,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Config returns a copy of the scoring configuration.
func (e *Engine) Config() ScoringConfig {
	return e.cfg
}

// AnalyzeTransaction returns the cached verdict for the transaction if one is
// live, otherwise computes, caches and returns a fresh one. The only error is
// a rejected request.
func (e *Engine) AnalyzeTransaction(ctx context.Context, req AnalyzeRequest) (*FraudDetectionResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	if cached, ok := e.cachedResult(ctx, req.TransactionID); ok {
		analysesTotal.WithLabelValues(string(cached.RiskLevel), "cache").Inc()
		return cached, nil
	}

	result := e.analyze(ctx, req)
	e.persist(ctx, result)
	return result, nil
}

// ReanalyzeTransaction ignores any cached verdict and overwrites it.
func (e *Engine) ReanalyzeTransaction(ctx context.Context, req AnalyzeRequest) (*FraudDetectionResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	result := e.analyze(ctx, req)
	e.persist(ctx, result)
	return result, nil
}

// GetCachedResult returns the live cached verdict for a transaction, if any.
func (e *Engine) GetCachedResult(ctx context.Context, transactionID string) (*FraudDetectionResult, bool, error) {
	if err := ValidateID("transaction_id", transactionID); err != nil {
		return nil, false, err
	}
	result, ok := e.cachedResult(ctx, transactionID)
	return result, ok, nil
}

// AssessDeviceIPRisk runs the composite device/IP assessment.
func (e *Engine) AssessDeviceIPRisk(ctx context.Context, userID, ip, deviceFingerprint, email string) (*deviceip.DeviceIPRiskAssessment, error) {
	if err := ValidateID("user_id", userID); err != nil {
		return nil, err
	}
	if e.composer == nil {
		return nil, common.NewServiceUnavailableError("device/IP assessment is not configured", nil)
	}
	return e.composer.Assess(ctx, userID, ip, deviceFingerprint, email), nil
}

// VerdictHistory lists recorded verdicts for a transaction, newest first.
func (e *Engine) VerdictHistory(ctx context.Context, transactionID string, limit int) ([]*VerdictRecord, error) {
	if err := ValidateID("transaction_id", transactionID); err != nil {
		return nil, err
	}
	if e.audit == nil {
		return nil, common.NewServiceUnavailableError("verdict audit log is not configured", nil)
	}
	records, err := e.audit.ListVerdicts(ctx, transactionID, limit)
	if err != nil {
		return nil, common.NewInternalServerError("failed to list verdicts", err)
	}
	return records, nil
}

func (e *Engine) loggerFor(ctx context.Context) *zap.Logger {
	if id := logger.CorrelationID(ctx); id != "" {
		return e.logger.With(zap.String("correlation_id", id))
	}
	return e.logger
}

func validateRequest(req AnalyzeRequest) error {
	if err := ValidateID("transaction_id", req.TransactionID); err != nil {
		return err
	}
	return ValidateID("user_id", req.UserID)
}

func (e *Engine) cachedResult(ctx context.Context, transactionID string) (*FraudDetectionResult, bool) {
	var result FraudDetectionResult
	if !e.cache.Get(ctx, cache.NamespaceFraudResult, transactionID, &result) {
		return nil, false
	}
	return &result, true
}

// vendorOutcome is what the vendor stage contributes to a verdict.
type vendorOutcome struct {
	signals    []models.Signal
	results    map[string]interface{}
	assessment *deviceip.DeviceIPRiskAssessment
}

func (e *Engine) analyze(ctx context.Context, req AnalyzeRequest) *FraudDetectionResult {
	ctx, span := tracer.Start(ctx, "fraud.Analyze")
	defer span.End()
	start := e.now()
	log := e.loggerFor(ctx)

	var (
		internal []models.Signal
		vendor   vendorOutcome
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		internal = e.collector.Collect(gctx, req.UserID, req.TransactionID, req.IPAddress, req.UserAgent, req.DeviceFingerprint)
		return nil
	})
	if e.cfg.VendorAPIsEnabled {
		g.Go(func() error {
			vendor = e.collectVendor(gctx, req)
			return nil
		})
	}
	_ = g.Wait()

	sigs := make([]models.Signal, 0, len(internal)+len(vendor.signals)+1)
	sigs = append(sigs, internal...)
	sigs = append(sigs, vendor.signals...)

	if e.cfg.MLScoringEnabled && e.anomaly != nil {
		s, err := e.anomaly.Score(ctx, sigs)
		if err != nil {
			log.Warn("anomaly scoring failed, signal dropped", zap.Error(err))
			signalsDropped.WithLabelValues(SignalAnomaly).Inc()
		} else if s != nil {
			sigs = append(sigs, *s)
		}
	}

	score := Aggregate(sigs)
	level := e.cfg.Thresholds.Classify(score)

	flags := []string{}
	if len(internal) == 0 {
		flags = append(flags, FlagInsufficientData)
	}

	var extra []string
	escalated := false
	if a := vendor.assessment; a != nil {
		extra = a.SpecificRecommendations()
		// A critical device/IP composite floors the verdict at high.
		if a.RiskLevel == models.RiskLevelCritical {
			flags = append(flags, FlagDeviceIPCritical)
			if level.Rank() < models.RiskLevelHigh.Rank() {
				level = models.RiskLevelHigh
				escalated = true
			}
		}
	}

	result := &FraudDetectionResult{
		TransactionID:   req.TransactionID,
		UserID:          req.UserID,
		OverallScore:    score,
		RiskLevel:       level,
		Decision:        DecisionFor(level),
		Signals:         sigs,
		Confidence:      Confidence(sigs),
		Recommendations: Recommend(level, sigs, extra...),
		Flags:           flags,
		VendorResults:   vendor.results,
		Escalated:       escalated,
		Timestamp:       e.now().UTC(),
	}

	analysisDuration.Observe(e.now().Sub(start).Seconds())
	analysesTotal.WithLabelValues(string(level), "fresh").Inc()
	span.SetAttributes(
		attribute.String("risk.transaction_id", req.TransactionID),
		attribute.Float64("risk.score", score),
		attribute.String("risk.level", string(level)),
		attribute.Int("risk.signals", len(sigs)),
	)
	log.Info("transaction analyzed",
		zap.String("transaction_id", req.TransactionID),
		zap.Float64("score", score),
		zap.String("risk_level", string(level)),
		zap.Float64("confidence", result.Confidence),
		zap.Int("signals", len(sigs)),
		zap.Bool("escalated", escalated),
	)
	return result
}

// collectVendor runs the identity check and the device/IP composite in
// parallel and wraps their results as vendor signals in a fixed order.
func (e *Engine) collectVendor(ctx context.Context, req AnalyzeRequest) vendorOutcome {
	var (
		identity   *vendors.IdentityResult
		assessment *deviceip.DeviceIPRiskAssessment
	)

	g, gctx := errgroup.WithContext(ctx)
	if e.identity != nil {
		g.Go(func() error {
			identity = e.checkIdentity(gctx, req)
			return nil
		})
	}
	if e.composer != nil {
		g.Go(func() error {
			// The collector already observes the device; passing it here
			// would record the same association twice.
			assessment = e.composer.Assess(gctx, req.UserID, req.IPAddress, "", req.Email)
			return nil
		})
	}
	_ = g.Wait()

	out := vendorOutcome{results: make(map[string]interface{}), assessment: assessment}
	w := e.cfg.Vendor

	if identity != nil {
		out.results["identity"] = identity
		out.signals = append(out.signals, models.NewSignal(models.SignalTypeVendor, SignalIdentity, identity.RiskScore, w.Identity, map[string]interface{}{
			"verified":   identity.Verified,
			"confidence": identity.Confidence,
			"flags":      identity.Flags,
			"provider":   identity.Provider,
		}))
	}
	if assessment != nil {
		if ip := assessment.IPReputation; ip != nil {
			out.results["ip_reputation"] = ip
			out.signals = append(out.signals, models.NewSignal(models.SignalTypeVendor, SignalIPReputation, ip.RiskScore, w.IPReputation, map[string]interface{}{
				"is_proxy":     ip.IsProxy,
				"is_vpn":       ip.IsVPN,
				"is_tor":       ip.IsTor,
				"country":      ip.Country,
				"threat_level": ip.ThreatLevel,
				"provider":     ip.Provider,
			}))
		}
		if threat := assessment.ThreatIntelligence; threat != nil {
			out.results["threat_intel"] = threat
			out.signals = append(out.signals, models.NewSignal(models.SignalTypeVendor, SignalThreatIntel, threat.RiskScore, w.ThreatIntel, map[string]interface{}{
				"is_threat":    threat.IsThreat,
				"threat_types": threat.ThreatTypes,
				"provider":     threat.Provider,
			}))
		}
		out.results["device_ip"] = map[string]interface{}{
			"overall_risk_score": assessment.OverallRiskScore,
			"risk_level":         assessment.RiskLevel,
			"flags":              assessment.Flags,
		}
	}
	if len(out.results) == 0 {
		out.results = nil
	}
	return out
}

func (e *Engine) checkIdentity(ctx context.Context, req AnalyzeRequest) *vendors.IdentityResult {
	key := cache.HashKey(req.UserID, req.Email)
	res, err := cache.GetOrSet(ctx, e.cache, cache.NamespaceIdentity, key, e.cfg.ShortTTL,
		func(ctx context.Context) (*vendors.IdentityResult, error) {
			return e.identity.CheckIdentity(ctx, vendors.IdentityRequest{UserID: req.UserID, Email: req.Email})
		})
	if err != nil {
		e.loggerFor(ctx).Warn("identity check failed, signal dropped",
			zap.String("provider", e.identity.Name()),
			zap.Error(err),
		)
		signalsDropped.WithLabelValues(SignalIdentity).Inc()
		return nil
	}
	return res
}

// persist caches the verdict and runs the best-effort side effects. None of
// them can fail the request.
func (e *Engine) persist(ctx context.Context, result *FraudDetectionResult) {
	e.cache.Set(ctx, cache.NamespaceFraudResult, result.TransactionID, result, e.cfg.ResultTTL)
	log := e.loggerFor(ctx)

	if e.audit != nil {
		if err := e.audit.RecordVerdict(ctx, result); err != nil {
			sideEffectErrors.WithLabelValues("audit").Inc()
			log.Warn("failed to record verdict", zap.String("transaction_id", result.TransactionID), zap.Error(err))
		}
	}

	if e.publisher != nil && result.RiskLevel.Rank() >= models.RiskLevelHigh.Rank() {
		if err := e.publisher.PublishVerdict(ctx, result); err != nil {
			sideEffectErrors.WithLabelValues("publish").Inc()
			log.Warn("failed to publish verdict", zap.String("transaction_id", result.TransactionID), zap.Error(err))
		}
	}
}
