package signals

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/richxcame/trust-risk/internal/devicehistory"
	"github.com/richxcame/trust-risk/pkg/models"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Internal signal names.
const (
	SignalAccountAge         = "account_age"
	SignalTransactionHistory = "transaction_history"
	SignalDeviceFingerprint  = "device_fingerprint"
	SignalVelocity           = "velocity"
	SignalBehaviorPattern    = "behavior_pattern"
)

// HistoryLimit bounds the transaction history the collector reads.
const HistoryLimit = 100

var tracer = otel.Tracer("github.com/richxcame/trust-risk/internal/signals")

// Weights are the fixed weights attached to each internal signal.
type Weights struct {
	AccountAge         float64
	TransactionHistory float64
	DeviceFingerprint  float64
	Velocity           float64
	BehaviorPattern    float64
}

// DefaultWeights returns the standard internal signal weights.
func DefaultWeights() Weights {
	return Weights{
		AccountAge:         0.10,
		TransactionHistory: 0.15,
		DeviceFingerprint:  0.12,
		Velocity:           0.08,
		BehaviorPattern:    0.10,
	}
}

// Collector derives internal signals from the user's own records.
type Collector struct {
	repo    Repository
	devices *devicehistory.Store
	weights Weights
	logger  *zap.Logger
	now     func() time.Time
}

// NewCollector creates a collector. devices may be nil to disable the
// device fingerprint signal.
func NewCollector(repo Repository, devices *devicehistory.Store, weights Weights, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{repo: repo, devices: devices, weights: weights, logger: logger, now: time.Now}
}

// Collect returns the internal signals for a transaction in a fixed order.
// A missing user yields no signals. A failing lookup drops only the signals
// that depend on it.
func (c *Collector) Collect(ctx context.Context, userID, transactionID, ip, userAgent, deviceFingerprint string) []models.Signal {
	ctx, span := tracer.Start(ctx, "signals.Collect")
	defer span.End()

	user, err := c.repo.GetUser(ctx, userID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			c.logger.Warn("failed to load user, no internal signals", zap.String("user_id", userID), zap.Error(err))
			recordDropped("user")
		}
		return []models.Signal{}
	}
	if user == nil {
		return []models.Signal{}
	}

	now := c.now()
	var (
		history    []models.Transaction
		historyErr error
		velocity   int
		velErr     error
		current    *models.Transaction
		device     *devicehistory.Snapshot
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		history, historyErr = c.repo.GetRecentTransactions(gctx, userID, HistoryLimit)
		return nil
	})
	g.Go(func() error {
		velocity, velErr = c.repo.CountTransactionsSince(gctx, userID, now.Add(-24*time.Hour))
		return nil
	})
	if transactionID != "" {
		g.Go(func() error {
			tx, err := c.repo.GetTransaction(gctx, transactionID)
			if err != nil && !errors.Is(err, ErrNotFound) {
				c.logger.Warn("failed to load transaction", zap.String("transaction_id", transactionID), zap.Error(err))
			}
			current = tx
			return nil
		})
	}
	if deviceFingerprint != "" && c.devices != nil {
		g.Go(func() error {
			snap := c.devices.Observe(gctx, deviceFingerprint, userID)
			device = &snap
			return nil
		})
	}
	_ = g.Wait()

	signals := make([]models.Signal, 0, 5)
	signals = append(signals, c.accountAge(user, now))

	if historyErr != nil {
		c.logger.Warn("failed to load transaction history", zap.String("user_id", userID), zap.Error(historyErr))
		recordDropped(SignalTransactionHistory)
	} else {
		signals = append(signals, c.transactionHistory(history))
	}

	if device != nil {
		signals = append(signals, c.deviceFingerprint(*device))
	}

	if velErr != nil {
		c.logger.Warn("failed to count recent transactions", zap.String("user_id", userID), zap.Error(velErr))
		recordDropped(SignalVelocity)
	} else {
		signals = append(signals, c.velocity(velocity))
	}

	if historyErr == nil && current != nil {
		if s, ok := c.behaviorPattern(current, history); ok {
			signals = append(signals, s)
		}
	}

	return signals
}

func (c *Collector) accountAge(user *models.User, now time.Time) models.Signal {
	days := user.AccountAgeDays(now)
	score := 10.0
	switch {
	case days < 7:
		score = 60
	case days < 30:
		score = 30
	}
	return models.NewSignal(models.SignalTypeInternal, SignalAccountAge, score, c.weights.AccountAge, map[string]interface{}{
		"account_age_days":   days,
		"is_verified":        user.IsVerified,
		"verification_level": user.VerificationLevel,
	})
}

func (c *Collector) transactionHistory(history []models.Transaction) models.Signal {
	var completed, disputed int
	for _, tx := range history {
		switch tx.Status {
		case models.TransactionStatusCompleted:
			completed++
		case models.TransactionStatusDisputed:
			disputed++
		}
	}

	var ratio float64
	score := 15.0
	if completed == 0 {
		score = 40
	} else {
		ratio = float64(disputed) / float64(completed) * 100
		switch {
		case ratio > 20:
			score = 80
		case ratio > 10:
			score = 50
		}
	}

	return models.NewSignal(models.SignalTypeInternal, SignalTransactionHistory, score, c.weights.TransactionHistory, map[string]interface{}{
		"total_transactions":     len(history),
		"completed_transactions": completed,
		"disputed_transactions":  disputed,
		"dispute_ratio":          ratio,
	})
}

func (c *Collector) deviceFingerprint(snap devicehistory.Snapshot) models.Signal {
	score := 10.0
	switch {
	case snap.IsSuspicious:
		score = 70
	case snap.IsNewDevice:
		score = 50
	}
	return models.NewSignal(models.SignalTypeInternal, SignalDeviceFingerprint, score, c.weights.DeviceFingerprint, map[string]interface{}{
		"is_new_device": snap.IsNewDevice,
		"is_suspicious": snap.IsSuspicious,
		"device_count":  snap.DeviceCount,
	})
}

func (c *Collector) velocity(count int) models.Signal {
	score := 10.0
	switch {
	case count > 10:
		score = 70
	case count > 5:
		score = 40
	}
	return models.NewSignal(models.SignalTypeInternal, SignalVelocity, score, c.weights.Velocity, map[string]interface{}{
		"transactions_24h": count,
	})
}

// behaviorPattern compares the current amount with the average of the
// other historical transactions. It is skipped without usable history.
func (c *Collector) behaviorPattern(current *models.Transaction, history []models.Transaction) (models.Signal, bool) {
	var sum float64
	var n int
	for _, tx := range history {
		if tx.ID == current.ID {
			continue
		}
		sum += tx.Amount
		n++
	}
	if n == 0 || sum <= 0 {
		return models.Signal{}, false
	}

	avg := sum / float64(n)
	deviation := math.Abs(current.Amount-avg) / avg
	score := 10.0
	switch {
	case deviation > 5:
		score = 60
	case deviation > 2:
		score = 30
	}
	return models.NewSignal(models.SignalTypeInternal, SignalBehaviorPattern, score, c.weights.BehaviorPattern, map[string]interface{}{
		"current_amount": current.Amount,
		"average_amount": avg,
		"deviation":      deviation,
		"sample_size":    n,
	}), true
}
