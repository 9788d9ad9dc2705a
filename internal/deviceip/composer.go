package deviceip

import (
	"context"
	"fmt"
	"math"
	"net"
	"strings"
	"time"

	"github.com/richxcame/trust-risk/internal/cache"
	"github.com/richxcame/trust-risk/internal/devicehistory"
	"github.com/richxcame/trust-risk/internal/vendors"
	"github.com/richxcame/trust-risk/pkg/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("github.com/richxcame/trust-risk/internal/deviceip")

// Composer runs the IP reputation, device and threat intel lookups in
// parallel and folds them into one weighted assessment.
type Composer struct {
	cache   *cache.Cache
	ipRep   vendors.IPReputationAdapter
	threat  vendors.ThreatIntelAdapter
	devices *devicehistory.Store
	cfg     Config
	logger  *zap.Logger
	now     func() time.Time
}

// NewComposer creates a composer. It panics on an invalid config since the
// config is built once at startup.
func NewComposer(c *cache.Cache, ipRep vendors.IPReputationAdapter, threat vendors.ThreatIntelAdapter, devices *devicehistory.Store, cfg Config, logger *zap.Logger) *Composer {
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("deviceip: %v", err))
	}
	if cfg.ShortTTL <= 0 {
		cfg.ShortTTL = time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Composer{
		cache:   c,
		ipRep:   ipRep,
		threat:  threat,
		devices: devices,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// ValidIP reports whether ip is usable for a reputation lookup.
func ValidIP(ip string) bool {
	ip = strings.TrimSpace(ip)
	if ip == "" || strings.EqualFold(ip, "unknown") {
		return false
	}
	return net.ParseIP(ip) != nil
}

// Assess evaluates the user, IP and device together. Any lookup may be
// absent; the assessment is still produced from whatever remains.
func (c *Composer) Assess(ctx context.Context, userID, ip, deviceFingerprint, email string) *DeviceIPRiskAssessment {
	ctx, span := tracer.Start(ctx, "deviceip.Assess")
	defer span.End()
	start := c.now()

	var (
		ipResult     *vendors.IPReputationResult
		deviceResult *DeviceFingerprintResult
		threatResult *vendors.ThreatIntelResult
	)

	// Lookups never return errors to the group so one failure cannot cancel
	// the others.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ipResult = c.IPReputation(gctx, ip)
		return nil
	})
	if deviceFingerprint != "" && userID != "" {
		g.Go(func() error {
			deviceResult = c.CheckDevice(gctx, deviceFingerprint, userID)
			return nil
		})
	}
	if userID != "" {
		g.Go(func() error {
			threatResult = c.ThreatIntel(gctx, userID, ip, email)
			return nil
		})
	}
	_ = g.Wait()

	assessment := c.compose(userID, ip, ipResult, deviceResult, threatResult)
	assessment.Metadata["assessment_ms"] = c.now().Sub(start).Milliseconds()

	span.SetAttributes(
		attribute.Float64("risk.score", assessment.OverallRiskScore),
		attribute.String("risk.level", string(assessment.RiskLevel)),
	)
	observeAssessment(assessment.RiskLevel)
	return assessment
}

// IPReputation returns the cached or freshly fetched reputation of ip, or
// nil when ip is unusable or no provider has data.
func (c *Composer) IPReputation(ctx context.Context, ip string) *vendors.IPReputationResult {
	if !ValidIP(ip) || c.ipRep == nil {
		return nil
	}
	ip = strings.TrimSpace(ip)

	res, err := cache.GetOrSet(ctx, c.cache, cache.NamespaceIPReputation, cache.HashKey(ip), c.cfg.ShortTTL,
		func(ctx context.Context) (*vendors.IPReputationResult, error) {
			return c.ipRep.CheckIPReputation(ctx, ip)
		})
	if err != nil {
		c.logger.Warn("ip reputation lookup failed", zap.String("provider", c.ipRep.Name()), zap.Error(err))
		return nil
	}
	return res
}

// ThreatIntel returns the cached or freshly fetched threat intelligence for
// (userID, ip), or nil when absent.
func (c *Composer) ThreatIntel(ctx context.Context, userID, ip, email string) *vendors.ThreatIntelResult {
	if c.threat == nil {
		return nil
	}
	ip = strings.TrimSpace(ip)
	if !ValidIP(ip) {
		ip = ""
	}

	res, err := cache.GetOrSet(ctx, c.cache, cache.NamespaceThreatIntel, cache.HashKey(userID, ip), c.cfg.ShortTTL,
		func(ctx context.Context) (*vendors.ThreatIntelResult, error) {
			return c.threat.CheckThreatIntel(ctx, vendors.ThreatIntelRequest{UserID: userID, IP: ip, Email: email})
		})
	if err != nil {
		c.logger.Warn("threat intel lookup failed", zap.String("provider", c.threat.Name()), zap.Error(err))
		return nil
	}
	return res
}

// CheckDevice records the device against the user and scores it. The
// history is observed on every call and the scored result is written through
// to the device check cache for the short TTL.
func (c *Composer) CheckDevice(ctx context.Context, deviceID, userID string) *DeviceFingerprintResult {
	if c.devices == nil {
		return nil
	}
	snap := c.devices.Observe(ctx, deviceID, userID)
	res := &DeviceFingerprintResult{
		DeviceID:        snap.DeviceID,
		IsNewDevice:     snap.IsNewDevice,
		IsSuspicious:    snap.IsSuspicious,
		DeviceCount:     snap.DeviceCount,
		FirstSeen:       snap.FirstSeen,
		LastSeen:        snap.LastSeen,
		AssociatedUsers: snap.AssociatedUsers,
		RiskScore:       DeviceRiskScore(snap),
	}
	c.cache.Set(ctx, cache.NamespaceDeviceCheck, cache.HashKey(deviceID, userID), res, c.cfg.ShortTTL)
	return res
}

// DeviceRiskScore scores a device snapshot: base 10, +40 new to the user,
// +30 shared, +20 more than five users, capped at 100.
func DeviceRiskScore(snap devicehistory.Snapshot) float64 {
	score := 10.0
	if snap.IsNewDevice {
		score += 40
	}
	if snap.IsSuspicious {
		score += 30
	}
	if snap.DeviceCount > 5 {
		score += 20
	}
	return math.Min(score, 100)
}

func (c *Composer) compose(userID, ip string, ipRes *vendors.IPReputationResult, device *DeviceFingerprintResult, threat *vendors.ThreatIntelResult) *DeviceIPRiskAssessment {
	w := c.cfg.Weights
	var weighted, total float64
	components := make([]string, 0, 3)

	if ipRes != nil {
		weighted += models.ClampScore(ipRes.RiskScore) * w.IPReputation
		total += w.IPReputation
		components = append(components, "ip_reputation")
	}
	if device != nil {
		weighted += models.ClampScore(device.RiskScore) * w.DeviceFingerprint
		total += w.DeviceFingerprint
		components = append(components, "device_fingerprint")
	}
	if threat != nil {
		weighted += models.ClampScore(threat.RiskScore) * w.ThreatIntel
		total += w.ThreatIntel
		components = append(components, "threat_intel")
	}

	flags := newFlagSet()
	score := c.cfg.DefaultScore
	if total > 0 {
		score = models.ClampScore(weighted / total)
	} else {
		flags.add(FlagInsufficientData)
	}

	level := c.classify(score)
	if total == 0 {
		level = models.RiskLevelMedium
	}

	var recs []string
	if ipRes != nil {
		flags.add(ipRes.Flags...)
		if ipRes.IsProxy {
			flags.add(FlagProxy)
		}
		if ipRes.IsVPN {
			flags.add(FlagVPN)
		}
		if ipRes.IsTor {
			flags.add(FlagTor)
		}
		if ipRes.IsProxy || ipRes.IsVPN {
			recs = append(recs, RecommendProxyVerification)
		}
		if ipRes.IsTor {
			recs = append(recs, RecommendTorBlock)
		}
	}
	if device != nil {
		if device.IsNewDevice {
			flags.add(FlagNewDevice)
			recs = append(recs, RecommendNewDevice)
		}
		if device.IsSuspicious {
			flags.add(FlagSharedDevice)
			recs = append(recs, RecommendSharedDevice)
		}
	}
	if threat != nil && threat.IsThreat {
		flags.add(FlagActiveThreat)
		for _, t := range threat.ThreatTypes {
			flags.add("threat:" + t)
		}
		recs = append(recs, RecommendThreat)
	}
	if len(recs) == 0 && level != models.RiskLevelLow {
		recs = append(recs, fmt.Sprintf("%s %s risk level", monitorPrefix, level))
	}
	if recs == nil {
		recs = []string{}
	}

	meta := map[string]interface{}{
		"components": components,
	}
	if ValidIP(ip) {
		meta["ip_hash"] = cache.HashKey(strings.TrimSpace(ip))
	}

	return &DeviceIPRiskAssessment{
		UserID:             userID,
		IPReputation:       ipRes,
		DeviceFingerprint:  device,
		ThreatIntelligence: threat,
		OverallRiskScore:   score,
		RiskLevel:          level,
		Recommendations:    recs,
		Flags:              flags.list(),
		Metadata:           meta,
		AssessedAt:         c.now().UTC(),
	}
}

func (c *Composer) classify(score float64) models.RiskLevel {
	t := c.cfg.Thresholds
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

// Recommendation texts.
const (
	RecommendProxyVerification = "Require additional identity verification: proxy or VPN detected"
	RecommendTorBlock          = "High risk: Tor exit node detected, consider blocking the transaction"
	RecommendNewDevice         = "New device detected: consider additional verification"
	RecommendSharedDevice      = "High risk: device is associated with multiple accounts"
	RecommendThreat            = "Security risk: user or IP matches active threat intelligence"

	monitorPrefix = "Monitor closely:"
)

type flagSet struct {
	seen  map[string]struct{}
	order []string
}

func newFlagSet() *flagSet {
	return &flagSet{seen: make(map[string]struct{})}
}

func (f *flagSet) add(flags ...string) {
	for _, fl := range flags {
		if fl == "" {
			continue
		}
		if _, ok := f.seen[fl]; ok {
			continue
		}
		f.seen[fl] = struct{}{}
		f.order = append(f.order, fl)
	}
}

func (f *flagSet) list() []string {
	if f.order == nil {
		return []string{}
	}
	return f.order
}
