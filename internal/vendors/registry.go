package vendors

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/richxcame/trust-risk/pkg/config"
	"go.uber.org/zap"
)

// Registry holds the configured adapter for each check. Every call through
// the registry runs under the vendor timeout.
type Registry struct {
	Identity     IdentityAdapter
	IPReputation IPReputationAdapter
	ThreatIntel  ThreatIntelAdapter

	closers []func() error
}

// NewRegistry builds adapters by provider name: static, http or geoip
// (IP reputation only).
func NewRegistry(cfg config.VendorConfig, logger *zap.Logger) (*Registry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{}

	identity, err := r.buildIdentity(cfg)
	if err != nil {
		return nil, err
	}
	ipRep, err := r.buildIPReputation(cfg, logger)
	if err != nil {
		r.Close()
		return nil, err
	}
	threat, err := r.buildThreatIntel(cfg)
	if err != nil {
		r.Close()
		return nil, err
	}

	r.Identity = &timedIdentity{next: identity, timeout: cfg.Timeout}
	r.IPReputation = &timedIPReputation{next: ipRep, timeout: cfg.Timeout}
	r.ThreatIntel = &timedThreatIntel{next: threat, timeout: cfg.Timeout}

	logger.Info("vendor adapters configured",
		zap.String("identity", identity.Name()),
		zap.String("ip_reputation", ipRep.Name()),
		zap.String("threat_intel", threat.Name()),
		zap.Duration("timeout", cfg.Timeout),
	)
	return r, nil
}

// NewStaticRegistry wraps the given adapters with the vendor timeout.
func NewStaticRegistry(identity IdentityAdapter, ipRep IPReputationAdapter, threat ThreatIntelAdapter, timeout time.Duration) *Registry {
	return &Registry{
		Identity:     &timedIdentity{next: identity, timeout: timeout},
		IPReputation: &timedIPReputation{next: ipRep, timeout: timeout},
		ThreatIntel:  &timedThreatIntel{next: threat, timeout: timeout},
	}
}

// Close releases resources held by adapters.
func (r *Registry) Close() error {
	var firstErr error
	for _, c := range r.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func httpOptions(cfg config.VendorConfig, name, baseURL string) HTTPOptions {
	return HTTPOptions{
		Name:        name,
		BaseURL:     baseURL,
		APIKey:      cfg.APIKey,
		Timeout:     cfg.Timeout,
		MaxAttempts: cfg.MaxAttempts,
	}
}

func (r *Registry) buildIdentity(cfg config.VendorConfig) (IdentityAdapter, error) {
	switch cfg.IdentityProvider {
	case "", staticProvider:
		return DefaultStaticIdentity(), nil
	case httpProvider:
		if cfg.IdentityURL == "" {
			return nil, fmt.Errorf("identity provider http requires VENDOR_IDENTITY_URL")
		}
		return NewHTTPIdentity(httpOptions(cfg, "identity", cfg.IdentityURL)), nil
	default:
		return nil, fmt.Errorf("unknown identity provider %q", cfg.IdentityProvider)
	}
}

func (r *Registry) buildIPReputation(cfg config.VendorConfig, logger *zap.Logger) (IPReputationAdapter, error) {
	switch cfg.IPReputationProvider {
	case "", staticProvider:
		return DefaultStaticIPReputation(), nil
	case httpProvider:
		if cfg.IPReputationURL == "" {
			return nil, fmt.Errorf("ip reputation provider http requires VENDOR_IP_REPUTATION_URL")
		}
		return NewHTTPIPReputation(httpOptions(cfg, "ip-reputation", cfg.IPReputationURL)), nil
	case geoipProvider:
		g, err := OpenGeoIPReputation(cfg.GeoIPCityDBPath, cfg.GeoIPASNDBPath)
		if err != nil {
			return nil, err
		}
		r.closers = append(r.closers, g.Close)
		if cfg.TorExitListPath != "" {
			f, err := os.Open(cfg.TorExitListPath)
			if err != nil {
				return nil, fmt.Errorf("failed to open tor exit list: %w", err)
			}
			n, err := g.LoadTorExits(f)
			f.Close()
			if err != nil {
				return nil, fmt.Errorf("failed to read tor exit list: %w", err)
			}
			logger.Info("tor exit list loaded", zap.Int("prefixes", n))
		}
		return g, nil
	default:
		return nil, fmt.Errorf("unknown ip reputation provider %q", cfg.IPReputationProvider)
	}
}

func (r *Registry) buildThreatIntel(cfg config.VendorConfig) (ThreatIntelAdapter, error) {
	switch cfg.ThreatIntelProvider {
	case "", staticProvider:
		return DefaultStaticThreatIntel(), nil
	case httpProvider:
		if cfg.ThreatIntelURL == "" {
			return nil, fmt.Errorf("threat intel provider http requires VENDOR_THREAT_INTEL_URL")
		}
		return NewHTTPThreatIntel(httpOptions(cfg, "threat-intel", cfg.ThreatIntelURL)), nil
	default:
		return nil, fmt.Errorf("unknown threat intel provider %q", cfg.ThreatIntelProvider)
	}
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}

type timedIdentity struct {
	next    IdentityAdapter
	timeout time.Duration
}

func (t *timedIdentity) Name() string { return t.next.Name() }

func (t *timedIdentity) CheckIdentity(ctx context.Context, req IdentityRequest) (*IdentityResult, error) {
	ctx, cancel := withTimeout(ctx, t.timeout)
	defer cancel()
	start := time.Now()
	res, err := t.next.CheckIdentity(ctx, req)
	observeCall("identity", t.next.Name(), start, res != nil, err)
	return res, err
}

type timedIPReputation struct {
	next    IPReputationAdapter
	timeout time.Duration
}

func (t *timedIPReputation) Name() string { return t.next.Name() }

func (t *timedIPReputation) CheckIPReputation(ctx context.Context, ip string) (*IPReputationResult, error) {
	ctx, cancel := withTimeout(ctx, t.timeout)
	defer cancel()
	start := time.Now()
	res, err := t.next.CheckIPReputation(ctx, ip)
	observeCall("ip_reputation", t.next.Name(), start, res != nil, err)
	return res, err
}

type timedThreatIntel struct {
	next    ThreatIntelAdapter
	timeout time.Duration
}

func (t *timedThreatIntel) Name() string { return t.next.Name() }

func (t *timedThreatIntel) CheckThreatIntel(ctx context.Context, req ThreatIntelRequest) (*ThreatIntelResult, error) {
	ctx, cancel := withTimeout(ctx, t.timeout)
	defer cancel()
	start := time.Now()
	res, err := t.next.CheckThreatIntel(ctx, req)
	observeCall("threat_intel", t.next.Name(), start, res != nil, err)
	return res, err
}
