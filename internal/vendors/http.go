package vendors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/richxcame/trust-risk/pkg/httpclient"
	"github.com/richxcame/trust-risk/pkg/resilience"
)

const httpProvider = "http"

// HTTPOptions configures a JSON REST vendor.
type HTTPOptions struct {
	Name        string
	BaseURL     string
	APIKey      string
	Timeout     time.Duration
	MaxAttempts int
}

func newVendorClient(opts HTTPOptions) *httpclient.Client {
	retry := resilience.RetryConfig{
		MaxAttempts:       opts.MaxAttempts,
		InitialBackoff:    100 * time.Millisecond,
		MaxBackoff:        500 * time.Millisecond,
		BackoffMultiplier: 2.0,
		EnableJitter:      true,
	}
	retry.RetryableChecker = func(err error) bool {
		var httpErr *httpclient.HTTPError
		if errors.As(err, &httpErr) {
			return resilience.IsRetryableHTTPStatus(httpErr.StatusCode)
		}
		return true
	}

	settings := resilience.BuildSettings("vendor-"+opts.Name, 60, 30, 5, 1)
	settings.IsSuccessful = isAbsent
	breaker := resilience.NewCircuitBreaker(settings, resilience.GracefulDegradation(opts.Name))

	return httpclient.NewClient(opts.BaseURL, opts.Timeout).Apply(
		httpclient.WithBreaker(breaker),
		httpclient.WithRetry(retry),
	)
}

func authHeaders(apiKey string) map[string]string {
	if apiKey == "" {
		return nil
	}
	return map[string]string{"X-API-Key": apiKey}
}

// isAbsent reports whether the vendor signalled it has no data.
func isAbsent(err error) bool {
	var httpErr *httpclient.HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound
}

// HTTPIdentity calls POST /v1/identity/check.
type HTTPIdentity struct {
	client *httpclient.Client
	apiKey string
	name   string
}

// NewHTTPIdentity creates an HTTP identity adapter.
func NewHTTPIdentity(opts HTTPOptions) *HTTPIdentity {
	opts.Name = nameOr(opts.Name, "identity")
	return &HTTPIdentity{client: newVendorClient(opts), apiKey: opts.APIKey, name: opts.Name}
}

func (a *HTTPIdentity) Name() string { return httpProvider + ":" + a.name }

func (a *HTTPIdentity) CheckIdentity(ctx context.Context, req IdentityRequest) (*IdentityResult, error) {
	var out IdentityResult
	if err := a.client.PostJSON(ctx, "/v1/identity/check", req, authHeaders(a.apiKey), &out); err != nil {
		if isAbsent(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("identity check: %w", err)
	}
	out.Provider = nameOr(out.Provider, a.Name())
	return &out, nil
}

// HTTPIPReputation calls GET /v1/ip/{ip}.
type HTTPIPReputation struct {
	client *httpclient.Client
	apiKey string
	name   string
}

// NewHTTPIPReputation creates an HTTP IP reputation adapter.
func NewHTTPIPReputation(opts HTTPOptions) *HTTPIPReputation {
	opts.Name = nameOr(opts.Name, "ip-reputation")
	return &HTTPIPReputation{client: newVendorClient(opts), apiKey: opts.APIKey, name: opts.Name}
}

func (a *HTTPIPReputation) Name() string { return httpProvider + ":" + a.name }

func (a *HTTPIPReputation) CheckIPReputation(ctx context.Context, ip string) (*IPReputationResult, error) {
	var out IPReputationResult
	if err := a.client.GetJSON(ctx, "/v1/ip/"+url.PathEscape(ip), authHeaders(a.apiKey), &out); err != nil {
		if isAbsent(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("ip reputation: %w", err)
	}
	if out.ThreatLevel == "" {
		out.ThreatLevel = ThreatLevelForScore(out.RiskScore)
	}
	out.Provider = nameOr(out.Provider, a.Name())
	return &out, nil
}

// HTTPThreatIntel calls POST /v1/threat/check.
type HTTPThreatIntel struct {
	client *httpclient.Client
	apiKey string
	name   string
}

// NewHTTPThreatIntel creates an HTTP threat intelligence adapter.
func NewHTTPThreatIntel(opts HTTPOptions) *HTTPThreatIntel {
	opts.Name = nameOr(opts.Name, "threat-intel")
	return &HTTPThreatIntel{client: newVendorClient(opts), apiKey: opts.APIKey, name: opts.Name}
}

func (a *HTTPThreatIntel) Name() string { return httpProvider + ":" + a.name }

func (a *HTTPThreatIntel) CheckThreatIntel(ctx context.Context, req ThreatIntelRequest) (*ThreatIntelResult, error) {
	var out ThreatIntelResult
	if err := a.client.PostJSON(ctx, "/v1/threat/check", req, authHeaders(a.apiKey), &out); err != nil {
		if isAbsent(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("threat intel: %w", err)
	}
	out.Provider = nameOr(out.Provider, a.Name())
	return &out, nil
}

func nameOr(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}
