package vendors

import "context"

// Every adapter returns (nil, nil) when the provider has no data for the
// subject. Absent is a valid outcome, not an error.

// IdentityAdapter verifies a user's identity with a third party.
type IdentityAdapter interface {
	Name() string
	CheckIdentity(ctx context.Context, req IdentityRequest) (*IdentityResult, error)
}

// IPReputationAdapter scores an IP address.
type IPReputationAdapter interface {
	Name() string
	CheckIPReputation(ctx context.Context, ip string) (*IPReputationResult, error)
}

// ThreatIntelAdapter looks up known threats for a user/IP pair.
type ThreatIntelAdapter interface {
	Name() string
	CheckThreatIntel(ctx context.Context, req ThreatIntelRequest) (*ThreatIntelResult, error)
}
