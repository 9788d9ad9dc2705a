package vendors

import (
	"context"
	"net"
	"sync"
)

const staticProvider = "static"

// StaticIdentity returns canned identity results keyed by user ID.
type StaticIdentity struct {
	mu       sync.RWMutex
	results  map[string]*IdentityResult
	fallback *IdentityResult
}

// NewStaticIdentity creates a static identity adapter. fallback is returned
// for unknown users and may be nil (absent).
func NewStaticIdentity(fallback *IdentityResult) *StaticIdentity {
	return &StaticIdentity{results: make(map[string]*IdentityResult), fallback: fallback}
}

// DefaultStaticIdentity reports every user as verified with low risk.
func DefaultStaticIdentity() *StaticIdentity {
	return NewStaticIdentity(&IdentityResult{
		Verified:   true,
		Confidence: 0.85,
		RiskScore:  15,
		Flags:      []string{},
		Provider:   staticProvider,
	})
}

// Put registers a result for userID.
func (s *StaticIdentity) Put(userID string, result *IdentityResult) {
	s.mu.Lock()
	s.results[userID] = result
	s.mu.Unlock()
}

func (s *StaticIdentity) Name() string { return staticProvider }

func (s *StaticIdentity) CheckIdentity(ctx context.Context, req IdentityRequest) (*IdentityResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.results[req.UserID]; ok {
		return r, nil
	}
	return s.fallback, nil
}

// StaticIPReputation returns canned IP reputation results keyed by IP.
type StaticIPReputation struct {
	mu       sync.RWMutex
	results  map[string]*IPReputationResult
	fallback *IPReputationResult
}

// NewStaticIPReputation creates a static IP reputation adapter.
func NewStaticIPReputation(fallback *IPReputationResult) *StaticIPReputation {
	return &StaticIPReputation{results: make(map[string]*IPReputationResult), fallback: fallback}
}

// DefaultStaticIPReputation reports every public IP as clean.
func DefaultStaticIPReputation() *StaticIPReputation {
	return NewStaticIPReputation(&IPReputationResult{
		RiskScore:   10,
		Country:     "US",
		ThreatLevel: ThreatLevelLow,
		Flags:       []string{},
		Provider:    staticProvider,
	})
}

// Put registers a result for ip.
func (s *StaticIPReputation) Put(ip string, result *IPReputationResult) {
	s.mu.Lock()
	s.results[ip] = result
	s.mu.Unlock()
}

func (s *StaticIPReputation) Name() string { return staticProvider }

func (s *StaticIPReputation) CheckIPReputation(ctx context.Context, ip string) (*IPReputationResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.results[ip]; ok {
		return r, nil
	}
	parsed := net.ParseIP(ip)
	if parsed == nil || parsed.IsPrivate() || parsed.IsLoopback() {
		return nil, nil
	}
	return s.fallback, nil
}

// StaticThreatIntel returns canned threat results keyed by IP.
type StaticThreatIntel struct {
	mu       sync.RWMutex
	results  map[string]*ThreatIntelResult
	fallback *ThreatIntelResult
}

// NewStaticThreatIntel creates a static threat intelligence adapter.
func NewStaticThreatIntel(fallback *ThreatIntelResult) *StaticThreatIntel {
	return &StaticThreatIntel{results: make(map[string]*ThreatIntelResult), fallback: fallback}
}

// DefaultStaticThreatIntel reports no known threats.
func DefaultStaticThreatIntel() *StaticThreatIntel {
	return NewStaticThreatIntel(&ThreatIntelResult{
		IsThreat:    false,
		ThreatTypes: []string{},
		RiskScore:   5,
		Provider:    staticProvider,
	})
}

// Put registers a result for ip.
func (s *StaticThreatIntel) Put(ip string, result *ThreatIntelResult) {
	s.mu.Lock()
	s.results[ip] = result
	s.mu.Unlock()
}

func (s *StaticThreatIntel) Name() string { return staticProvider }

func (s *StaticThreatIntel) CheckThreatIntel(ctx context.Context, req ThreatIntelRequest) (*ThreatIntelResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.results[req.IP]; ok {
		return r, nil
	}
	return s.fallback, nil
}
