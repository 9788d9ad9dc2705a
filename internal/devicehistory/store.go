package devicehistory

import (
	"context"
	"time"

	"github.com/richxcame/trust-risk/internal/cache"
	"go.uber.org/zap"
)

// SuspiciousUserCount is the number of distinct users above which a device
// is considered shared.
const SuspiciousUserCount = 3

// Record is the persisted association history of one device.
type Record struct {
	DeviceID  string    `json:"device_id"`
	Users     []string  `json:"users"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
}

func (r *Record) hasUser(userID string) bool {
	for _, u := range r.Users {
		if u == userID {
			return true
		}
	}
	return false
}

// Snapshot describes a device as observed for one user.
type Snapshot struct {
	DeviceID        string    `json:"device_id"`
	IsNewDevice     bool      `json:"is_new_device"`
	IsSuspicious    bool      `json:"is_suspicious"`
	DeviceCount     int       `json:"device_count"`
	AssociatedUsers []string  `json:"associated_users"`
	FirstSeen       time.Time `json:"first_seen"`
	LastSeen        time.Time `json:"last_seen"`
}

// Store tracks device to user associations in the signal cache.
//
// Observe is a read-then-write. Without strict locking two concurrent
// observers of the same device may both append; the outcome is at worst a
// lost append or a stale count. Strict locking serializes observers within
// this process only.
type Store struct {
	cache  *cache.Cache
	ttl    time.Duration
	locks  *shardedMutex
	now    func() time.Time
	logger *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithStrictLocking serializes Observe calls per device.
func WithStrictLocking() Option {
	return func(s *Store) { s.locks = &shardedMutex{} }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates a device history store. ttl is refreshed on every write.
func NewStore(c *cache.Cache, ttl time.Duration, logger *zap.Logger, opts ...Option) *Store {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{cache: c, ttl: ttl, now: time.Now, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Lookup returns the stored history for a device without modifying it.
func (s *Store) Lookup(ctx context.Context, deviceID string) (*Record, bool) {
	var rec Record
	if !s.cache.Get(ctx, cache.NamespaceDeviceHistory, cache.HashKey(deviceID), &rec) {
		return nil, false
	}
	return &rec, true
}

// Observe records that userID used deviceID and returns the device's state
// including this observation. Repeat observations of the same pair do not
// grow the user set.
func (s *Store) Observe(ctx context.Context, deviceID, userID string) Snapshot {
	if s.locks != nil {
		unlock := s.locks.lock(deviceID)
		defer unlock()
	}

	now := s.now().UTC()
	rec, ok := s.Lookup(ctx, deviceID)
	if !ok {
		rec = &Record{DeviceID: deviceID, FirstSeen: now}
	}

	isNew := !rec.hasUser(userID)
	if isNew {
		rec.Users = append(rec.Users, userID)
	}
	rec.LastSeen = now

	s.cache.Set(ctx, cache.NamespaceDeviceHistory, cache.HashKey(deviceID), rec, s.ttl)

	if isNew && ok {
		s.logger.Debug("device associated with additional user",
			zap.Int("device_count", len(rec.Users)),
		)
	}

	return Snapshot{
		DeviceID:        deviceID,
		IsNewDevice:     isNew,
		IsSuspicious:    len(rec.Users) > SuspiciousUserCount,
		DeviceCount:     len(rec.Users),
		AssociatedUsers: append([]string(nil), rec.Users...),
		FirstSeen:       rec.FirstSeen,
		LastSeen:        rec.LastSeen,
	}
}
