package devicehistory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/richxcame/trust-risk/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(opts ...Option) (*Store, *cache.MemoryBackend) {
	backend := cache.NewMemoryBackend(0)
	return NewStore(cache.New(backend, "risk", nil), 30*24*time.Hour, nil, opts...), backend
}

func TestObserve_NewThenKnownDevice(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	first := s.Observe(ctx, "fp-1", "user-1")
	assert.True(t, first.IsNewDevice)
	assert.Equal(t, 1, first.DeviceCount)
	assert.False(t, first.IsSuspicious)

	second := s.Observe(ctx, "fp-1", "user-1")
	assert.False(t, second.IsNewDevice)
	assert.Equal(t, first.DeviceCount, second.DeviceCount, "same pair must not append twice")
	assert.Equal(t, first.FirstSeen, second.FirstSeen)
}

func TestObserve_SuspiciousAfterFourUsers(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	var snap Snapshot
	for i := 1; i <= 3; i++ {
		snap = s.Observe(ctx, "fp-shared", fmt.Sprintf("user-%d", i))
	}
	assert.False(t, snap.IsSuspicious, "three users is not suspicious")
	assert.Equal(t, 3, snap.DeviceCount)

	snap = s.Observe(ctx, "fp-shared", "user-4")
	assert.True(t, snap.IsSuspicious)
	assert.Equal(t, 4, snap.DeviceCount)
	assert.ElementsMatch(t, []string{"user-1", "user-2", "user-3", "user-4"}, snap.AssociatedUsers)
}

func TestObserve_UpdatesLastSeenAndKeepsFirstSeen(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	s, _ := newTestStore(WithClock(func() time.Time { return now }))
	ctx := context.Background()

	s.Observe(ctx, "fp-1", "user-1")
	now = now.Add(48 * time.Hour)
	snap := s.Observe(ctx, "fp-1", "user-2")

	assert.Equal(t, time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), snap.FirstSeen)
	assert.Equal(t, now, snap.LastSeen)

	rec, ok := s.Lookup(ctx, "fp-1")
	require.True(t, ok)
	assert.Equal(t, []string{"user-1", "user-2"}, rec.Users)
}

func TestObserve_KeyIsHashed(t *testing.T) {
	s, backend := newTestStore()
	ctx := context.Background()

	s.Observe(ctx, "raw-fingerprint-value", "user-1")

	_, ok, _ := backend.Get(ctx, "risk:device_history:"+cache.HashKey("raw-fingerprint-value"))
	assert.True(t, ok)
	_, ok, _ = backend.Get(ctx, "risk:device_history:raw-fingerprint-value")
	assert.False(t, ok)
}

func TestLookup_Unknown(t *testing.T) {
	s, _ := newTestStore()
	_, ok := s.Lookup(context.Background(), "never-seen")
	assert.False(t, ok)
}

func TestObserve_StrictLockingConcurrent(t *testing.T) {
	s, _ := newTestStore(WithStrictLocking())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Observe(ctx, "fp-race", fmt.Sprintf("user-%d", i))
		}(i)
	}
	wg.Wait()

	rec, ok := s.Lookup(ctx, "fp-race")
	require.True(t, ok)
	assert.Len(t, rec.Users, 20, "strict locking must not lose appends")
}

func TestShardedMutex_SameKeySameShard(t *testing.T) {
	var m shardedMutex
	unlock := m.lock("fp-1")
	unlock()
	unlock = m.lock("fp-1")
	unlock()
}
