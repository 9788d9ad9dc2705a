package devicehistory

import (
	"hash/fnv"
	"sync"
)

// shardedMutex is a fixed pool of mutexes keyed by device ID. Keys that hash
// to the same shard share a lock.
type shardedMutex struct {
	shards [256]sync.Mutex
}

func (s *shardedMutex) lock(key string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	mu := &s.shards[h.Sum32()%256]
	mu.Lock()
	return mu.Unlock
}
