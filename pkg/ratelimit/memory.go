package ratelimit

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMemoryStoreSize bounds the number of tracked keys in the local store
const DefaultMemoryStoreSize = 16384

// MemoryStore is the in-process counter store for single-instance and
// development deployments. Keys are held in an LRU so long-running
// processes with many distinct (address, kind) keys cannot grow without
// bound; eviction only forgets attempt history, which at worst admits a
// request that a perfect log would have blocked.
type MemoryStore struct {
	mu      sync.Mutex
	entries *lru.Cache[string, []time.Time]
}

// NewMemoryStore creates a local counter store holding at most size keys
func NewMemoryStore(size int) (*MemoryStore, error) {
	if size <= 0 {
		size = DefaultMemoryStoreSize
	}
	entries, err := lru.New[string, []time.Time](size)
	if err != nil {
		return nil, err
	}
	return &MemoryStore{entries: entries}, nil
}

// Get returns the recorded timestamps for the key
func (s *MemoryStore) Get(_ context.Context, key string) ([]time.Time, error) {
	stamps, ok := s.entries.Get(key)
	if !ok {
		return nil, nil
	}
	out := make([]time.Time, len(stamps))
	copy(out, stamps)
	return out, nil
}

// Set overwrites the key's timestamps. The TTL is ignored: expiry happens
// through the limiter's window filter and the periodic Prune.
func (s *MemoryStore) Set(_ context.Context, key string, stamps []time.Time, _ time.Duration) error {
	s.entries.Add(key, stamps)
	return nil
}

// Lock serializes the read-modify-write cycle for a key. A single mutex
// satisfies per-key granularity for the dev-profile traffic this store sees.
func (s *MemoryStore) Lock(string) { s.mu.Lock() }

// Unlock releases the admission lock
func (s *MemoryStore) Unlock(string) { s.mu.Unlock() }

// Len returns the number of tracked keys
func (s *MemoryStore) Len() int {
	return s.entries.Len()
}

// Prune drops keys whose newest timestamp is older than the window.
// Called periodically from the cleanup cron.
func (s *MemoryStore) Prune(window time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-window)
	removed := 0
	for _, key := range s.entries.Keys() {
		stamps, ok := s.entries.Peek(key)
		if !ok {
			continue
		}
		stale := true
		for _, ts := range stamps {
			if ts.After(cutoff) {
				stale = false
				break
			}
		}
		if stale {
			s.entries.Remove(key)
			removed++
		}
	}
	return removed
}
