package csrf

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store for the development profile and tests
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*Record),
	}
}

// Find returns the record for the subject, or nil if none exists
func (s *MemoryStore) Find(_ context.Context, subjectID string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[subjectID]
	if !ok {
		return nil, nil
	}
	copied := *rec
	return &copied, nil
}

// Upsert creates or overwrites the subject's record
func (s *MemoryStore) Upsert(_ context.Context, subjectID, token string, now time.Time) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.records[subjectID]; ok {
		rec.Token = token
		rec.UpdatedAt = now
		copied := *rec
		return &copied, nil
	}

	rec := &Record{
		SubjectID: subjectID,
		Token:     token,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.records[subjectID] = rec
	copied := *rec
	return &copied, nil
}

// DeleteStale removes records not updated within maxAge. Called from the
// cleanup cron; record existence is not load-bearing for correctness, so
// eviction is safe.
func (s *MemoryStore) DeleteStale(maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for subjectID, rec := range s.records {
		if rec.UpdatedAt.Before(cutoff) {
			delete(s.records, subjectID)
			removed++
		}
	}
	return removed
}
