package audit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps the audit trail in process memory. Suitable for single
// instance deployments and tests; entries are lost on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	nextID  int64
	entries []Entry
	cap     int
}

// NewMemoryStore creates an in-memory audit store keeping at most maxEntries
// records. Older records are discarded. maxEntries <= 0 means 10000.
func NewMemoryStore(maxEntries int) *MemoryStore {
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	return &MemoryStore{nextID: 1, cap: maxEntries}
}

func (s *MemoryStore) Append(_ context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == 0 {
		entry.ID = s.nextID
		s.nextID++
	}
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = time.Now().UTC()
	}
	s.entries = append(s.entries, entry)
	if len(s.entries) > s.cap {
		s.entries = s.entries[len(s.entries)-s.cap:]
	}
	return nil
}

func (s *MemoryStore) List(_ context.Context, filter Filter) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	var out []Entry
	for i := len(s.entries) - 1; i >= 0 && len(out) < limit; i-- {
		e := s.entries[i]
		if filter.SessionID != "" && e.SessionID != filter.SessionID {
			continue
		}
		if filter.Model != "" && e.Model != filter.Model {
			continue
		}
		if filter.Operation != "" && e.Operation != filter.Operation {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}
