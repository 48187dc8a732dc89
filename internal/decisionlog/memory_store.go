package decisionlog

import (
	"context"
	"sync"
)

// maxMemoryRecords bounds the in-memory log so demo mode cannot grow
// without limit.
const maxMemoryRecords = 1000

// MemoryStore is an in-memory implementation of Store for demo/test use.
type MemoryStore struct {
	mu      sync.RWMutex
	records []*Record
}

// NewMemoryStore creates an in-memory decision log.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Record(ctx context.Context, r *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *r
	s.records = append(s.records, &cp)
	if len(s.records) > maxMemoryRecords {
		s.records = s.records[len(s.records)-maxMemoryRecords:]
	}
	return nil
}

func (s *MemoryStore) ListRecent(ctx context.Context, limit int) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.records) == 0 {
		return nil, nil
	}

	start := len(s.records) - limit
	if start < 0 {
		start = 0
	}

	// Most recent first.
	result := make([]*Record, 0, len(s.records)-start)
	for i := len(s.records) - 1; i >= start; i-- {
		cp := *s.records[i]
		result = append(result, &cp)
	}
	return result, nil
}
