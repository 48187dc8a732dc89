package snapshot

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory implementation of Store for demo/test use.
// State survives resets but not process restarts.
type MemoryStore struct {
	mu   sync.RWMutex
	snap *Snapshot
}

// NewMemoryStore creates an in-memory snapshot store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Save(ctx context.Context, s *Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = clone(s)
	return nil
}

func (m *MemoryStore) Load(ctx context.Context) (*Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.snap == nil {
		return Default(), nil
	}
	return clone(m.snap), nil
}

// clone deep-copies a snapshot so callers cannot alias store internals.
func clone(s *Snapshot) *Snapshot {
	out := *s
	out.RiskHistory = append([]HistoryPoint(nil), s.RiskHistory...)
	out.LastAlertTime = make(map[string]time.Time, len(s.LastAlertTime))
	for k, v := range s.LastAlertTime {
		out.LastAlertTime[k] = v
	}
	return &out
}
