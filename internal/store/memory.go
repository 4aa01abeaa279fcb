package store

import (
	"context"
	"sync"
)

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu      sync.RWMutex
	current *Snapshot
	runs    []RunSummary
}

// NewMemory returns an empty MemoryStore.
func NewMemory() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Set(_ context.Context, snap Snapshot) error {
	snap.Leads = append(snap.Leads[:0:0], snap.Leads...)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = &snap
	for i, rs := range m.runs {
		if rs.RunID == snap.RunID {
			m.runs = append(m.runs[:i], m.runs[i+1:]...)
			break
		}
	}
	m.runs = append(m.runs, summarize(snap))
	return nil
}

func (m *MemoryStore) Get(_ context.Context) (*Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return nil, nil
	}
	snap := *m.current
	snap.Leads = append(snap.Leads[:0:0], m.current.Leads...)
	return &snap, nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = nil
	return nil
}

func (m *MemoryStore) Runs(_ context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = defaultRunLimit
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]RunSummary, 0, min(limit, len(m.runs)))
	for i := len(m.runs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.runs[i])
	}
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }
