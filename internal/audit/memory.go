package audit

import (
	"context"
	"sync"
)

// MemoryReportStore keeps reports in process memory, newest last.
type MemoryReportStore struct {
	mu      sync.RWMutex
	reports []Report
}

func NewMemoryReportStore() *MemoryReportStore {
	return &MemoryReportStore{}
}

func (m *MemoryReportStore) Save(ctx context.Context, r *Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.reports {
		if m.reports[i].RunID == r.RunID {
			m.reports[i] = *r
			return nil
		}
	}
	m.reports = append(m.reports, *r)
	return nil
}

func (m *MemoryReportStore) Load(ctx context.Context, runID string) (*Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := range m.reports {
		if m.reports[i].RunID == runID {
			r := m.reports[i]
			return &r, nil
		}
	}
	return nil, nil
}

func (m *MemoryReportStore) Latest(ctx context.Context) (*Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.reports) == 0 {
		return nil, nil
	}
	r := m.reports[len(m.reports)-1]
	return &r, nil
}
