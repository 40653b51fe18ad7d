package idempotency

import (
	"context"
	"sync"
	"time"

	"github.com/wikichain/wikichain/internal/ledger"
)

// MemoryStore is an in-process Store for single-node deployments and tests.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memEntry
}

type memEntry struct {
	entry
	expires time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &MemoryStore{ttl: ttl, now: time.Now, entries: make(map[string]memEntry)}
}

func (m *MemoryStore) Begin(ctx context.Context, key string) (*ledger.Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if e, ok := m.entries[key]; ok && now.Before(e.expires) {
		if e.Pending {
			return nil, ErrInProgress
		}
		r := *e.Receipt
		return &r, nil
	}
	m.entries[key] = memEntry{entry: entry{Pending: true}, expires: now.Add(m.ttl)}
	return nil, nil
}

func (m *MemoryStore) Complete(ctx context.Context, key string, r ledger.Receipt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memEntry{entry: entry{Receipt: &r}, expires: m.now().Add(m.ttl)}
	return nil
}

func (m *MemoryStore) Abort(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}
