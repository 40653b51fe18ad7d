package contentstore

import (
	"context"
	"sync"
)

// MemoryStore keeps content in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string][]byte)}
}

func (m *MemoryStore) Put(ctx context.Context, content []byte) (string, error) {
	cid := ContentID(content)
	m.mu.Lock()
	m.items[cid] = append([]byte(nil), content...)
	m.mu.Unlock()
	return cid, nil
}

func (m *MemoryStore) Get(ctx context.Context, cid string) ([]byte, error) {
	m.mu.RLock()
	b, ok := m.items[cid]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), b...), nil
}

// Delete drops cid. Used to simulate content loss.
func (m *MemoryStore) Delete(cid string) {
	m.mu.Lock()
	delete(m.items, cid)
	m.mu.Unlock()
}
