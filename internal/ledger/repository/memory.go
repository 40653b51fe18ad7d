package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/wikichain/wikichain/internal/ledger"
)

// MemoryJournal is an in-memory journal used for development and unit tests.
// It does not survive a restart.
type MemoryJournal struct {
	mu      sync.RWMutex
	entries []ledger.Tx
}

func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{}
}

func (m *MemoryJournal) Append(ctx context.Context, tx ledger.Tx) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n := len(m.entries); n > 0 && m.entries[n-1].Seq >= tx.Seq {
		return fmt.Errorf("%w: seq %d already journaled", ErrDuplicateSeq, tx.Seq)
	}
	tx.ContentIDs = append([]string(nil), tx.ContentIDs...)
	m.entries = append(m.entries, tx)
	return nil
}

func (m *MemoryJournal) Lookup(ctx context.Context, seq uint64) (ledger.Tx, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := len(m.entries) - 1; i >= 0; i-- {
		if m.entries[i].Seq == seq {
			return m.entries[i], true, nil
		}
	}
	return ledger.Tx{}, false, nil
}

func (m *MemoryJournal) Replay(ctx context.Context, fn func(ledger.Tx) error) error {
	m.mu.RLock()
	entries := append([]ledger.Tx(nil), m.entries...)
	m.mu.RUnlock()
	for _, tx := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(tx); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of journaled transactions.
func (m *MemoryJournal) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
