package audit

import (
	"context"

	"github.com/wikichain/wikichain/internal/contentstore"
	"github.com/wikichain/wikichain/internal/ledger"
)

// LocalLedger adapts an in-process ledger to LedgerClient. Purges are
// submitted as Caller.
type LocalLedger struct {
	Ledger *ledger.Ledger
	Caller ledger.Address
}

func (l LocalLedger) ListAllContentIDs(ctx context.Context) ([]string, error) {
	return l.Ledger.ListAllContentIDs(), nil
}

func (l LocalLedger) Purge(ctx context.Context, contentIDs []string) ([]string, error) {
	r, err := l.Ledger.Purge(ctx, l.Caller, contentIDs)
	if err != nil {
		return nil, err
	}
	return r.Purged, nil
}

// StoreChecker checks availability directly against a content store.
type StoreChecker struct {
	Store       contentstore.Store
	Concurrency int
}

func (s StoreChecker) CheckAvailability(ctx context.Context, cids []string) ([]string, error) {
	return contentstore.CheckAvailability(ctx, s.Store, cids, s.Concurrency)
}
