// Package idempotency makes retried ledger submissions safe. A client sends
// the same Idempotency-Key on a retry and gets the original receipt back
// instead of a second transaction.
package idempotency

import (
	"context"
	"errors"

	"github.com/wikichain/wikichain/internal/ledger"
)

// ErrInProgress is returned by Begin while another request holds the key.
var ErrInProgress = errors.New("request with this idempotency key is in progress")

// Store tracks idempotency keys. Begin either claims key (returns nil, nil)
// or returns the receipt recorded by an earlier Complete. A claimed key must
// be finished with Complete or released with Abort.
type Store interface {
	Begin(ctx context.Context, key string) (*ledger.Receipt, error)
	Complete(ctx context.Context, key string, r ledger.Receipt) error
	Abort(ctx context.Context, key string) error
}

type entry struct {
	Pending bool            `json:"pending"`
	Receipt *ledger.Receipt `json:"receipt,omitempty"`
}
