// Package contentstore is the off-ledger content boundary. Article bodies are
// stored by content id and the ledger only ever records the id.
package contentstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"golang.org/x/sync/errgroup"
)

// ErrNotFound is returned by Get for an unknown content id.
var ErrNotFound = errors.New("content not found")

// DefaultCheckConcurrency bounds parallel lookups in CheckAvailability.
const DefaultCheckConcurrency = 8

// Store puts and retrieves immutable content by id.
type Store interface {
	Put(ctx context.Context, content []byte) (string, error)
	Get(ctx context.Context, cid string) ([]byte, error)
}

// ContentID derives the id of content: the hex sha256 of its bytes.
// Identical content always maps to the same id.
func ContentID(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// CheckAvailability returns the ids in cids that cannot be retrieved from s,
// in input order. Empty content and any retrieval error count as missing.
func CheckAvailability(ctx context.Context, s Store, cids []string, concurrency int) ([]string, error) {
	if concurrency <= 0 {
		concurrency = DefaultCheckConcurrency
	}
	missing := make([]bool, len(cids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, cid := range cids {
		g.Go(func() error {
			b, err := s.Get(gctx, cid)
			if err != nil || len(b) == 0 {
				missing[i] = true
			}
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := []string{}
	for i, m := range missing {
		if m {
			out = append(out, cids[i])
		}
	}
	return out, nil
}
