package idempotency

import (
	"context"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/wikichain/wikichain/internal/ledger"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	got, err := s.Begin(ctx, "k1")
	require.NoError(t, err)
	require.Nil(t, got, "first Begin claims the key")

	_, err = s.Begin(ctx, "k1")
	require.ErrorIs(t, err, ErrInProgress)

	r := ledger.Receipt{TxID: "tx-1", Seq: 7, Op: ledger.OpPublish, Timestamp: time.Now().UTC().Truncate(time.Second)}
	require.NoError(t, s.Complete(ctx, "k1", r))

	got, err = s.Begin(ctx, "k1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, r.TxID, got.TxID)
	require.Equal(t, r.Seq, got.Seq)
	require.True(t, r.Timestamp.Equal(got.Timestamp))

	// aborted keys can be claimed again
	_, err = s.Begin(ctx, "k2")
	require.NoError(t, err)
	require.NoError(t, s.Abort(ctx, "k2"))
	got, err = s.Begin(ctx, "k2")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore(time.Minute))
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Minute)
	now := time.Now()
	s.now = func() time.Time { return now }
	require.NoError(t, s.Complete(ctx, "k", ledger.Receipt{TxID: "tx"}))

	now = now.Add(2 * time.Minute)
	got, err := s.Begin(ctx, "k")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestRedisStore(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	exerciseStore(t, NewRedisStore(client, "test:idem:", time.Minute))
}

func TestRedisStore_TTLExpiry(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	s := NewRedisStore(client, "test:idem:", time.Second)
	ctx := context.Background()
	require.NoError(t, s.Complete(ctx, "k", ledger.Receipt{TxID: "tx"}))

	m.FastForward(2 * time.Second)

	got, err := s.Begin(ctx, "k")
	require.NoError(t, err)
	require.Nil(t, got)
}
