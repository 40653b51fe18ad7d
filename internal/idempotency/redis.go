package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/wikichain/wikichain/internal/ledger"
)

// RedisStore keeps keys as JSON under "<prefix><key>" with a TTL.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed store. Prefix may be empty.
func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "idem:"
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) key(k string) string {
	return s.prefix + k
}

func (s *RedisStore) Begin(ctx context.Context, key string) (*ledger.Receipt, error) {
	pending, _ := json.Marshal(entry{Pending: true})
	ok, err := s.client.SetNX(ctx, s.key(key), pending, s.ttl).Result()
	if err != nil {
		return nil, err
	}
	if ok {
		return nil, nil
	}
	b, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// expired between SETNX and GET; try once more
			return s.Begin(ctx, key)
		}
		return nil, err
	}
	var e entry
	if err := json.Unmarshal(b, &e); err != nil {
		return nil, err
	}
	if e.Pending || e.Receipt == nil {
		return nil, ErrInProgress
	}
	return e.Receipt, nil
}

func (s *RedisStore) Complete(ctx context.Context, key string, r ledger.Receipt) error {
	b, err := json.Marshal(entry{Receipt: &r})
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(key), b, s.ttl).Err()
}

func (s *RedisStore) Abort(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.key(key)).Err()
}
