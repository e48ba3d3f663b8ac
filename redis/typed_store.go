package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// TypedStore keeps JSON-encoded values of type V under a key prefix and
// maintains a sorted-set index ordered by a caller supplied score.
type TypedStore[V any] struct {
	client *Client
	prefix string
	ttl    time.Duration
}

// NewTypedStore creates a store writing keys "<prefix>:<key>" and the index
// "<prefix>:index". ttl of zero means values never expire.
func NewTypedStore[V any](client *Client, prefix string, ttl time.Duration) *TypedStore[V] {
	return &TypedStore[V]{client: client, prefix: prefix, ttl: ttl}
}

func (s *TypedStore[V]) key(k string) string { return s.prefix + ":" + k }
func (s *TypedStore[V]) indexKey() string    { return s.prefix + ":index" }

// Save stores val and indexes it under score in one transaction.
func (s *TypedStore[V]) Save(ctx context.Context, key string, val *V, score float64) error {
	data, err := json.Marshal(val)
	if err != nil {
		return fmt.Errorf("typed store marshal %q: %w", key, err)
	}
	_, err = s.client.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.Set(ctx, s.key(key), data, s.ttl)
		p.ZAdd(ctx, s.indexKey(), goredis.Z{Score: score, Member: key})
		return nil
	})
	if err != nil {
		return fmt.Errorf("typed store save %q: %w", key, err)
	}
	return nil
}

// Load returns the value for key, or (nil, nil) if it does not exist.
func (s *TypedStore[V]) Load(ctx context.Context, key string) (*V, error) {
	raw, err := s.client.rdb.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("typed store load %q: %w", key, err)
	}
	var val V
	if err := json.Unmarshal(raw, &val); err != nil {
		return nil, fmt.Errorf("typed store unmarshal %q: %w", key, err)
	}
	return &val, nil
}

// List returns every indexed value in ascending score order. Index entries
// whose value has expired are pruned.
func (s *TypedStore[V]) List(ctx context.Context) ([]V, error) {
	keys, err := s.client.rdb.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("typed store index: %w", err)
	}
	out := make([]V, 0, len(keys))
	var stale []any
	for _, k := range keys {
		v, err := s.Load(ctx, k)
		if err != nil {
			return nil, err
		}
		if v == nil {
			stale = append(stale, k)
			continue
		}
		out = append(out, *v)
	}
	if len(stale) > 0 {
		_ = s.client.rdb.ZRem(ctx, s.indexKey(), stale...).Err()
	}
	return out, nil
}

// Delete removes key and its index entry.
func (s *TypedStore[V]) Delete(ctx context.Context, key string) error {
	_, err := s.client.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.Del(ctx, s.key(key))
		p.ZRem(ctx, s.indexKey(), key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("typed store delete %q: %w", key, err)
	}
	return nil
}

// Clear removes every indexed value and the index itself.
func (s *TypedStore[V]) Clear(ctx context.Context) error {
	keys, err := s.client.rdb.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return fmt.Errorf("typed store index: %w", err)
	}
	all := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		all = append(all, s.key(k))
	}
	all = append(all, s.indexKey())
	if err := s.client.rdb.Del(ctx, all...).Err(); err != nil {
		return fmt.Errorf("typed store clear: %w", err)
	}
	return nil
}
