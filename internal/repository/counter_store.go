package repository

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// CounterStore is the integer-counter keyspace behind the statistics engine.
// Decrements floor at zero; reads of missing keys return zero.
type CounterStore interface {
	Incr(ctx context.Context, key string) (int64, error)
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	DecrFloor(ctx context.Context, key string) (int64, error)
	Get(ctx context.Context, key string) (int64, error)
	ScanKeys(ctx context.Context, pattern string) ([]string, error)
}

type redisCounterStore struct {
	client *redis.Client
}

// NewCounterStore builds the Redis-backed counter store.
func NewCounterStore(client *redis.Client) CounterStore {
	return &redisCounterStore{client: client}
}

func (s *redisCounterStore) Incr(ctx context.Context, key string) (int64, error) {
	return s.client.Incr(ctx, key).Result()
}

func (s *redisCounterStore) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	pipe := s.client.Pipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// DecrFloor decrements and clamps at zero. The decrement-then-reset is racy
// across processes but the floor is also enforced on every read.
func (s *redisCounterStore) DecrFloor(ctx context.Context, key string) (int64, error) {
	value, err := s.client.Decr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if value < 0 {
		if err := s.client.Set(ctx, key, 0, redis.KeepTTL).Err(); err != nil {
			return 0, err
		}
		value = 0
	}
	return value, nil
}

func (s *redisCounterStore) Get(ctx context.Context, key string) (int64, error) {
	value, err := s.client.Get(ctx, key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if value < 0 {
		value = 0
	}
	return value, nil
}

func (s *redisCounterStore) ScanKeys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}
