package repository

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/support-hub/helpdesk-core/pkg/util"
)

const snapshotKey = "stats:snapshot"

// SnapshotStore holds the most recent rendered statistics snapshot so
// consumers can show current numbers without recomputing them.
type SnapshotStore interface {
	Put(ctx context.Context, data []byte) error
	Get(ctx context.Context) ([]byte, error)
}

type redisSnapshotStore struct {
	client *redis.Client
}

func NewSnapshotStore(client *redis.Client) SnapshotStore {
	return &redisSnapshotStore{client: client}
}

func (s *redisSnapshotStore) Put(ctx context.Context, data []byte) error {
	if err := s.client.Set(ctx, snapshotKey, data, 0).Err(); err != nil {
		return apperrors.ToDomainError(err)
	}
	return nil
}

func (s *redisSnapshotStore) Get(ctx context.Context) ([]byte, error) {
	data, err := s.client.Get(ctx, snapshotKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, apperrors.NewNotFound("snapshot", nil)
		}
		return nil, apperrors.ToDomainError(err)
	}
	return data, nil
}

type memorySnapshotStore struct {
	mu   sync.Mutex
	data []byte
}

// NewMemorySnapshotStore builds an empty in-memory snapshot store.
func NewMemorySnapshotStore() SnapshotStore {
	return &memorySnapshotStore{}
}

func (s *memorySnapshotStore) Put(ctx context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = append([]byte(nil), data...)
	return nil
}

func (s *memorySnapshotStore) Get(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		return nil, apperrors.NewNotFound("snapshot", nil)
	}
	return append([]byte(nil), s.data...), nil
}
