package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/support-hub/helpdesk-core/internal/domain"
	apperrors "github.com/support-hub/helpdesk-core/pkg/util"
)

const windowKeyPrefix = "window:"

// WindowRepository stores the open aggregation window per submitter. The TTL
// is a safety net slightly above the debounce timeout; the in-process
// scheduler is the expiry authority.
type WindowRepository interface {
	Get(ctx context.Context, submitterID string) (*domain.AggregationWindow, error)
	Put(ctx context.Context, window *domain.AggregationWindow, ttl time.Duration) error
	Delete(ctx context.Context, submitterID string) error
}

type redisWindowRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewWindowRepository builds the Redis-backed window store.
func NewWindowRepository(client *redis.Client, logger *zap.Logger) WindowRepository {
	return &redisWindowRepository{client: client, logger: logger}
}

func windowKey(submitterID string) string {
	return windowKeyPrefix + submitterID
}

func (r *redisWindowRepository) Get(ctx context.Context, submitterID string) (*domain.AggregationWindow, error) {
	data, err := r.client.Get(ctx, windowKey(submitterID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, apperrors.NewNotFound("window", map[string]any{"submitter_id": submitterID})
	}
	if err != nil {
		return nil, err
	}

	var window domain.AggregationWindow
	if err := json.Unmarshal([]byte(data), &window); err != nil {
		r.logger.Error("malformed window record",
			zap.String("submitter_id", submitterID),
			zap.Error(apperrors.NewSerializationError(windowKey(submitterID), err)))
		_ = r.client.Del(ctx, windowKey(submitterID)).Err()
		return nil, apperrors.NewNotFound("window", map[string]any{"submitter_id": submitterID})
	}
	return &window, nil
}

func (r *redisWindowRepository) Put(ctx context.Context, window *domain.AggregationWindow, ttl time.Duration) error {
	data, err := json.Marshal(window)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, windowKey(window.SubmitterID), data, ttl).Err()
}

func (r *redisWindowRepository) Delete(ctx context.Context, submitterID string) error {
	return r.client.Del(ctx, windowKey(submitterID)).Err()
}
