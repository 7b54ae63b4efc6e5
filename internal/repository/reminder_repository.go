package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/support-hub/helpdesk-core/internal/domain"
	apperrors "github.com/support-hub/helpdesk-core/pkg/util"
)

const reminderKeyPrefix = "reminder:"

// ReminderRepository stores the pending reminder record per ticket. The
// record carries its own TTL so a stale reminder cannot outlive its due
// time by much even if the owning process dies.
type ReminderRepository interface {
	Put(ctx context.Context, reminder *domain.Reminder, ttl time.Duration) error
	Get(ctx context.Context, ticketID string) (*domain.Reminder, error)
	Delete(ctx context.Context, ticketID string) error
}

type redisReminderRepository struct {
	client *redis.Client
	logger *zap.Logger
}

func NewReminderRepository(client *redis.Client, logger *zap.Logger) ReminderRepository {
	return &redisReminderRepository{client: client, logger: logger}
}

func reminderKey(ticketID string) string {
	return reminderKeyPrefix + ticketID
}

func (r *redisReminderRepository) Put(ctx context.Context, reminder *domain.Reminder, ttl time.Duration) error {
	data, err := json.Marshal(reminder)
	if err != nil {
		return apperrors.NewSerializationError(reminderKey(reminder.TicketID), err)
	}

	if err := r.client.Set(ctx, reminderKey(reminder.TicketID), data, ttl).Err(); err != nil {
		return apperrors.ToDomainError(err)
	}
	return nil
}

func (r *redisReminderRepository) Get(ctx context.Context, ticketID string) (*domain.Reminder, error) {
	data, err := r.client.Get(ctx, reminderKey(ticketID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, apperrors.NewNotFound("reminder", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.ToDomainError(err)
	}

	var reminder domain.Reminder
	if err := json.Unmarshal(data, &reminder); err != nil {
		r.logger.Warn("discarding malformed reminder record",
			zap.String("ticket_id", ticketID), zap.Error(err))
		_ = r.client.Del(ctx, reminderKey(ticketID)).Err()
		return nil, apperrors.NewNotFound("reminder", map[string]any{"ticket_id": ticketID})
	}
	return &reminder, nil
}

func (r *redisReminderRepository) Delete(ctx context.Context, ticketID string) error {
	if err := r.client.Del(ctx, reminderKey(ticketID)).Err(); err != nil {
		return apperrors.ToDomainError(err)
	}
	return nil
}
