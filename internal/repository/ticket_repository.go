package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/support-hub/helpdesk-core/internal/domain"
	apperrors "github.com/support-hub/helpdesk-core/pkg/util"
)

const (
	ticketKeyPrefix = "ticket:"
	liveIndexKey    = "tickets:live"
)

// TicketRepository encapsulates ticket persistence.
//
// Contract: single-connection read-after-write visibility only. There is no
// cross-process atomicity; Update is read-modify-write and concurrent writers
// race last-writer-wins. Safety rests on idempotent transitions and
// existence/status pre-checks, not on locking.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Get(ctx context.Context, id string) (*domain.Ticket, error)
	Update(ctx context.Context, id string, update domain.TicketUpdate) error
	Delete(ctx context.Context, id string) error
	ListLive(ctx context.Context) ([]domain.Ticket, error)
	ListByStatus(ctx context.Context, status domain.TicketStatus) ([]domain.Ticket, error)
	ListByAssignee(ctx context.Context, assignee string) ([]domain.Ticket, error)
	ListBySubmitter(ctx context.Context, submitterID string) ([]domain.Ticket, error)
}

type redisTicketRepository struct {
	client    *redis.Client
	retention time.Duration
	logger    *zap.Logger
}

// NewTicketRepository builds the Redis-backed repository. Records carry the
// retention TTL and are tracked in a live-index set for the list scans.
func NewTicketRepository(client *redis.Client, retention time.Duration, logger *zap.Logger) TicketRepository {
	return &redisTicketRepository{client: client, retention: retention, logger: logger}
}

func ticketKey(id string) string {
	return ticketKeyPrefix + id
}

func (r *redisTicketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	if ticket.ID == "" {
		ticket.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = now
	}
	ticket.UpdatedAt = now
	ticket.SchemaVersion = domain.TicketSchemaVersion
	if ticket.Status == "" {
		ticket.Status = domain.TicketStatusUnreacted
	}
	if ticket.MessageCount < 1 {
		ticket.MessageCount = 1
	}

	data, err := json.Marshal(ticket)
	if err != nil {
		return err
	}

	pipe := r.client.Pipeline()
	pipe.Set(ctx, ticketKey(ticket.ID), data, r.retention)
	pipe.SAdd(ctx, liveIndexKey, ticket.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}
	return nil
}

func (r *redisTicketRepository) Get(ctx context.Context, id string) (*domain.Ticket, error) {
	data, err := r.client.Get(ctx, ticketKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"id": id})
	}
	if err != nil {
		return nil, err
	}
	return r.decode(id, []byte(data))
}

// decode tolerates legacy records: a missing schema version or absent optional
// fields default safely instead of failing the read.
func (r *redisTicketRepository) decode(id string, data []byte) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := json.Unmarshal(data, &ticket); err != nil {
		// Malformed record: log and treat as absent rather than crash.
		r.logger.Error("malformed ticket record",
			zap.String("ticket_id", id),
			zap.Error(apperrors.NewSerializationError(ticketKey(id), err)))
		return nil, apperrors.NewNotFound("ticket", map[string]any{"id": id})
	}
	if ticket.ID == "" {
		ticket.ID = id
	}
	if ticket.Status == "" {
		ticket.Status = domain.TicketStatusUnreacted
	}
	if ticket.MessageCount < 1 {
		ticket.MessageCount = 1
	}
	return &ticket, nil
}

func (r *redisTicketRepository) Update(ctx context.Context, id string, update domain.TicketUpdate) error {
	ticket, err := r.Get(ctx, id)
	if err != nil {
		return err
	}

	if update.UpdatedAt == nil {
		now := time.Now().UTC()
		update.UpdatedAt = &now
	}
	update.Apply(ticket)
	ticket.SchemaVersion = domain.TicketSchemaVersion

	data, err := json.Marshal(ticket)
	if err != nil {
		return err
	}
	// KeepTTL preserves the retention clock started at creation.
	return r.client.Set(ctx, ticketKey(id), data, redis.KeepTTL).Err()
}

func (r *redisTicketRepository) Delete(ctx context.Context, id string) error {
	pipe := r.client.Pipeline()
	pipe.Del(ctx, ticketKey(id))
	pipe.SRem(ctx, liveIndexKey, id)
	_, err := pipe.Exec(ctx)
	return err
}

// ListLive loads every indexed ticket. Full scan; acceptable at
// human-operator scale (documented O(n)). Index entries whose record expired
// or went malformed are purged as they are seen.
func (r *redisTicketRepository) ListLive(ctx context.Context) ([]domain.Ticket, error) {
	ids, err := r.client.SMembers(ctx, liveIndexKey).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []domain.Ticket{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = ticketKey(id)
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	tickets := make([]domain.Ticket, 0, len(values))
	for i, value := range values {
		if value == nil {
			_ = r.client.SRem(ctx, liveIndexKey, ids[i]).Err()
			continue
		}
		raw, ok := value.(string)
		if !ok {
			continue
		}
		ticket, err := r.decode(ids[i], []byte(raw))
		if err != nil {
			_ = r.client.SRem(ctx, liveIndexKey, ids[i]).Err()
			continue
		}
		tickets = append(tickets, *ticket)
	}
	return tickets, nil
}

func (r *redisTicketRepository) ListByStatus(ctx context.Context, status domain.TicketStatus) ([]domain.Ticket, error) {
	return r.filterLive(ctx, func(t *domain.Ticket) bool { return t.Status == status })
}

func (r *redisTicketRepository) ListByAssignee(ctx context.Context, assignee string) ([]domain.Ticket, error) {
	return r.filterLive(ctx, func(t *domain.Ticket) bool { return t.AssigneeHandle() == assignee })
}

func (r *redisTicketRepository) ListBySubmitter(ctx context.Context, submitterID string) ([]domain.Ticket, error) {
	return r.filterLive(ctx, func(t *domain.Ticket) bool { return t.SubmitterID == submitterID })
}

func (r *redisTicketRepository) filterLive(ctx context.Context, keep func(*domain.Ticket) bool) ([]domain.Ticket, error) {
	tickets, err := r.ListLive(ctx)
	if err != nil {
		return nil, err
	}
	filtered := make([]domain.Ticket, 0, len(tickets))
	for i := range tickets {
		if keep(&tickets[i]) {
			filtered = append(filtered, tickets[i])
		}
	}
	return filtered, nil
}
