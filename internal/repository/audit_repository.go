package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/support-hub/helpdesk-core/internal/domain"
)

// AuditRepository stores the durable trail of bus events.
type AuditRepository interface {
	Create(ctx context.Context, event *domain.TicketEvent) error
	ListByTicket(ctx context.Context, ticketID string, limit int) ([]domain.TicketEvent, error)
}

type auditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository builds the pgx-backed audit repository.
func NewAuditRepository(pool *pgxpool.Pool) AuditRepository {
	return &auditRepository{pool: pool}
}

func (r *auditRepository) Create(ctx context.Context, event *domain.TicketEvent) error {
	const query = `
        INSERT INTO ticket_events (id, ticket_id, channel, event_type, payload)
        VALUES ($1,$2,$3,$4,$5)
        ON CONFLICT (id) DO NOTHING
        RETURNING created_at`
	row := r.pool.QueryRow(ctx, query,
		event.ID,
		event.TicketID,
		event.Channel,
		event.EventType,
		event.Payload,
	)
	// ON CONFLICT keeps replayed events idempotent; the scan returns
	// ErrNoRows when the row already existed, which is fine.
	if err := row.Scan(&event.CreatedAt); err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return err
	}
	return nil
}

func (r *auditRepository) ListByTicket(ctx context.Context, ticketID string, limit int) ([]domain.TicketEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	const query = `
        SELECT id, ticket_id, channel, event_type, payload, created_at
        FROM ticket_events WHERE ticket_id=$1 ORDER BY created_at ASC LIMIT $2`
	rows, err := r.pool.Query(ctx, query, ticketID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketEvent
	for rows.Next() {
		var event domain.TicketEvent
		if err := rows.Scan(
			&event.ID,
			&event.TicketID,
			&event.Channel,
			&event.EventType,
			&event.Payload,
			&event.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, event)
	}
	return result, rows.Err()
}
