package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/support-hub/helpdesk-core/internal/domain"
	"github.com/support-hub/helpdesk-core/internal/events"
	"github.com/support-hub/helpdesk-core/internal/repository"
	"github.com/support-hub/helpdesk-core/internal/service"
)

// DispatchWorker is the operator-facing consumer. It records every bus event
// into the Postgres audit trail and retires pending reminders when their
// ticket completes or disappears.
type DispatchWorker struct {
	audit     repository.AuditRepository
	reminders *service.ReminderService
	logger    *zap.Logger
}

// StartDispatchWorker subscribes audit and reminder handlers on the bus.
// audit may be nil when Postgres is not configured; auditing is then skipped.
func StartDispatchWorker(audit repository.AuditRepository, reminders *service.ReminderService, bus events.Bus, logger *zap.Logger) {
	w := &DispatchWorker{audit: audit, reminders: reminders, logger: logger}
	for _, channel := range events.Channels() {
		ch := channel
		bus.Subscribe(ch, func(ctx context.Context, evt events.Event) error {
			return w.record(ctx, ch, evt)
		})
	}
	bus.Subscribe(events.ChannelTransitioned, w.onTransitioned)
	bus.Subscribe(events.ChannelDeleted, w.onDeleted)
}

// record appends the event to the audit trail. Insertion is idempotent on
// event id, so a redelivered event never duplicates a row.
func (w *DispatchWorker) record(ctx context.Context, channel string, evt events.Event) error {
	if w.audit == nil {
		return nil
	}
	entry := &domain.TicketEvent{
		ID:        evt.ID,
		TicketID:  evt.TicketID,
		Channel:   channel,
		EventType: string(evt.Type),
		Payload:   evt.PayloadMap(),
		CreatedAt: evt.Timestamp,
	}
	if err := w.audit.Create(ctx, entry); err != nil {
		w.logger.Error("audit insert failed",
			zap.String("event_id", evt.ID),
			zap.String("channel", channel),
			zap.Error(err))
		return err
	}
	return nil
}

func (w *DispatchWorker) onTransitioned(ctx context.Context, evt events.Event) error {
	if w.reminders == nil {
		return nil
	}
	var payload events.TransitionedPayload
	if err := evt.DecodePayload(&payload); err != nil {
		w.logger.Warn("undecodable transition payload", zap.String("event_id", evt.ID), zap.Error(err))
		return nil
	}
	if payload.NewStatus.IsTerminal() {
		w.reminders.Cancel(ctx, evt.TicketID)
	}
	return nil
}

func (w *DispatchWorker) onDeleted(ctx context.Context, evt events.Event) error {
	if w.reminders == nil {
		return nil
	}
	w.reminders.Cancel(ctx, evt.TicketID)
	return nil
}
