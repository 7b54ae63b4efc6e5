package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/support-hub/helpdesk-core/internal/events"
	"github.com/support-hub/helpdesk-core/internal/repository"
	"github.com/support-hub/helpdesk-core/internal/service"
	apperrors "github.com/support-hub/helpdesk-core/pkg/util"
)

// IngestionWorker owns the message-aggregation windows. It closes a
// submitter's window when another process transitions or deletes the window's
// ticket, so a reopened conversation always starts a fresh ticket.
type IngestionWorker struct {
	aggregation *service.AggregationService
	tickets     repository.TicketRepository
	logger      *zap.Logger
}

// StartIngestionWorker subscribes the window-closing handlers on the bus.
// Must be called before the bus starts listening.
func StartIngestionWorker(aggregation *service.AggregationService, tickets repository.TicketRepository, bus events.Bus, logger *zap.Logger) {
	if aggregation == nil {
		return
	}
	w := &IngestionWorker{aggregation: aggregation, tickets: tickets, logger: logger}
	bus.Subscribe(events.ChannelTransitioned, w.onTransitioned)
	bus.Subscribe(events.ChannelDeleted, w.onDeleted)
}

func (w *IngestionWorker) onTransitioned(ctx context.Context, evt events.Event) error {
	ticket, err := w.tickets.Get(ctx, evt.TicketID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil
		}
		return err
	}
	w.aggregation.CloseWindowForTicket(ctx, ticket.SubmitterID, evt.TicketID)
	return nil
}

func (w *IngestionWorker) onDeleted(ctx context.Context, evt events.Event) error {
	var payload events.DeletedPayload
	if err := evt.DecodePayload(&payload); err != nil || payload.SubmitterID == "" {
		w.logger.Debug("deleted event without submitter hint, skipping window close",
			zap.String("ticket_id", evt.TicketID))
		return nil
	}
	w.aggregation.CloseWindowForTicket(ctx, payload.SubmitterID, evt.TicketID)
	return nil
}
