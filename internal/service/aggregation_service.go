package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/support-hub/helpdesk-core/internal/domain"
	"github.com/support-hub/helpdesk-core/internal/events"
	"github.com/support-hub/helpdesk-core/internal/repository"
	"github.com/support-hub/helpdesk-core/internal/schedule"
	apperrors "github.com/support-hub/helpdesk-core/pkg/util"
)

// windowGrace pads the stored window TTL past the debounce timeout so the
// scheduler, not key expiry, decides when a window closes.
const windowGrace = time.Minute

// AggregationService coalesces a submitter's rapid consecutive messages into
// one ticket. The first message creates the ticket immediately (zero
// first-contact latency); followups inside the window extend it. This is a
// trailing debounce: the window closes after the timeout of inactivity and
// the ticket stays as-is.
type AggregationService struct {
	tickets repository.TicketRepository
	windows repository.WindowRepository
	stats   *StatsService
	bus     events.Bus
	sched   *schedule.Scheduler
	timeout time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

// AggregationDependencies bundles collaborators for the aggregation service.
type AggregationDependencies struct {
	TicketRepo repository.TicketRepository
	WindowRepo repository.WindowRepository
	Stats      *StatsService
	Bus        events.Bus
	Scheduler  *schedule.Scheduler
	Timeout    time.Duration
	Logger     *zap.Logger
}

// NewAggregationService constructs the window manager.
func NewAggregationService(deps AggregationDependencies) *AggregationService {
	return &AggregationService{
		tickets: deps.TicketRepo,
		windows: deps.WindowRepo,
		stats:   deps.Stats,
		bus:     deps.Bus,
		sched:   deps.Scheduler,
		timeout: deps.Timeout,
		logger:  deps.Logger,
		now:     time.Now,
	}
}

func windowTimerID(submitterID string) string {
	return "window:" + submitterID
}

// OnMessage routes one submitter message either into a fresh ticket or onto
// the ticket behind the submitter's open window. Returns the ticket and
// whether it was created by this call.
func (s *AggregationService) OnMessage(ctx context.Context, submitterID, handle, content string, attachments []domain.AttachmentRef) (*domain.Ticket, bool, error) {
	content = strings.TrimSpace(content)
	if submitterID == "" {
		return nil, false, apperrors.NewValidationError("submitter_id required", nil)
	}
	if content == "" && len(attachments) == 0 {
		return nil, false, apperrors.NewValidationError("message content required", nil)
	}

	window, err := s.windows.Get(ctx, submitterID)
	if err == nil && window.Expired(s.now()) {
		// The record can outlive its timer across a restart: the TTL carries
		// a grace pad. Expiry on the record itself wins.
		s.CloseWindow(ctx, submitterID)
		err = apperrors.NewNotFound("window", map[string]any{"submitter_id": submitterID})
	}
	if err == nil {
		ticket, extended, err := s.extendWindow(ctx, window, content, attachments)
		if err != nil {
			return nil, false, err
		}
		if extended {
			return ticket, false, nil
		}
		// Stale window (ticket gone or terminal): closed, fall through to create.
	} else if !apperrors.IsNotFound(err) {
		return nil, false, err
	}

	ticket, err := s.createTicket(ctx, submitterID, handle, content, attachments)
	if err != nil {
		return nil, false, err
	}
	return ticket, true, nil
}

func (s *AggregationService) createTicket(ctx context.Context, submitterID, handle, content string, attachments []domain.AttachmentRef) (*domain.Ticket, error) {
	ticket := &domain.Ticket{
		SubmitterID:     submitterID,
		SubmitterHandle: handle,
		Text:            content,
		Status:          domain.TicketStatusUnreacted,
		MessageCount:    1,
		Attachments:     attachments,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}

	s.stats.UpdateOnCreate(ctx, ticket.Status)
	s.openWindow(ctx, submitterID, ticket.ID)

	if err := s.bus.Publish(ctx, events.ChannelCreated, events.NewEvent(events.EventTicketCreated, ticket.ID, nil)); err != nil {
		s.logger.Warn("created event publish failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
	}

	s.logger.Info("ticket created",
		zap.String("ticket_id", ticket.ID),
		zap.String("submitter_id", submitterID))
	return ticket, nil
}

// extendWindow appends the message to the window's ticket. Returns
// extended=false when the window was stale and has been closed instead.
func (s *AggregationService) extendWindow(ctx context.Context, window *domain.AggregationWindow, content string, attachments []domain.AttachmentRef) (*domain.Ticket, bool, error) {
	ticket, err := s.tickets.Get(ctx, window.TicketID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			s.CloseWindow(ctx, window.SubmitterID)
			return nil, false, nil
		}
		return nil, false, err
	}
	if ticket.Status.IsTerminal() {
		s.CloseWindow(ctx, window.SubmitterID)
		return nil, false, nil
	}

	text := ticket.Text
	if content != "" {
		if text != "" {
			text += "\n\n"
		}
		text += content
	}
	count := ticket.MessageCount + 1
	aggregated := true

	update := domain.TicketUpdate{
		Text:           &text,
		MessageCount:   &count,
		Aggregated:     &aggregated,
		AddAttachments: attachments,
	}
	if err := s.tickets.Update(ctx, ticket.ID, update); err != nil {
		return nil, false, err
	}
	update.Apply(ticket)

	s.openWindow(ctx, window.SubmitterID, ticket.ID)

	evt := events.NewEvent(events.EventTicketUpdated, ticket.ID, events.UpdatedPayload{Text: ticket.Text})
	if err := s.bus.Publish(ctx, events.ChannelUpdated, evt); err != nil {
		s.logger.Warn("updated event publish failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
	}

	s.logger.Info("ticket extended",
		zap.String("ticket_id", ticket.ID),
		zap.Int("message_count", count))
	return ticket, true, nil
}

// openWindow writes the window record and (re)arms its expiry timer,
// cancelling any previous timer for the submitter.
func (s *AggregationService) openWindow(ctx context.Context, submitterID, ticketID string) {
	now := s.now().UTC()
	window := &domain.AggregationWindow{
		SubmitterID: submitterID,
		TicketID:    ticketID,
		OpenedAt:    now,
		ExpiresAt:   now.Add(s.timeout),
	}
	if err := s.windows.Put(ctx, window, s.timeout+windowGrace); err != nil {
		s.logger.Warn("window store failed", zap.String("submitter_id", submitterID), zap.Error(err))
	}

	s.sched.Schedule(windowTimerID(submitterID), window.ExpiresAt, func() {
		s.expireWindow(submitterID)
	})
}

// expireWindow fires after the timeout of submitter inactivity. The window
// entry goes away; the ticket is left untouched.
func (s *AggregationService) expireWindow(submitterID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.windows.Delete(ctx, submitterID); err != nil {
		s.logger.Warn("window cleanup failed", zap.String("submitter_id", submitterID), zap.Error(err))
		return
	}
	s.logger.Debug("aggregation window expired", zap.String("submitter_id", submitterID))
}

// CloseWindow cancels the submitter's window and timer immediately. Called
// when the window's ticket leaves a non-terminal status or is deleted.
func (s *AggregationService) CloseWindow(ctx context.Context, submitterID string) {
	s.sched.Cancel(windowTimerID(submitterID))
	if err := s.windows.Delete(ctx, submitterID); err != nil {
		s.logger.Warn("window close failed", zap.String("submitter_id", submitterID), zap.Error(err))
	}
}

// CloseWindowForTicket closes the submitter's window only when it references
// the given ticket. Used by the ingestion worker reacting to bus events.
func (s *AggregationService) CloseWindowForTicket(ctx context.Context, submitterID, ticketID string) {
	window, err := s.windows.Get(ctx, submitterID)
	if err != nil {
		return
	}
	if window.TicketID == ticketID {
		s.CloseWindow(ctx, submitterID)
	}
}
