package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/support-hub/helpdesk-core/internal/domain"
	"github.com/support-hub/helpdesk-core/internal/events"
	"github.com/support-hub/helpdesk-core/internal/repository"
	apperrors "github.com/support-hub/helpdesk-core/pkg/util"
)

// allowedTransitions is the ticket status graph. Unreacted never jumps
// straight to Completed; that is a business rule, not an oversight.
var allowedTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusUnreacted:  {domain.TicketStatusWaiting, domain.TicketStatusInProgress},
	domain.TicketStatusWaiting:    {domain.TicketStatusInProgress},
	domain.TicketStatusInProgress: {domain.TicketStatusCompleted},
	domain.TicketStatusCompleted:  {domain.TicketStatusInProgress},
}

func isValidTransition(current, next domain.TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// LifecycleService is the transition authority. Every status change flows
// through Transition; deletion is a separate administrative operation
// reachable from any state.
type LifecycleService struct {
	tickets repository.TicketRepository
	stats   *StatsService
	bus     events.Bus
	logger  *zap.Logger
}

// LifecycleDependencies bundles collaborators for the lifecycle service.
type LifecycleDependencies struct {
	TicketRepo repository.TicketRepository
	Stats      *StatsService
	Bus        events.Bus
	Logger     *zap.Logger
}

// NewLifecycleService constructs the service.
func NewLifecycleService(deps LifecycleDependencies) *LifecycleService {
	return &LifecycleService{
		tickets: deps.TicketRepo,
		stats:   deps.Stats,
		bus:     deps.Bus,
		logger:  deps.Logger,
	}
}

// Transition moves the ticket to target. Rejections (NOT_FOUND,
// INVALID_TRANSITION, VALIDATION_FAILED) come back as domain errors and leave
// state untouched. Re-applying an identical transition is a no-op, which
// guards against duplicate event delivery.
func (s *LifecycleService) Transition(ctx context.Context, ticketID string, target domain.TicketStatus, actor string, assignee *string) (*domain.Ticket, error) {
	if !target.IsValid() {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": string(target)})
	}

	ticket, err := s.tickets.Get(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	newAssignee := resolveAssignee(target, ticket, actor, assignee)
	if target == domain.TicketStatusInProgress && newAssignee == "" {
		return nil, apperrors.NewValidationError("assignee required for in_progress", nil)
	}

	if ticket.Status == target && ticket.AssigneeHandle() == newAssignee {
		// Idempotent replay; state and counters already reflect it.
		return ticket, nil
	}

	if !isValidTransition(ticket.Status, target) {
		return nil, apperrors.NewInvalidTransition(string(ticket.Status), string(target))
	}

	oldStatus := ticket.Status
	oldAssignee := ticket.AssigneeHandle()
	now := time.Now().UTC()

	update := domain.TicketUpdate{Status: &target, UpdatedAt: &now}
	if newAssignee == "" {
		update.ClearAssign = true
	} else {
		update.Assignee = &newAssignee
	}
	if err := s.tickets.Update(ctx, ticketID, update); err != nil {
		return nil, err
	}
	update.Apply(ticket)

	s.stats.UpdateOnTransition(ctx, oldStatus, target, oldAssignee, newAssignee)

	payload := events.TransitionedPayload{
		OldStatus: oldStatus,
		NewStatus: target,
		Actor:     actor,
	}
	if newAssignee != "" {
		payload.Assignee = &newAssignee
	}
	s.publish(ctx, events.ChannelTransitioned, events.NewEvent(events.EventTicketTransitioned, ticketID, payload))

	s.logger.Info("ticket transitioned",
		zap.String("ticket_id", ticketID),
		zap.String("from", string(oldStatus)),
		zap.String("to", string(target)),
		zap.String("actor", actor))
	return ticket, nil
}

// resolveAssignee computes the post-transition assignee. Taking a ticket into
// progress without naming an assignee assigns the acting operator; leaving
// the working statuses clears it; completing keeps whoever held it.
func resolveAssignee(target domain.TicketStatus, ticket *domain.Ticket, actor string, assignee *string) string {
	switch target {
	case domain.TicketStatusInProgress:
		if assignee != nil && strings.TrimSpace(*assignee) != "" {
			return strings.TrimSpace(*assignee)
		}
		return strings.TrimSpace(actor)
	case domain.TicketStatusCompleted:
		return ticket.AssigneeHandle()
	default:
		return ""
	}
}

// Delete removes the ticket and its counter contribution. Administrative
// operation, valid from any status.
func (s *LifecycleService) Delete(ctx context.Context, ticketID, actor string) error {
	ticket, err := s.tickets.Get(ctx, ticketID)
	if err != nil {
		return err
	}

	s.stats.UpdateOnDelete(ctx, ticket.Status, ticket.AssigneeHandle())

	if err := s.tickets.Delete(ctx, ticketID); err != nil {
		return err
	}

	payload := events.DeletedPayload{SubmitterID: ticket.SubmitterID, Status: ticket.Status}
	s.publish(ctx, events.ChannelDeleted, events.NewEvent(events.EventTicketDeleted, ticketID, payload))
	s.logger.Info("ticket deleted", zap.String("ticket_id", ticketID), zap.String("actor", actor))
	return nil
}

// Reply records the operator answer on the ticket and announces the update.
func (s *LifecycleService) Reply(ctx context.Context, ticketID, author, text string) (*domain.Ticket, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.NewValidationError("reply text required", nil)
	}

	ticket, err := s.tickets.Get(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	reply := &domain.TicketReply{Text: text, Author: author, SentAt: now}
	update := domain.TicketUpdate{Reply: reply, UpdatedAt: &now}
	if err := s.tickets.Update(ctx, ticketID, update); err != nil {
		return nil, err
	}
	update.Apply(ticket)

	s.publish(ctx, events.ChannelUpdated, events.NewEvent(events.EventTicketUpdated, ticketID, events.UpdatedPayload{Text: ticket.Text}))
	return ticket, nil
}

// publish is fire-and-forget; a transport failure degrades to a logged
// diagnostic, never to a caller-visible error.
func (s *LifecycleService) publish(ctx context.Context, channel string, evt events.Event) {
	if err := s.bus.Publish(ctx, channel, evt); err != nil {
		s.logger.Warn("event publish failed",
			zap.String("channel", channel),
			zap.String("event_id", evt.ID),
			zap.Error(err))
	}
}
