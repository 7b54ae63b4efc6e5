package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/support-hub/helpdesk-core/internal/domain"
	"github.com/support-hub/helpdesk-core/internal/events"
	"github.com/support-hub/helpdesk-core/internal/repository"
	"github.com/support-hub/helpdesk-core/internal/schedule"
	apperrors "github.com/support-hub/helpdesk-core/pkg/util"
)

// ReminderService manages follow-up nudges for tickets an operator took but
// has not resolved. One reminder per ticket; setting again resets the timer.
// A fired reminder is only published if the ticket is still in progress at
// fire time, so a completed ticket never nags anyone.
type ReminderService struct {
	tickets   repository.TicketRepository
	reminders repository.ReminderRepository
	bus       events.Bus
	sched     *schedule.Scheduler
	fallback  time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// ReminderDependencies bundles collaborators for the reminder service.
type ReminderDependencies struct {
	TicketRepo   repository.TicketRepository
	ReminderRepo repository.ReminderRepository
	Bus          events.Bus
	Scheduler    *schedule.Scheduler
	Default      time.Duration
	Logger       *zap.Logger
}

// NewReminderService constructs the reminder manager.
func NewReminderService(deps ReminderDependencies) *ReminderService {
	return &ReminderService{
		tickets:   deps.TicketRepo,
		reminders: deps.ReminderRepo,
		bus:       deps.Bus,
		sched:     deps.Scheduler,
		fallback:  deps.Default,
		logger:    deps.Logger,
		now:       time.Now,
	}
}

func reminderTimerID(ticketID string) string {
	return "remind:" + ticketID
}

// Set schedules a reminder for the ticket after d. A non-positive d falls
// back to the configured default. An existing reminder is replaced.
func (s *ReminderService) Set(ctx context.Context, ticketID string, d time.Duration) (*domain.Reminder, error) {
	if d <= 0 {
		d = s.fallback
	}

	ticket, err := s.tickets.Get(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status.IsTerminal() {
		return nil, apperrors.NewValidationError("cannot set a reminder on a completed ticket",
			map[string]any{"ticket_id": ticketID})
	}

	now := s.now().UTC()
	reminder := &domain.Reminder{
		TicketID: ticketID,
		SetAt:    now,
		DueAt:    now.Add(d),
	}
	if err := s.reminders.Put(ctx, reminder, d+windowGrace); err != nil {
		return nil, err
	}

	s.sched.Schedule(reminderTimerID(ticketID), reminder.DueAt, func() {
		s.fire(ticketID)
	})

	s.logger.Info("reminder set",
		zap.String("ticket_id", ticketID),
		zap.Time("due_at", reminder.DueAt))
	return reminder, nil
}

// Cancel drops the pending reminder for the ticket, if any. Called when a
// ticket completes or is deleted.
func (s *ReminderService) Cancel(ctx context.Context, ticketID string) {
	s.sched.Cancel(reminderTimerID(ticketID))
	if err := s.reminders.Delete(ctx, ticketID); err != nil {
		s.logger.Warn("reminder record delete failed",
			zap.String("ticket_id", ticketID), zap.Error(err))
	}
}

// fire runs when the reminder timer elapses. The ticket is re-read so a
// transition that raced the timer wins: only a still in-progress ticket
// produces a nudge.
func (s *ReminderService) fire(ticketID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	reminder, err := s.reminders.Get(ctx, ticketID)
	if err != nil {
		if !apperrors.IsNotFound(err) {
			s.logger.Warn("reminder lookup failed", zap.String("ticket_id", ticketID), zap.Error(err))
		}
		return
	}
	defer func() {
		if err := s.reminders.Delete(ctx, ticketID); err != nil {
			s.logger.Warn("reminder record delete failed",
				zap.String("ticket_id", ticketID), zap.Error(err))
		}
	}()

	ticket, err := s.tickets.Get(ctx, ticketID)
	if err != nil {
		if !apperrors.IsNotFound(err) {
			s.logger.Warn("reminder ticket lookup failed",
				zap.String("ticket_id", ticketID), zap.Error(err))
		}
		return
	}
	if ticket.Status != domain.TicketStatusInProgress {
		s.logger.Debug("reminder suppressed, ticket no longer in progress",
			zap.String("ticket_id", ticketID),
			zap.String("status", string(ticket.Status)))
		return
	}

	payload := events.ReminderPayload{
		Assignee: ticket.Assignee,
		SetAt:    reminder.SetAt.Format(time.RFC3339),
	}
	evt := events.NewEvent(events.EventTicketReminder, ticketID, payload)
	if err := s.bus.Publish(ctx, events.ChannelReminders, evt); err != nil {
		s.logger.Error("reminder publish failed",
			zap.String("ticket_id", ticketID), zap.Error(err))
		return
	}
	s.logger.Info("reminder fired", zap.String("ticket_id", ticketID))
}
