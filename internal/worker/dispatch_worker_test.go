package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/support-hub/helpdesk-core/internal/domain"
	"github.com/support-hub/helpdesk-core/internal/events"
	"github.com/support-hub/helpdesk-core/internal/repository"
	"github.com/support-hub/helpdesk-core/internal/schedule"
	"github.com/support-hub/helpdesk-core/internal/service"
	apperrors "github.com/support-hub/helpdesk-core/pkg/util"
)

func TestDispatchCancelsReminderOnCompletion(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()
	bus := events.NewMemoryBus(logger)
	tickets := repository.NewMemoryTicketRepository()
	reminderRepo := repository.NewMemoryReminderRepository()
	sched := schedule.NewScheduler(logger)

	reminders := service.NewReminderService(service.ReminderDependencies{
		TicketRepo:   tickets,
		ReminderRepo: reminderRepo,
		Bus:          bus,
		Scheduler:    sched,
		Default:      24 * time.Hour,
		Logger:       logger,
	})
	StartDispatchWorker(nil, reminders, bus, logger)

	alice := "alice"
	ticket := &domain.Ticket{SubmitterID: "u1", Text: "x", Status: domain.TicketStatusInProgress, Assignee: &alice}
	require.NoError(t, tickets.Create(ctx, ticket))
	_, err := reminders.Set(ctx, ticket.ID, time.Hour)
	require.NoError(t, err)

	evt := events.NewEvent(events.EventTicketTransitioned, ticket.ID, events.TransitionedPayload{
		OldStatus: domain.TicketStatusInProgress,
		NewStatus: domain.TicketStatusCompleted,
		Actor:     "alice",
	})
	require.NoError(t, bus.Publish(ctx, events.ChannelTransitioned, evt))

	_, err = reminderRepo.Get(ctx, ticket.ID)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestDispatchCancelsReminderOnDelete(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()
	bus := events.NewMemoryBus(logger)
	tickets := repository.NewMemoryTicketRepository()
	reminderRepo := repository.NewMemoryReminderRepository()

	reminders := service.NewReminderService(service.ReminderDependencies{
		TicketRepo:   tickets,
		ReminderRepo: reminderRepo,
		Bus:          bus,
		Scheduler:    schedule.NewScheduler(logger),
		Default:      24 * time.Hour,
		Logger:       logger,
	})
	StartDispatchWorker(nil, reminders, bus, logger)

	ticket := &domain.Ticket{SubmitterID: "u1", Text: "x", Status: domain.TicketStatusInProgress}
	require.NoError(t, tickets.Create(ctx, ticket))
	_, err := reminders.Set(ctx, ticket.ID, time.Hour)
	require.NoError(t, err)

	evt := events.NewEvent(events.EventTicketDeleted, ticket.ID, events.DeletedPayload{SubmitterID: "u1"})
	require.NoError(t, bus.Publish(ctx, events.ChannelDeleted, evt))

	_, err = reminderRepo.Get(ctx, ticket.ID)
	assert.True(t, apperrors.IsNotFound(err))
}
