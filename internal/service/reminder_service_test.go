package service

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
	apperrors "github.com/support-hub/helpdesk-core/pkg/util"
)

type reminderFixture struct {
	service   *ReminderService
	tickets   repository.TicketRepository
	reminders repository.ReminderRepository
	sched     *schedule.Scheduler
	fired     *[]events.Event
	clock     time.Time
}

func newReminderFixture(t *testing.T) *reminderFixture {
	t.Helper()
	logger := zap.NewNop()
	bus := events.NewMemoryBus(logger)

	var fired []events.Event
	bus.Subscribe(events.ChannelReminders, func(ctx context.Context, evt events.Event) error {
		fired = append(fired, evt)
		return nil
	})

	f := &reminderFixture{
		tickets:   repository.NewMemoryTicketRepository(),
		reminders: repository.NewMemoryReminderRepository(),
		sched:     schedule.NewScheduler(logger),
		fired:     &fired,
		clock:     time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC),
	}
	f.service = NewReminderService(ReminderDependencies{
		TicketRepo:   f.tickets,
		ReminderRepo: f.reminders,
		Bus:          bus,
		Scheduler:    f.sched,
		Default:      24 * time.Hour,
		Logger:       logger,
	})
	f.service.now = func() time.Time { return f.clock }
	return f
}

func (f *reminderFixture) seed(t *testing.T, status domain.TicketStatus, assignee string) *domain.Ticket {
	t.Helper()
	ticket := &domain.Ticket{SubmitterID: "u1", Text: "help", Status: status}
	if assignee != "" {
		ticket.Assignee = &assignee
	}
	require.NoError(t, f.tickets.Create(context.Background(), ticket))
	return ticket
}

func TestReminderFiresForInProgressTicket(t *testing.T) {
	ctx := context.Background()
	f := newReminderFixture(t)
	ticket := f.seed(t, domain.TicketStatusInProgress, "alice")

	reminder, err := f.service.Set(ctx, ticket.ID, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, f.clock.Add(time.Hour), reminder.DueAt)

	f.sched.RunPending(f.clock.Add(2 * time.Hour))

	require.Len(t, *f.fired, 1)
	var payload events.ReminderPayload
	require.NoError(t, (*f.fired)[0].DecodePayload(&payload))
	require.NotNil(t, payload.Assignee)
	assert.Equal(t, "alice", *payload.Assignee)

	// The stored record is consumed on fire.
	_, err = f.reminders.Get(ctx, ticket.ID)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestReminderSuppressedWhenTicketLeftInProgress(t *testing.T) {
	ctx := context.Background()
	f := newReminderFixture(t)
	ticket := f.seed(t, domain.TicketStatusInProgress, "alice")

	_, err := f.service.Set(ctx, ticket.ID, time.Hour)
	require.NoError(t, err)

	// Completed before the timer fires.
	status := domain.TicketStatusCompleted
	require.NoError(t, f.tickets.Update(ctx, ticket.ID, domain.TicketUpdate{Status: &status}))

	f.sched.RunPending(f.clock.Add(2 * time.Hour))
	assert.Empty(t, *f.fired)
}

func TestReminderSetAgainResetsTimer(t *testing.T) {
	ctx := context.Background()
	f := newReminderFixture(t)
	ticket := f.seed(t, domain.TicketStatusInProgress, "alice")

	_, err := f.service.Set(ctx, ticket.ID, time.Hour)
	require.NoError(t, err)
	_, err = f.service.Set(ctx, ticket.ID, 3*time.Hour)
	require.NoError(t, err)

	f.sched.RunPending(f.clock.Add(2 * time.Hour))
	assert.Empty(t, *f.fired)

	f.sched.RunPending(f.clock.Add(4 * time.Hour))
	assert.Len(t, *f.fired, 1)
}

func TestReminderCancel(t *testing.T) {
	ctx := context.Background()
	f := newReminderFixture(t)
	ticket := f.seed(t, domain.TicketStatusInProgress, "alice")

	_, err := f.service.Set(ctx, ticket.ID, time.Hour)
	require.NoError(t, err)
	f.service.Cancel(ctx, ticket.ID)

	f.sched.RunPending(f.clock.Add(2 * time.Hour))
	assert.Empty(t, *f.fired)
	_, err = f.reminders.Get(ctx, ticket.ID)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestReminderRejectsCompletedTicketAndUsesDefault(t *testing.T) {
	ctx := context.Background()
	f := newReminderFixture(t)

	done := f.seed(t, domain.TicketStatusCompleted, "alice")
	_, err := f.service.Set(ctx, done.ID, time.Hour)
	assert.Error(t, err)

	open := f.seed(t, domain.TicketStatusInProgress, "alice")
	reminder, err := f.service.Set(ctx, open.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, f.clock.Add(24*time.Hour), reminder.DueAt)
}
