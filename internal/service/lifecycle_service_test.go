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
	apperrors "github.com/support-hub/helpdesk-core/pkg/util"
)

type lifecycleFixture struct {
	service *LifecycleService
	tickets repository.TicketRepository
	stats   *StatsService
	bus     events.Bus
	events  *[]events.Event
}

func newLifecycleFixture(t *testing.T) *lifecycleFixture {
	t.Helper()
	logger := zap.NewNop()
	tickets := repository.NewMemoryTicketRepository()
	stats, _ := newTestStats(time.Now())
	bus := events.NewMemoryBus(logger)

	var published []events.Event
	bus.Subscribe(events.ChannelTransitioned, func(ctx context.Context, evt events.Event) error {
		published = append(published, evt)
		return nil
	})
	bus.Subscribe(events.ChannelDeleted, func(ctx context.Context, evt events.Event) error {
		published = append(published, evt)
		return nil
	})

	svc := NewLifecycleService(LifecycleDependencies{
		TicketRepo: tickets,
		Stats:      stats,
		Bus:        bus,
		Logger:     logger,
	})
	return &lifecycleFixture{service: svc, tickets: tickets, stats: stats, bus: bus, events: &published}
}

func (f *lifecycleFixture) seed(t *testing.T, status domain.TicketStatus, assignee string) *domain.Ticket {
	t.Helper()
	ticket := &domain.Ticket{SubmitterID: "u1", Text: "help", Status: status}
	if assignee != "" {
		ticket.Assignee = &assignee
	}
	require.NoError(t, f.tickets.Create(context.Background(), ticket))
	f.stats.UpdateOnCreate(context.Background(), status)
	return ticket
}

func TestTransitionGraph(t *testing.T) {
	cases := []struct {
		from, to domain.TicketStatus
		ok       bool
	}{
		{domain.TicketStatusUnreacted, domain.TicketStatusWaiting, true},
		{domain.TicketStatusUnreacted, domain.TicketStatusInProgress, true},
		{domain.TicketStatusUnreacted, domain.TicketStatusCompleted, false},
		{domain.TicketStatusWaiting, domain.TicketStatusInProgress, true},
		{domain.TicketStatusWaiting, domain.TicketStatusUnreacted, false},
		{domain.TicketStatusWaiting, domain.TicketStatusCompleted, false},
		{domain.TicketStatusInProgress, domain.TicketStatusCompleted, true},
		{domain.TicketStatusInProgress, domain.TicketStatusWaiting, false},
		{domain.TicketStatusCompleted, domain.TicketStatusInProgress, true},
		{domain.TicketStatusCompleted, domain.TicketStatusWaiting, false},
		{domain.TicketStatusCompleted, domain.TicketStatusUnreacted, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.ok, isValidTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestTransitionRejectsInvalidEdgeAndLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	f := newLifecycleFixture(t)
	ticket := f.seed(t, domain.TicketStatusUnreacted, "")

	_, err := f.service.Transition(ctx, ticket.ID, domain.TicketStatusCompleted, "alice", nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidTransition(err))

	got, err := f.tickets.Get(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusUnreacted, got.Status)
	assert.Empty(t, *f.events)

	global, err := f.stats.GlobalSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), global.Unreacted)
}

func TestTransitionToInProgressAssignsActor(t *testing.T) {
	ctx := context.Background()
	f := newLifecycleFixture(t)
	ticket := f.seed(t, domain.TicketStatusUnreacted, "")

	got, err := f.service.Transition(ctx, ticket.ID, domain.TicketStatusInProgress, "alice", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, got.Status)
	assert.Equal(t, "alice", got.AssigneeHandle())

	require.Len(t, *f.events, 1)
	var payload events.TransitionedPayload
	require.NoError(t, (*f.events)[0].DecodePayload(&payload))
	assert.Equal(t, domain.TicketStatusUnreacted, payload.OldStatus)
	assert.Equal(t, domain.TicketStatusInProgress, payload.NewStatus)
}

func TestTransitionToWaitingClearsAssignee(t *testing.T) {
	ctx := context.Background()
	f := newLifecycleFixture(t)
	ticket := f.seed(t, domain.TicketStatusUnreacted, "")

	got, err := f.service.Transition(ctx, ticket.ID, domain.TicketStatusWaiting, "alice", nil)
	require.NoError(t, err)
	assert.Empty(t, got.AssigneeHandle())
}

func TestTransitionCompleteKeepsAssignee(t *testing.T) {
	ctx := context.Background()
	f := newLifecycleFixture(t)
	ticket := f.seed(t, domain.TicketStatusInProgress, "alice")

	got, err := f.service.Transition(ctx, ticket.ID, domain.TicketStatusCompleted, "bob", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusCompleted, got.Status)
	assert.Equal(t, "alice", got.AssigneeHandle())
}

func TestTransitionIdempotentReplay(t *testing.T) {
	ctx := context.Background()
	f := newLifecycleFixture(t)
	ticket := f.seed(t, domain.TicketStatusUnreacted, "")

	_, err := f.service.Transition(ctx, ticket.ID, domain.TicketStatusInProgress, "alice", nil)
	require.NoError(t, err)
	// Same transition again: no event, no counter movement.
	_, err = f.service.Transition(ctx, ticket.ID, domain.TicketStatusInProgress, "alice", nil)
	require.NoError(t, err)

	assert.Len(t, *f.events, 1)
	global, err := f.stats.GlobalSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), global.InProgress)
	assert.Equal(t, int64(0), global.Unreacted)
}

func TestTransitionSameStatusNewAssigneeRejected(t *testing.T) {
	ctx := context.Background()
	f := newLifecycleFixture(t)
	ticket := f.seed(t, domain.TicketStatusInProgress, "alice")

	bob := "bob"
	_, err := f.service.Transition(ctx, ticket.ID, domain.TicketStatusInProgress, "bob", &bob)
	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidTransition(err))
}

func TestTransitionUnknownStatusAndMissingTicket(t *testing.T) {
	ctx := context.Background()
	f := newLifecycleFixture(t)

	_, err := f.service.Transition(ctx, "whatever", domain.TicketStatus("bogus"), "alice", nil)
	require.Error(t, err)

	_, err = f.service.Transition(ctx, "missing", domain.TicketStatusWaiting, "alice", nil)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestDeleteRemovesTicketAndCounters(t *testing.T) {
	ctx := context.Background()
	f := newLifecycleFixture(t)
	ticket := f.seed(t, domain.TicketStatusUnreacted, "")

	require.NoError(t, f.service.Delete(ctx, ticket.ID, "alice"))

	_, err := f.tickets.Get(ctx, ticket.ID)
	assert.True(t, apperrors.IsNotFound(err))

	global, err := f.stats.GlobalSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), global.Total())

	require.Len(t, *f.events, 1)
	var payload events.DeletedPayload
	require.NoError(t, (*f.events)[0].DecodePayload(&payload))
	assert.Equal(t, "u1", payload.SubmitterID)
}

func TestReplyRecordsAnswer(t *testing.T) {
	ctx := context.Background()
	f := newLifecycleFixture(t)
	ticket := f.seed(t, domain.TicketStatusInProgress, "alice")

	got, err := f.service.Reply(ctx, ticket.ID, "alice", "restart the printer")
	require.NoError(t, err)
	require.NotNil(t, got.Reply)
	assert.Equal(t, "restart the printer", got.Reply.Text)
	assert.Equal(t, "alice", got.Reply.Author)

	_, err = f.service.Reply(ctx, ticket.ID, "alice", "   ")
	assert.Error(t, err)
}
