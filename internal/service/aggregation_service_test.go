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
)

type aggregationFixture struct {
	service *AggregationService
	tickets repository.TicketRepository
	windows repository.WindowRepository
	stats   *StatsService
	sched   *schedule.Scheduler
	clock   time.Time
}

func newAggregationFixture(t *testing.T) *aggregationFixture {
	t.Helper()
	logger := zap.NewNop()
	f := &aggregationFixture{
		tickets: repository.NewMemoryTicketRepository(),
		windows: repository.NewMemoryWindowRepository(),
		sched:   schedule.NewScheduler(logger),
		clock:   time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC),
	}
	f.stats, _ = newTestStats(f.clock)
	f.service = NewAggregationService(AggregationDependencies{
		TicketRepo: f.tickets,
		WindowRepo: f.windows,
		Stats:      f.stats,
		Bus:        events.NewMemoryBus(logger),
		Scheduler:  f.sched,
		Timeout:    time.Minute,
		Logger:     logger,
	})
	f.service.now = func() time.Time { return f.clock }
	return f
}

func (f *aggregationFixture) advance(d time.Duration) {
	f.clock = f.clock.Add(d)
	f.sched.RunPending(f.clock)
}

func TestFirstMessageCreatesTicketImmediately(t *testing.T) {
	ctx := context.Background()
	f := newAggregationFixture(t)

	ticket, created, err := f.service.OnMessage(ctx, "u1", "dave", "my laptop died", nil)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, domain.TicketStatusUnreacted, ticket.Status)
	assert.Equal(t, 1, ticket.MessageCount)
	assert.False(t, ticket.Aggregated)

	global, err := f.stats.GlobalSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), global.Unreacted)
}

func TestRapidMessagesAggregateIntoOneTicket(t *testing.T) {
	ctx := context.Background()
	f := newAggregationFixture(t)

	first, created, err := f.service.OnMessage(ctx, "u1", "dave", "my laptop died", nil)
	require.NoError(t, err)
	require.True(t, created)

	f.advance(20 * time.Second)
	_, created, err = f.service.OnMessage(ctx, "u1", "dave", "it smells like smoke", nil)
	require.NoError(t, err)
	assert.False(t, created)

	f.advance(20 * time.Second)
	ticket, created, err := f.service.OnMessage(ctx, "u1", "dave", "please hurry", nil)
	require.NoError(t, err)
	assert.False(t, created)

	assert.Equal(t, first.ID, ticket.ID)
	assert.Equal(t, 3, ticket.MessageCount)
	assert.True(t, ticket.Aggregated)
	assert.Equal(t, "my laptop died\n\nit smells like smoke\n\nplease hurry", ticket.Text)

	// Still exactly one ticket in the store.
	live, err := f.tickets.ListLive(ctx)
	require.NoError(t, err)
	assert.Len(t, live, 1)
}

func TestMessageAfterWindowExpiryCreatesNewTicket(t *testing.T) {
	ctx := context.Background()
	f := newAggregationFixture(t)

	first, _, err := f.service.OnMessage(ctx, "u1", "dave", "vpn is down", nil)
	require.NoError(t, err)

	f.advance(2 * time.Minute) // past the timeout, timer fires

	second, created, err := f.service.OnMessage(ctx, "u1", "dave", "also my mouse broke", nil)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 1, second.MessageCount)

	// The first ticket is untouched by the expiry.
	got, err := f.tickets.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "vpn is down", got.Text)
	assert.Equal(t, 1, got.MessageCount)
}

func TestWindowsAreIndependentPerSubmitter(t *testing.T) {
	ctx := context.Background()
	f := newAggregationFixture(t)

	a, _, err := f.service.OnMessage(ctx, "u1", "dave", "one", nil)
	require.NoError(t, err)
	b, _, err := f.service.OnMessage(ctx, "u2", "erin", "two", nil)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)

	ticket, created, err := f.service.OnMessage(ctx, "u1", "dave", "three", nil)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, a.ID, ticket.ID)
}

func TestStaleWindowFallsBackToCreate(t *testing.T) {
	ctx := context.Background()
	f := newAggregationFixture(t)

	first, _, err := f.service.OnMessage(ctx, "u1", "dave", "old issue", nil)
	require.NoError(t, err)

	// Ticket completed elsewhere while the window is still open.
	status := domain.TicketStatusCompleted
	require.NoError(t, f.tickets.Update(ctx, first.ID, domain.TicketUpdate{Status: &status}))

	second, created, err := f.service.OnMessage(ctx, "u1", "dave", "new issue", nil)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestExpiredWindowRecordCreatesNewTicket(t *testing.T) {
	ctx := context.Background()
	f := newAggregationFixture(t)

	first, _, err := f.service.OnMessage(ctx, "u1", "dave", "printer jam", nil)
	require.NoError(t, err)

	// Simulate a restart: the stored record still has its grace-padded TTL
	// but the expiry timer is gone with the old process.
	f.clock = f.clock.Add(90 * time.Second)
	f.sched = schedule.NewScheduler(zap.NewNop())
	f.service.sched = f.sched

	second, created, err := f.service.OnMessage(ctx, "u1", "dave", "never mind, new printer now", nil)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, first.ID, second.ID)

	got, err := f.tickets.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.MessageCount)

	// The stale record is gone and the new window tracks the new ticket.
	window, err := f.windows.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, second.ID, window.TicketID)
}

func TestCloseWindowForTicketOnlyMatchesOwnTicket(t *testing.T) {
	ctx := context.Background()
	f := newAggregationFixture(t)

	ticket, _, err := f.service.OnMessage(ctx, "u1", "dave", "hello", nil)
	require.NoError(t, err)

	// A different ticket id must not close the window.
	f.service.CloseWindowForTicket(ctx, "u1", "some-other-id")
	_, err = f.windows.Get(ctx, "u1")
	require.NoError(t, err)

	f.service.CloseWindowForTicket(ctx, "u1", ticket.ID)
	_, err = f.windows.Get(ctx, "u1")
	assert.Error(t, err)
}

func TestOnMessageValidation(t *testing.T) {
	ctx := context.Background()
	f := newAggregationFixture(t)

	_, _, err := f.service.OnMessage(ctx, "", "dave", "text", nil)
	assert.Error(t, err)

	_, _, err = f.service.OnMessage(ctx, "u1", "dave", "   ", nil)
	assert.Error(t, err)

	// Attachment-only messages are accepted.
	_, created, err := f.service.OnMessage(ctx, "u1", "dave", "", []domain.AttachmentRef{{StorageKey: "s3://x"}})
	require.NoError(t, err)
	assert.True(t, created)
}
