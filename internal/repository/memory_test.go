package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/support-hub/helpdesk-core/internal/domain"
	apperrors "github.com/support-hub/helpdesk-core/pkg/util"
)

func TestMemoryTicketRepositoryCRUD(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryTicketRepository()

	ticket := &domain.Ticket{SubmitterID: "u1", Text: "printer on fire"}
	require.NoError(t, repo.Create(ctx, ticket))
	require.NotEmpty(t, ticket.ID)
	assert.Equal(t, domain.TicketStatusUnreacted, ticket.Status)
	assert.Equal(t, 1, ticket.MessageCount)

	got, err := repo.Get(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, "printer on fire", got.Text)

	status := domain.TicketStatusWaiting
	require.NoError(t, repo.Update(ctx, ticket.ID, domain.TicketUpdate{Status: &status}))
	got, err = repo.Get(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusWaiting, got.Status)

	require.NoError(t, repo.Delete(ctx, ticket.ID))
	_, err = repo.Get(ctx, ticket.ID)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestMemoryTicketRepositoryListFilters(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryTicketRepository()

	alice := "alice"
	seed := []*domain.Ticket{
		{SubmitterID: "u1", Text: "a", Status: domain.TicketStatusUnreacted},
		{SubmitterID: "u1", Text: "b", Status: domain.TicketStatusInProgress, Assignee: &alice},
		{SubmitterID: "u2", Text: "c", Status: domain.TicketStatusCompleted},
	}
	for _, ticket := range seed {
		require.NoError(t, repo.Create(ctx, ticket))
	}

	live, err := repo.ListLive(ctx)
	require.NoError(t, err)
	assert.Len(t, live, 3)

	inProgress, err := repo.ListByStatus(ctx, domain.TicketStatusInProgress)
	require.NoError(t, err)
	require.Len(t, inProgress, 1)
	assert.Equal(t, "b", inProgress[0].Text)

	byAssignee, err := repo.ListByAssignee(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, byAssignee, 1)
	assert.Equal(t, "b", byAssignee[0].Text)

	bySubmitter, err := repo.ListBySubmitter(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, bySubmitter, 2)
}

func TestMemoryCounterStoreFloorsAtZero(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCounterStore()

	val, err := store.DecrFloor(ctx, "counter:completed")
	require.NoError(t, err)
	assert.Zero(t, val)

	_, err = store.Incr(ctx, "counter:completed")
	require.NoError(t, err)
	_, err = store.Incr(ctx, "counter:completed")
	require.NoError(t, err)

	val, err = store.DecrFloor(ctx, "counter:completed")
	require.NoError(t, err)
	assert.Equal(t, int64(1), val)
}

func TestMemoryCounterStoreScanKeys(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCounterStore()

	for _, key := range []string{"assignee:alice:in_progress", "assignee:bob:in_progress", "counter:waiting"} {
		_, err := store.Incr(ctx, key)
		require.NoError(t, err)
	}

	keys, err := store.ScanKeys(ctx, "assignee:*:in_progress")
	require.NoError(t, err)
	assert.Equal(t, []string{"assignee:alice:in_progress", "assignee:bob:in_progress"}, keys)
}

func TestMemoryWindowRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryWindowRepository()

	_, err := repo.Get(ctx, "u1")
	assert.True(t, apperrors.IsNotFound(err))

	window := &domain.AggregationWindow{
		SubmitterID: "u1",
		TicketID:    "t1",
		OpenedAt:    time.Now(),
		ExpiresAt:   time.Now().Add(time.Minute),
	}
	require.NoError(t, repo.Put(ctx, window, 2*time.Minute))

	got, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "t1", got.TicketID)

	require.NoError(t, repo.Delete(ctx, "u1"))
	_, err = repo.Get(ctx, "u1")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestMemorySnapshotStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySnapshotStore()

	_, err := store.Get(ctx)
	assert.True(t, apperrors.IsNotFound(err))

	require.NoError(t, store.Put(ctx, []byte(`{"total":3}`)))
	data, err := store.Get(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"total":3}`, string(data))
}
