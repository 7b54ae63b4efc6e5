package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMemoryBusDeliversToChannelSubscribersInOrder(t *testing.T) {
	bus := NewMemoryBus(zap.NewNop())

	var got []string
	bus.Subscribe(ChannelCreated, func(ctx context.Context, evt Event) error {
		got = append(got, "first:"+evt.TicketID)
		return nil
	})
	bus.Subscribe(ChannelCreated, func(ctx context.Context, evt Event) error {
		got = append(got, "second:"+evt.TicketID)
		return nil
	})
	bus.Subscribe(ChannelDeleted, func(ctx context.Context, evt Event) error {
		got = append(got, "wrong channel")
		return nil
	})

	err := bus.Publish(context.Background(), ChannelCreated, NewEvent(EventTicketCreated, "t1", nil))
	require.NoError(t, err)
	assert.Equal(t, []string{"first:t1", "second:t1"}, got)
}

func TestMemoryBusHandlerErrorDoesNotStopOthers(t *testing.T) {
	bus := NewMemoryBus(zap.NewNop())

	reached := false
	bus.Subscribe(ChannelUpdated, func(ctx context.Context, evt Event) error {
		return errors.New("handler broke")
	})
	bus.Subscribe(ChannelUpdated, func(ctx context.Context, evt Event) error {
		reached = true
		return nil
	})

	err := bus.Publish(context.Background(), ChannelUpdated, NewEvent(EventTicketUpdated, "t2", nil))
	require.NoError(t, err)
	assert.True(t, reached)
}

func TestEventPayloadRoundTrip(t *testing.T) {
	assignee := "alice"
	evt := NewEvent(EventTicketTransitioned, "t3", TransitionedPayload{
		OldStatus: "unreacted",
		NewStatus: "in_progress",
		Assignee:  &assignee,
		Actor:     "alice",
	})
	require.NotEmpty(t, evt.ID)

	var payload TransitionedPayload
	require.NoError(t, evt.DecodePayload(&payload))
	assert.Equal(t, "in_progress", string(payload.NewStatus))
	require.NotNil(t, payload.Assignee)
	assert.Equal(t, "alice", *payload.Assignee)

	m := evt.PayloadMap()
	assert.Equal(t, "unreacted", m["old_status"])
}
