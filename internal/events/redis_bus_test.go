package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/support-hub/helpdesk-core/internal/observability"
)

// scriptedTransport fails the first N subscription attempts, then hands out
// connections that deliver whatever the test pushes on payloads.
type scriptedTransport struct {
	mu       sync.Mutex
	attempts int
	failures int
	payloads chan string
}

func (t *scriptedTransport) subscribe(ctx context.Context, channel string) busConn {
	t.mu.Lock()
	t.attempts++
	attempt := t.attempts
	t.mu.Unlock()
	return &scriptedConn{transport: t, attempt: attempt}
}

func (t *scriptedTransport) subscribeCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.attempts
}

type scriptedConn struct {
	transport *scriptedTransport
	attempt   int
}

func (c *scriptedConn) await(ctx context.Context) error {
	if c.attempt <= c.transport.failures {
		return errors.New("connection refused")
	}
	return nil
}

func (c *scriptedConn) poll(ctx context.Context, timeout time.Duration) (string, error) {
	select {
	case payload := <-c.transport.payloads:
		return payload, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (c *scriptedConn) close() error { return nil }

func TestListenerResubscribesAfterTransportFailures(t *testing.T) {
	transport := &scriptedTransport{failures: 3, payloads: make(chan string, 1)}
	metrics := observability.NewMetrics()

	bus := NewRedisBus(nil, zap.NewNop(), metrics)
	bus.transport = transport
	bus.retryFloor = time.Millisecond
	bus.retryCap = 4 * time.Millisecond

	received := make(chan Event, 1)
	bus.Subscribe(ChannelCreated, func(ctx context.Context, evt Event) error {
		received <- evt
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bus.Run(ctx)

	evt := NewEvent(EventTicketCreated, "t-1", nil)
	data, err := json.Marshal(evt)
	require.NoError(t, err)
	transport.payloads <- string(data)

	select {
	case got := <-received:
		assert.Equal(t, evt.ID, got.ID)
		assert.Equal(t, evt.TicketID, got.TicketID)
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered after reconnects")
	}

	// Three refused attempts plus the one that stuck.
	assert.GreaterOrEqual(t, transport.subscribeCount(), 4)
	assert.GreaterOrEqual(t, metrics.Snapshot()["bus_reconnects"], int64(3))

	cancel()
	require.NoError(t, bus.Close())
}
