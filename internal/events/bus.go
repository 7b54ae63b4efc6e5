package events

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Handler handles one delivered event. Handlers for a single channel run
// strictly sequentially in receipt order on that subscription.
type Handler func(ctx context.Context, evt Event) error

// Bus is the named-channel publish/subscribe transport connecting workers.
// Publish is fire-and-forget; an event published while no subscriber is live
// is lost, so consumers must be idempotent.
type Bus interface {
	Publish(ctx context.Context, channel string, evt Event) error
	Subscribe(channel string, handler Handler)
}

// memoryBus is a synchronous in-process bus used by tests and single-process
// deployments.
type memoryBus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	logger   *zap.Logger
}

// NewMemoryBus creates an in-process bus instance.
func NewMemoryBus(logger *zap.Logger) Bus {
	return &memoryBus{
		handlers: make(map[string][]Handler),
		logger:   logger,
	}
}

// Publish synchronously invokes the channel's handlers in subscription order.
// Handler errors are logged and do not stop later handlers.
func (b *memoryBus) Publish(ctx context.Context, channel string, evt Event) error {
	b.mu.RLock()
	handlers := append([]Handler{}, b.handlers[channel]...)
	b.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(ctx, evt); err != nil {
			b.logger.Warn("handler failed",
				zap.String("channel", channel),
				zap.String("event_id", evt.ID),
				zap.Error(err))
		}
	}
	return nil
}

// Subscribe registers a handler for the given channel.
func (b *memoryBus) Subscribe(channel string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[channel] = append(b.handlers[channel], handler)
}
