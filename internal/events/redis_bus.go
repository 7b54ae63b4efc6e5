package events

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/support-hub/helpdesk-core/internal/observability"
)

const (
	// pollTimeout bounds each receive so the loop can health-check its
	// context. It is not a functional timeout; hitting it is normal.
	pollTimeout = 30 * time.Second

	backoffFloor = time.Second
	backoffCap   = 30 * time.Second

	drainTimeout = 10 * time.Second
)

// busTransport abstracts opening one subscription connection. The production
// implementation wraps the Redis client; tests substitute a scripted one to
// drive the supervised loop.
type busTransport interface {
	subscribe(ctx context.Context, channel string) busConn
}

// busConn is one subscription connection: await the confirmation, then poll
// for payloads until the transport fails.
type busConn interface {
	await(ctx context.Context) error
	poll(ctx context.Context, timeout time.Duration) (string, error)
	close() error
}

type redisTransport struct {
	client *redis.Client
}

func (t redisTransport) subscribe(ctx context.Context, channel string) busConn {
	return redisConn{pubsub: t.client.Subscribe(ctx, channel)}
}

type redisConn struct {
	pubsub *redis.PubSub
}

func (c redisConn) await(ctx context.Context) error {
	_, err := c.pubsub.Receive(ctx)
	return err
}

func (c redisConn) poll(ctx context.Context, timeout time.Duration) (string, error) {
	msg, err := c.pubsub.ReceiveTimeout(ctx, timeout)
	if err != nil {
		return "", err
	}
	if m, ok := msg.(*redis.Message); ok {
		return m.Payload, nil
	}
	// Subscribe/unsubscribe confirmations carry no event.
	return "", nil
}

func (c redisConn) close() error {
	return c.pubsub.Close()
}

// RedisBus is the cross-process bus over Redis pub/sub. Each subscribed
// channel runs its own supervised loop on a dedicated connection: subscribe,
// poll with a bounded wait, dispatch sequentially, and on transport failure
// reconnect with capped exponential backoff, retransmitting the subscription.
type RedisBus struct {
	client    *redis.Client
	transport busTransport
	logger    *zap.Logger
	metrics   *observability.Metrics

	retryFloor time.Duration
	retryCap   time.Duration

	mu       sync.Mutex
	handlers map[string][]Handler
	running  bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRedisBus creates the bus. Subscriptions must be registered before Run.
func NewRedisBus(client *redis.Client, logger *zap.Logger, metrics *observability.Metrics) *RedisBus {
	return &RedisBus{
		client:     client,
		transport:  redisTransport{client: client},
		logger:     logger,
		metrics:    metrics,
		retryFloor: backoffFloor,
		retryCap:   backoffCap,
		handlers:   make(map[string][]Handler),
	}
}

// Publish sends the event to the channel, fire-and-forget. A transport error
// is returned wrapped for the caller to log; it is never escalated further.
func (b *RedisBus) Publish(ctx context.Context, channel string, evt Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	if err := b.client.Publish(ctx, channel, data).Err(); err != nil {
		b.logger.Warn("publish failed",
			zap.String("channel", channel),
			zap.String("event_id", evt.ID),
			zap.Error(err))
		return err
	}
	b.metrics.RecordPublish(channel)
	return nil
}

// Subscribe registers a handler. Handlers for one channel run strictly
// sequentially in receipt order on that subscription.
func (b *RedisBus) Subscribe(channel string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running {
		b.logger.Warn("subscribe after start ignored", zap.String("channel", channel))
		return
	}
	b.handlers[channel] = append(b.handlers[channel], handler)
}

// Run starts one supervised listener per subscribed channel and returns.
func (b *RedisBus) Run(ctx context.Context) {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return
	}
	b.running = true
	runCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	channels := make([]string, 0, len(b.handlers))
	for channel := range b.handlers {
		channels = append(channels, channel)
	}
	b.mu.Unlock()

	for _, channel := range channels {
		b.wg.Add(1)
		go b.listenLoop(runCtx, channel)
	}
	b.logger.Info("bus listeners started", zap.Int("channels", len(channels)))
}

// Close cancels all listener loops cooperatively and waits a bounded time for
// them to drain before giving up.
func (b *RedisBus) Close() error {
	b.mu.Lock()
	cancel := b.cancel
	b.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.logger.Info("bus listeners stopped")
		return nil
	case <-time.After(drainTimeout):
		b.logger.Warn("bus listeners did not drain in time")
		return errors.New("bus drain timeout")
	}
}

func (b *RedisBus) listenLoop(ctx context.Context, channel string) {
	defer b.wg.Done()

	retry := newBackoff(b.retryFloor, b.retryCap)

	for ctx.Err() == nil {
		err := b.listenOnce(ctx, channel, retry)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			b.metrics.RecordReconnect()
			delay := retry.Next()
			b.logger.Warn("subscription lost, reconnecting",
				zap.String("channel", channel),
				zap.Duration("retry_in", delay),
				zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
		}
	}
}

// listenOnce holds one subscription connection until the transport fails or
// the context is cancelled.
func (b *RedisBus) listenOnce(ctx context.Context, channel string, retry *backoff) error {
	conn := b.transport.subscribe(ctx, channel)
	defer conn.close()

	if err := conn.await(ctx); err != nil {
		return err
	}
	b.logger.Info("subscribed", zap.String("channel", channel))

	for {
		if ctx.Err() != nil {
			return nil
		}

		payload, err := conn.poll(ctx, pollTimeout)
		if err != nil {
			if isPollTimeout(err) {
				// No traffic inside the health-check window; keep waiting.
				retry.Reset()
				continue
			}
			return err
		}

		retry.Reset()
		if payload != "" {
			b.dispatch(ctx, channel, payload)
		}
	}
}

func (b *RedisBus) dispatch(ctx context.Context, channel, payload string) {
	var evt Event
	if err := json.Unmarshal([]byte(payload), &evt); err != nil {
		b.logger.Error("undecodable event dropped",
			zap.String("channel", channel),
			zap.Error(err))
		return
	}

	b.metrics.RecordDelivery(channel)

	b.mu.Lock()
	handlers := append([]Handler{}, b.handlers[channel]...)
	b.mu.Unlock()

	for _, handler := range handlers {
		if err := handler(ctx, evt); err != nil {
			b.logger.Warn("handler failed",
				zap.String("channel", channel),
				zap.String("event_id", evt.ID),
				zap.Error(err))
		}
	}
}

// isPollTimeout distinguishes the bounded-wait timeout (expected, keep
// polling) from a real transport failure (reconnect).
func isPollTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
