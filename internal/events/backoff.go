package events

import (
	"math/rand"
	"time"
)

// backoff produces capped exponential delays with jitter. Next doubles the
// delay up to the cap; Reset drops it back to the floor after a clean cycle.
type backoff struct {
	floor   time.Duration
	cap     time.Duration
	current time.Duration
}

func newBackoff(floor, cap time.Duration) *backoff {
	if floor <= 0 {
		floor = time.Second
	}
	if cap < floor {
		cap = floor
	}
	return &backoff{floor: floor, cap: cap, current: floor}
}

// Next returns the delay to wait before the next attempt, with +-20% jitter,
// and advances the schedule.
func (b *backoff) Next() time.Duration {
	delay := b.current

	b.current *= 2
	if b.current > b.cap {
		b.current = b.cap
	}

	jitter := time.Duration(rand.Int63n(int64(delay)/5+1)) - delay/10
	delay += jitter
	if delay < 0 {
		delay = b.floor
	}
	return delay
}

// Reset returns the schedule to its floor.
func (b *backoff) Reset() {
	b.current = b.floor
}
