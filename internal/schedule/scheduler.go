// Package schedule provides a single-goroutine timer scheduler keyed by
// entity id. Aggregation windows and reminders share one scheduler per
// process instead of holding one sleeping goroutine per live timer.
package schedule

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type entry struct {
	id    string
	at    time.Time
	fn    func()
	seq   uint64
	index int
}

type entryHeap []*entry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	if h[i].at.Equal(h[j].at) {
		return h[i].seq < h[j].seq
	}
	return h[i].at.Before(h[j].at)
}

func (h entryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *entryHeap) Push(x any) {
	e := x.(*entry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// Scheduler fires callbacks at their scheduled instants. Scheduling an id that
// already has a pending timer replaces it (reset semantics); Cancel removes it.
type Scheduler struct {
	mu     sync.Mutex
	timers entryHeap
	byID   map[string]*entry
	seq    uint64
	wake   chan struct{}
	logger *zap.Logger
	now    func() time.Time
}

// NewScheduler builds an idle scheduler; call Run to start firing.
func NewScheduler(logger *zap.Logger) *Scheduler {
	return &Scheduler{
		byID:   make(map[string]*entry),
		wake:   make(chan struct{}, 1),
		logger: logger,
		now:    time.Now,
	}
}

// Schedule registers fn to run at the given instant under the id, replacing
// any pending timer with the same id.
func (s *Scheduler) Schedule(id string, at time.Time, fn func()) {
	s.mu.Lock()
	if existing, ok := s.byID[id]; ok {
		heap.Remove(&s.timers, existing.index)
	}
	s.seq++
	e := &entry{id: id, at: at, fn: fn, seq: s.seq}
	s.byID[id] = e
	heap.Push(&s.timers, e)
	s.mu.Unlock()

	s.kick()
}

// Cancel removes the pending timer for id, if any.
func (s *Scheduler) Cancel(id string) {
	s.mu.Lock()
	if existing, ok := s.byID[id]; ok {
		heap.Remove(&s.timers, existing.index)
		delete(s.byID, id)
	}
	s.mu.Unlock()

	s.kick()
}

// Pending reports whether a timer is scheduled under id.
func (s *Scheduler) Pending(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.byID[id]
	return ok
}

// Run fires due timers until the context is cancelled. Callbacks run inline on
// the scheduler goroutine, so they observe strict sequential ordering.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		s.RunPending(s.now())

		wait := s.nextWait()
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-s.wake:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// RunPending fires every timer due at or before now and returns how many ran.
// Exposed for deterministic tests.
func (s *Scheduler) RunPending(now time.Time) int {
	fired := 0
	for {
		s.mu.Lock()
		if s.timers.Len() == 0 || s.timers[0].at.After(now) {
			s.mu.Unlock()
			return fired
		}
		e := heap.Pop(&s.timers).(*entry)
		delete(s.byID, e.id)
		s.mu.Unlock()

		s.runCallback(e)
		fired++
	}
}

func (s *Scheduler) runCallback(e *entry) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("timer callback panicked",
				zap.String("timer_id", e.id),
				zap.Any("panic", r))
		}
	}()
	e.fn()
}

func (s *Scheduler) nextWait() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timers.Len() == 0 {
		return time.Hour
	}
	wait := time.Until(s.timers[0].at)
	if wait < 0 {
		wait = 0
	}
	return wait
}

func (s *Scheduler) kick() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}
