package repository

import (
	"context"
	"path"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/support-hub/helpdesk-core/internal/domain"
	apperrors "github.com/support-hub/helpdesk-core/pkg/util"
)

// memoryTicketRepository is a map-backed TicketRepository with the same
// last-writer-wins contract as the Redis implementation. Used by tests and
// single-process development runs.
type memoryTicketRepository struct {
	mu      sync.RWMutex
	tickets map[string]domain.Ticket
}

// NewMemoryTicketRepository builds an empty in-memory repository.
func NewMemoryTicketRepository() TicketRepository {
	return &memoryTicketRepository{tickets: make(map[string]domain.Ticket)}
}

func (r *memoryTicketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	if ticket.ID == "" {
		ticket.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = now
	}
	ticket.UpdatedAt = now
	ticket.SchemaVersion = domain.TicketSchemaVersion
	if ticket.Status == "" {
		ticket.Status = domain.TicketStatusUnreacted
	}
	if ticket.MessageCount < 1 {
		ticket.MessageCount = 1
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tickets[ticket.ID] = *ticket
	return nil
}

func (r *memoryTicketRepository) Get(ctx context.Context, id string) (*domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"id": id})
	}
	copied := ticket
	return &copied, nil
}

func (r *memoryTicketRepository) Update(ctx context.Context, id string, update domain.TicketUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return apperrors.NewNotFound("ticket", map[string]any{"id": id})
	}
	if update.UpdatedAt == nil {
		now := time.Now().UTC()
		update.UpdatedAt = &now
	}
	update.Apply(&ticket)
	r.tickets[id] = ticket
	return nil
}

func (r *memoryTicketRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tickets, id)
	return nil
}

func (r *memoryTicketRepository) ListLive(ctx context.Context) ([]domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tickets := make([]domain.Ticket, 0, len(r.tickets))
	for _, ticket := range r.tickets {
		tickets = append(tickets, ticket)
	}
	sort.Slice(tickets, func(i, j int) bool { return tickets[i].CreatedAt.Before(tickets[j].CreatedAt) })
	return tickets, nil
}

func (r *memoryTicketRepository) ListByStatus(ctx context.Context, status domain.TicketStatus) ([]domain.Ticket, error) {
	return r.filter(func(t *domain.Ticket) bool { return t.Status == status })
}

func (r *memoryTicketRepository) ListByAssignee(ctx context.Context, assignee string) ([]domain.Ticket, error) {
	return r.filter(func(t *domain.Ticket) bool { return t.AssigneeHandle() == assignee })
}

func (r *memoryTicketRepository) ListBySubmitter(ctx context.Context, submitterID string) ([]domain.Ticket, error) {
	return r.filter(func(t *domain.Ticket) bool { return t.SubmitterID == submitterID })
}

func (r *memoryTicketRepository) filter(keep func(*domain.Ticket) bool) ([]domain.Ticket, error) {
	all, _ := r.ListLive(context.Background())
	filtered := make([]domain.Ticket, 0, len(all))
	for i := range all {
		if keep(&all[i]) {
			filtered = append(filtered, all[i])
		}
	}
	return filtered, nil
}

// memoryWindowRepository is the in-memory counterpart of the window store.
type memoryWindowRepository struct {
	mu      sync.Mutex
	windows map[string]domain.AggregationWindow
}

// NewMemoryWindowRepository builds an empty in-memory window store.
func NewMemoryWindowRepository() WindowRepository {
	return &memoryWindowRepository{windows: make(map[string]domain.AggregationWindow)}
}

func (r *memoryWindowRepository) Get(ctx context.Context, submitterID string) (*domain.AggregationWindow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	window, ok := r.windows[submitterID]
	if !ok {
		return nil, apperrors.NewNotFound("window", map[string]any{"submitter_id": submitterID})
	}
	copied := window
	return &copied, nil
}

func (r *memoryWindowRepository) Put(ctx context.Context, window *domain.AggregationWindow, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.windows[window.SubmitterID] = *window
	return nil
}

func (r *memoryWindowRepository) Delete(ctx context.Context, submitterID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.windows, submitterID)
	return nil
}

// memoryReminderRepository is the in-memory counterpart of the reminder store.
type memoryReminderRepository struct {
	mu        sync.Mutex
	reminders map[string]domain.Reminder
}

// NewMemoryReminderRepository builds an empty in-memory reminder store.
func NewMemoryReminderRepository() ReminderRepository {
	return &memoryReminderRepository{reminders: make(map[string]domain.Reminder)}
}

func (r *memoryReminderRepository) Put(ctx context.Context, reminder *domain.Reminder, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reminders[reminder.TicketID] = *reminder
	return nil
}

func (r *memoryReminderRepository) Get(ctx context.Context, ticketID string) (*domain.Reminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reminder, ok := r.reminders[ticketID]
	if !ok {
		return nil, apperrors.NewNotFound("reminder", map[string]any{"ticket_id": ticketID})
	}
	copied := reminder
	return &copied, nil
}

func (r *memoryReminderRepository) Delete(ctx context.Context, ticketID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.reminders, ticketID)
	return nil
}

// memoryCounterStore mirrors the Redis counter semantics, TTLs excluded.
type memoryCounterStore struct {
	mu       sync.Mutex
	counters map[string]int64
}

// NewMemoryCounterStore builds an empty in-memory counter store.
func NewMemoryCounterStore() CounterStore {
	return &memoryCounterStore{counters: make(map[string]int64)}
}

func (s *memoryCounterStore) Incr(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[key]++
	return s.counters[key], nil
}

func (s *memoryCounterStore) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	return s.Incr(ctx, key)
}

func (s *memoryCounterStore) DecrFloor(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[key]--
	if s.counters[key] < 0 {
		s.counters[key] = 0
	}
	return s.counters[key], nil
}

func (s *memoryCounterStore) Get(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters[key], nil
}

func (s *memoryCounterStore) ScanKeys(ctx context.Context, pattern string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []string
	for key := range s.counters {
		if ok, _ := path.Match(pattern, key); ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
