package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/support-hub/helpdesk-core/internal/config"
	"github.com/support-hub/helpdesk-core/internal/domain"
	"github.com/support-hub/helpdesk-core/internal/repository"
)

// Counter key layout. Assignee handles must not contain ':'.
const (
	globalCounterPrefix = "counter:"
	assigneePrefix      = "assignee:"
)

// Period selects a completed-counter bucket granularity.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

// GlobalSnapshot is the per-status global ticket count.
type GlobalSnapshot struct {
	Unreacted  int64 `json:"unreacted"`
	Waiting    int64 `json:"waiting"`
	InProgress int64 `json:"in_progress"`
	Completed  int64 `json:"completed"`
}

// Total sums all status buckets.
func (s GlobalSnapshot) Total() int64 {
	return s.Unreacted + s.Waiting + s.InProgress + s.Completed
}

// AssigneeSnapshot is one operator's counter set.
type AssigneeSnapshot struct {
	Handle         string `json:"handle"`
	InProgress     int64  `json:"in_progress"`
	Completed      int64  `json:"completed"`
	CompletedToday int64  `json:"completed_today"`
	CompletedWeek  int64  `json:"completed_week"`
	CompletedMonth int64  `json:"completed_month"`
}

// PeriodEntry is one assignee's line in a period report.
type PeriodEntry struct {
	InProgress int64 `json:"in_progress"`
	Completed  int64 `json:"completed"`
}

// StatsService maintains the derived, eventually-consistent counters updated
// alongside every transition. Counters are hints for reporting; the live
// ticket set in the repository stays authoritative.
type StatsService struct {
	counters repository.CounterStore
	logger   *zap.Logger
	dayTTL   time.Duration
	weekTTL  time.Duration
	monthTTL time.Duration
	now      func() time.Time
}

// NewStatsService builds the engine with the configured bucket retentions.
func NewStatsService(counters repository.CounterStore, cfg config.CoreConfig, logger *zap.Logger) *StatsService {
	day, week, month := cfg.BucketRetention()
	return &StatsService{
		counters: counters,
		logger:   logger,
		dayTTL:   day,
		weekTTL:  week,
		monthTTL: month,
		now:      time.Now,
	}
}

func globalKey(status domain.TicketStatus) string {
	return globalCounterPrefix + string(status)
}

func assigneeKey(handle, suffix string) string {
	return assigneePrefix + handle + ":" + suffix
}

func dayBucket(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

func weekBucket(t time.Time) string {
	year, week := t.UTC().ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}

func monthBucket(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// UpdateOnCreate increments the status bucket for a freshly created ticket.
func (s *StatsService) UpdateOnCreate(ctx context.Context, status domain.TicketStatus) {
	if _, err := s.counters.Incr(ctx, globalKey(status)); err != nil {
		s.logger.Warn("counter update failed", zap.String("key", globalKey(status)), zap.Error(err))
	}
}

// UpdateOnDelete decrements the buckets a deleted ticket occupied.
func (s *StatsService) UpdateOnDelete(ctx context.Context, status domain.TicketStatus, assignee string) {
	s.decr(ctx, globalKey(status))
	if assignee != "" && status == domain.TicketStatusInProgress {
		s.decr(ctx, assigneeKey(assignee, "in_progress"))
	}
}

// UpdateOnTransition moves one ticket between status buckets and maintains
// the assignee counters. oldAssignee is the handle before the transition,
// newAssignee the one after; they differ on reopen. Entering Completed also
// writes the day/week/month buckets with their retention TTLs.
func (s *StatsService) UpdateOnTransition(ctx context.Context, oldStatus, newStatus domain.TicketStatus, oldAssignee, newAssignee string) {
	s.decr(ctx, globalKey(oldStatus))
	s.incr(ctx, globalKey(newStatus))

	if oldAssignee != "" && oldStatus == domain.TicketStatusInProgress {
		s.decr(ctx, assigneeKey(oldAssignee, "in_progress"))
	}
	if newAssignee == "" {
		return
	}
	if newStatus == domain.TicketStatusInProgress {
		s.incr(ctx, assigneeKey(newAssignee, "in_progress"))
	}
	if newStatus == domain.TicketStatusCompleted {
		s.incr(ctx, assigneeKey(newAssignee, "completed"))
		now := s.now()
		s.incrTTL(ctx, assigneeKey(newAssignee, "completed:day:"+dayBucket(now)), s.dayTTL)
		s.incrTTL(ctx, assigneeKey(newAssignee, "completed:week:"+weekBucket(now)), s.weekTTL)
		s.incrTTL(ctx, assigneeKey(newAssignee, "completed:month:"+monthBucket(now)), s.monthTTL)
	}
}

// GlobalSnapshot reads the global status buckets.
func (s *StatsService) GlobalSnapshot(ctx context.Context) (GlobalSnapshot, error) {
	var snapshot GlobalSnapshot
	var err error
	if snapshot.Unreacted, err = s.counters.Get(ctx, globalKey(domain.TicketStatusUnreacted)); err != nil {
		return snapshot, err
	}
	if snapshot.Waiting, err = s.counters.Get(ctx, globalKey(domain.TicketStatusWaiting)); err != nil {
		return snapshot, err
	}
	if snapshot.InProgress, err = s.counters.Get(ctx, globalKey(domain.TicketStatusInProgress)); err != nil {
		return snapshot, err
	}
	if snapshot.Completed, err = s.counters.Get(ctx, globalKey(domain.TicketStatusCompleted)); err != nil {
		return snapshot, err
	}
	return snapshot, nil
}

// AssigneeSnapshot assembles one operator's counters including the current
// day/week/month buckets.
func (s *StatsService) AssigneeSnapshot(ctx context.Context, handle string) (AssigneeSnapshot, error) {
	snapshot := AssigneeSnapshot{Handle: handle}
	var err error
	if snapshot.InProgress, err = s.counters.Get(ctx, assigneeKey(handle, "in_progress")); err != nil {
		return snapshot, err
	}
	if snapshot.Completed, err = s.counters.Get(ctx, assigneeKey(handle, "completed")); err != nil {
		return snapshot, err
	}
	now := s.now()
	if snapshot.CompletedToday, err = s.counters.Get(ctx, assigneeKey(handle, "completed:day:"+dayBucket(now))); err != nil {
		return snapshot, err
	}
	if snapshot.CompletedWeek, err = s.counters.Get(ctx, assigneeKey(handle, "completed:week:"+weekBucket(now))); err != nil {
		return snapshot, err
	}
	if snapshot.CompletedMonth, err = s.counters.Get(ctx, assigneeKey(handle, "completed:month:"+monthBucket(now))); err != nil {
		return snapshot, err
	}
	return snapshot, nil
}

// AllAssigneeSnapshots enumerates assignee keys (scan-based, O(#assignees))
// and assembles the full report.
func (s *StatsService) AllAssigneeSnapshots(ctx context.Context) ([]AssigneeSnapshot, error) {
	handles := map[string]struct{}{}
	for _, pattern := range []string{assigneePrefix + "*:in_progress", assigneePrefix + "*:completed"} {
		keys, err := s.counters.ScanKeys(ctx, pattern)
		if err != nil {
			return nil, err
		}
		for _, key := range keys {
			parts := strings.Split(key, ":")
			if len(parts) == 3 {
				handles[parts[1]] = struct{}{}
			}
		}
	}

	snapshots := make([]AssigneeSnapshot, 0, len(handles))
	for handle := range handles {
		snapshot, err := s.AssigneeSnapshot(ctx, handle)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snapshot)
	}
	return snapshots, nil
}

// PeriodSnapshot scans the bucket keyspace for the current period and returns
// per-assignee completed counts alongside their live in-progress counts.
func (s *StatsService) PeriodSnapshot(ctx context.Context, period Period) (map[string]PeriodEntry, error) {
	now := s.now()
	var suffix string
	switch period {
	case PeriodDay:
		suffix = "completed:day:" + dayBucket(now)
	case PeriodWeek:
		suffix = "completed:week:" + weekBucket(now)
	case PeriodMonth:
		suffix = "completed:month:" + monthBucket(now)
	default:
		return nil, fmt.Errorf("invalid period %q", period)
	}

	keys, err := s.counters.ScanKeys(ctx, assigneePrefix+"*:"+suffix)
	if err != nil {
		return nil, err
	}

	report := make(map[string]PeriodEntry, len(keys))
	for _, key := range keys {
		parts := strings.Split(key, ":")
		if len(parts) < 2 {
			continue
		}
		handle := parts[1]
		completed, err := s.counters.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		inProgress, err := s.counters.Get(ctx, assigneeKey(handle, "in_progress"))
		if err != nil {
			return nil, err
		}
		report[handle] = PeriodEntry{InProgress: inProgress, Completed: completed}
	}
	return report, nil
}

func (s *StatsService) incr(ctx context.Context, key string) {
	if _, err := s.counters.Incr(ctx, key); err != nil {
		s.logger.Warn("counter update failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *StatsService) incrTTL(ctx context.Context, key string, ttl time.Duration) {
	if _, err := s.counters.IncrWithTTL(ctx, key, ttl); err != nil {
		s.logger.Warn("counter update failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *StatsService) decr(ctx context.Context, key string) {
	if _, err := s.counters.DecrFloor(ctx, key); err != nil {
		s.logger.Warn("counter update failed", zap.String("key", key), zap.Error(err))
	}
}
