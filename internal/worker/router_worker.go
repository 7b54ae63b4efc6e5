package worker

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/support-hub/helpdesk-core/internal/domain"
	"github.com/support-hub/helpdesk-core/internal/events"
	"github.com/support-hub/helpdesk-core/internal/repository"
	"github.com/support-hub/helpdesk-core/internal/service"
	apperrors "github.com/support-hub/helpdesk-core/pkg/util"
)

// Routing labels group tickets in the presentation gateway. Status moves map
// one-to-one onto label moves, except in-progress tickets which land under a
// per-assignee label.
const (
	LabelInbox     = "inbox"
	LabelWaiting   = "waiting"
	LabelCompleted = "completed"
)

// StatsSnapshot is the rendered statistics document the router refreshes
// periodically and publishes for the gateway to display.
type StatsSnapshot struct {
	GeneratedAt time.Time                  `json:"generated_at"`
	Global      service.GlobalSnapshot     `json:"global"`
	Assignees   []service.AssigneeSnapshot `json:"assignees"`
}

// RouterWorker keeps every ticket's routing label in step with its status
// and maintains the stored statistics snapshot.
type RouterWorker struct {
	tickets   repository.TicketRepository
	stats     *service.StatsService
	snapshots repository.SnapshotStore
	refresh   time.Duration
	logger    *zap.Logger
}

// RouterDependencies bundles collaborators for the router worker.
type RouterDependencies struct {
	TicketRepo   repository.TicketRepository
	Stats        *service.StatsService
	Snapshots    repository.SnapshotStore
	RefreshEvery time.Duration
	Logger       *zap.Logger
}

// NewRouterWorker constructs the worker; call Start to subscribe it and Run
// to drive the periodic snapshot refresh.
func NewRouterWorker(deps RouterDependencies) *RouterWorker {
	return &RouterWorker{
		tickets:   deps.TicketRepo,
		stats:     deps.Stats,
		snapshots: deps.Snapshots,
		refresh:   deps.RefreshEvery,
		logger:    deps.Logger,
	}
}

// Start subscribes the routing handlers on the bus. Must be called before
// the bus starts listening.
func (w *RouterWorker) Start(bus events.Bus) {
	bus.Subscribe(events.ChannelCreated, w.onTicketEvent)
	bus.Subscribe(events.ChannelTransitioned, w.onTicketEvent)
}

// RouteLabel computes the routing label for a ticket status and assignee.
func RouteLabel(status domain.TicketStatus, assignee string) string {
	switch status {
	case domain.TicketStatusWaiting:
		return LabelWaiting
	case domain.TicketStatusInProgress:
		if assignee != "" {
			return "assignee:" + assignee
		}
		return LabelInbox
	case domain.TicketStatusCompleted:
		return LabelCompleted
	default:
		return LabelInbox
	}
}

// onTicketEvent re-reads the ticket and stores its current routing label.
// The repository read, not the event payload, is authoritative: a stale
// event against a since-changed ticket routes by the newer state.
func (w *RouterWorker) onTicketEvent(ctx context.Context, evt events.Event) error {
	ticket, err := w.tickets.Get(ctx, evt.TicketID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil
		}
		return err
	}

	label := RouteLabel(ticket.Status, ticket.AssigneeHandle())
	if ticket.RoutingLabel == label {
		return nil
	}

	if err := w.tickets.Update(ctx, ticket.ID, domain.TicketUpdate{RoutingLabel: &label}); err != nil {
		if apperrors.IsNotFound(err) {
			return nil
		}
		return err
	}
	w.logger.Info("ticket routed",
		zap.String("ticket_id", ticket.ID),
		zap.String("label", label))
	return nil
}

// Run refreshes the stored statistics snapshot until ctx is cancelled. One
// refresh happens immediately on startup so the gateway never reads an
// empty snapshot after a deploy.
func (w *RouterWorker) Run(ctx context.Context) {
	w.refreshSnapshot(ctx)

	ticker := time.NewTicker(w.refresh)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.refreshSnapshot(ctx)
		}
	}
}

func (w *RouterWorker) refreshSnapshot(ctx context.Context) {
	global, err := w.stats.GlobalSnapshot(ctx)
	if err != nil {
		w.logger.Warn("global snapshot failed", zap.Error(err))
		return
	}
	assignees, err := w.stats.AllAssigneeSnapshots(ctx)
	if err != nil {
		w.logger.Warn("assignee snapshot failed", zap.Error(err))
		return
	}

	snapshot := StatsSnapshot{
		GeneratedAt: time.Now().UTC(),
		Global:      global,
		Assignees:   assignees,
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		w.logger.Error("snapshot marshal failed", zap.Error(err))
		return
	}
	if err := w.snapshots.Put(ctx, data); err != nil {
		w.logger.Warn("snapshot store failed", zap.Error(err))
		return
	}
	w.logger.Debug("stats snapshot refreshed", zap.Int64("total", global.Total()))
}
