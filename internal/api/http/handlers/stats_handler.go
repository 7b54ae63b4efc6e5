package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/support-hub/helpdesk-core/internal/repository"
	"github.com/support-hub/helpdesk-core/internal/service"
	apperrors "github.com/support-hub/helpdesk-core/pkg/util"
)

// StatsHandler serves counter snapshots and the stored rendered snapshot.
type StatsHandler struct {
	stats     *service.StatsService
	snapshots repository.SnapshotStore
}

// NewStatsHandler constructs handler.
func NewStatsHandler(stats *service.StatsService, snapshots repository.SnapshotStore) *StatsHandler {
	return &StatsHandler{stats: stats, snapshots: snapshots}
}

// Global GET /api/v1/stats.
func (h *StatsHandler) Global(c *fiber.Ctx) error {
	global, err := h.stats.GlobalSnapshot(c.Context())
	if err != nil {
		return err
	}
	assignees, err := h.stats.AllAssigneeSnapshots(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"global":    global,
		"total":     global.Total(),
		"assignees": assignees,
	}})
}

// Period GET /api/v1/stats/:period where period is day, week or month.
func (h *StatsHandler) Period(c *fiber.Ctx) error {
	period := service.Period(c.Params("period"))
	switch period {
	case service.PeriodDay, service.PeriodWeek, service.PeriodMonth:
	default:
		return apperrors.NewValidationError("unknown period", map[string]any{"period": c.Params("period")})
	}

	entries, err := h.stats.PeriodSnapshot(c.Context(), period)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": entries})
}

// Snapshot GET /api/v1/stats/snapshot returns the router's last rendered
// snapshot verbatim.
func (h *StatsHandler) Snapshot(c *fiber.Ctx) error {
	data, err := h.snapshots.Get(c.Context())
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(data)
}
