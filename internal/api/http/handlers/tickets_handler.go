package handlers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/support-hub/helpdesk-core/internal/api/dto"
	"github.com/support-hub/helpdesk-core/internal/auth"
	"github.com/support-hub/helpdesk-core/internal/domain"
	"github.com/support-hub/helpdesk-core/internal/repository"
	"github.com/support-hub/helpdesk-core/internal/service"
	apperrors "github.com/support-hub/helpdesk-core/pkg/util"
)

// TicketsHandler exposes operator ticket endpoints.
type TicketsHandler struct {
	tickets   repository.TicketRepository
	lifecycle *service.LifecycleService
	reminders *service.ReminderService
	audit     repository.AuditRepository
}

// NewTicketsHandler constructs handler. audit may be nil when Postgres is
// not configured.
func NewTicketsHandler(tickets repository.TicketRepository, lifecycle *service.LifecycleService, reminders *service.ReminderService, audit repository.AuditRepository) *TicketsHandler {
	return &TicketsHandler{tickets: tickets, lifecycle: lifecycle, reminders: reminders, audit: audit}
}

// List GET /api/v1/tickets.
func (h *TicketsHandler) List(c *fiber.Ctx) error {
	var (
		tickets []domain.Ticket
		err     error
	)
	switch {
	case c.Query("status") != "":
		status := domain.TicketStatus(c.Query("status"))
		if !status.IsValid() {
			return apperrors.NewValidationError("unknown status", map[string]any{"status": c.Query("status")})
		}
		tickets, err = h.tickets.ListByStatus(c.Context(), status)
	case c.Query("assignee") != "":
		tickets, err = h.tickets.ListByAssignee(c.Context(), c.Query("assignee"))
	case c.Query("submitter_id") != "":
		tickets, err = h.tickets.ListBySubmitter(c.Context(), c.Query("submitter_id"))
	default:
		tickets, err = h.tickets.ListLive(c.Context())
	}
	if err != nil {
		return err
	}

	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketResponse(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /api/v1/tickets/:id.
func (h *TicketsHandler) Get(c *fiber.Ctx) error {
	ticket, err := h.tickets.Get(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// Transition POST /api/v1/tickets/:id/transition.
func (h *TicketsHandler) Transition(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("operator required")
	}
	var req dto.TransitionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ticket, err := h.lifecycle.Transition(c.Context(), c.Params("id"), domain.TicketStatus(req.Status), principal.Operator.Handle, req.Assignee)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// Delete DELETE /api/v1/tickets/:id.
func (h *TicketsHandler) Delete(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("operator required")
	}
	if err := h.lifecycle.Delete(c.Context(), c.Params("id"), principal.Operator.Handle); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Reply POST /api/v1/tickets/:id/reply.
func (h *TicketsHandler) Reply(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("operator required")
	}
	var req dto.ReplyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ticket, err := h.lifecycle.Reply(c.Context(), c.Params("id"), principal.Operator.Handle, req.Text)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// Reminder POST /api/v1/tickets/:id/reminder.
func (h *TicketsHandler) Reminder(c *fiber.Ctx) error {
	if _, ok := auth.PrincipalFromContext(c); !ok {
		return apperrors.NewUnauthorized("operator required")
	}
	var req dto.ReminderRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	reminder, err := h.reminders.Set(c.Context(), c.Params("id"), time.Duration(req.Minutes)*time.Minute)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.ReminderResponse{
		TicketID: reminder.TicketID,
		SetAt:    reminder.SetAt,
		DueAt:    reminder.DueAt,
	}})
}

// Audit GET /api/v1/tickets/:id/audit.
func (h *TicketsHandler) Audit(c *fiber.Ctx) error {
	if h.audit == nil {
		return apperrors.NewValidationError("audit trail not configured", nil)
	}
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	entries, err := h.audit.ListByTicket(c.Context(), c.Params("id"), limit)
	if err != nil {
		return err
	}
	items := make([]dto.AuditEntryResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, dto.AuditEntryResponse{
			ID:        entry.ID,
			Channel:   entry.Channel,
			EventType: entry.EventType,
			Payload:   entry.Payload,
			CreatedAt: entry.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

func ticketResponse(ticket *domain.Ticket) dto.TicketResponse {
	resp := dto.TicketResponse{
		ID:              ticket.ID,
		SubmitterID:     ticket.SubmitterID,
		SubmitterHandle: ticket.SubmitterHandle,
		Text:            ticket.Text,
		Status:          ticket.Status,
		Assignee:        ticket.Assignee,
		MessageCount:    ticket.MessageCount,
		Aggregated:      ticket.Aggregated,
		RoutingLabel:    ticket.RoutingLabel,
		CreatedAt:       ticket.CreatedAt,
		UpdatedAt:       ticket.UpdatedAt,
	}
	if ticket.Reply != nil {
		resp.Reply = &dto.ReplyResponse{
			Text:   ticket.Reply.Text,
			Author: ticket.Reply.Author,
			SentAt: ticket.Reply.SentAt,
		}
	}
	for _, att := range ticket.Attachments {
		resp.Attachments = append(resp.Attachments, dto.AttachmentResponse{
			StorageKey: att.StorageKey,
			FileName:   att.FileName,
			MimeType:   att.MimeType,
			SizeBytes:  att.SizeBytes,
		})
	}
	return resp
}
