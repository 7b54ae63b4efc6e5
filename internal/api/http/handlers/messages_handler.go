package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/support-hub/helpdesk-core/internal/api/dto"
	"github.com/support-hub/helpdesk-core/internal/domain"
	"github.com/support-hub/helpdesk-core/internal/service"
	apperrors "github.com/support-hub/helpdesk-core/pkg/util"
)

// MessagesHandler accepts inbound submitter messages from the gateway.
type MessagesHandler struct {
	aggregation *service.AggregationService
}

// NewMessagesHandler constructs handler.
func NewMessagesHandler(aggregation *service.AggregationService) *MessagesHandler {
	return &MessagesHandler{aggregation: aggregation}
}

// Ingest POST /api/v1/messages.
func (h *MessagesHandler) Ingest(c *fiber.Ctx) error {
	var req dto.IngestMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.SubmitterID) == "" {
		return apperrors.NewValidationError("submitter_id required", nil)
	}

	attachments := make([]domain.AttachmentRef, 0, len(req.Attachments))
	for _, att := range req.Attachments {
		attachments = append(attachments, domain.AttachmentRef{
			StorageKey: att.StorageKey,
			FileName:   att.FileName,
			MimeType:   att.MimeType,
			SizeBytes:  att.SizeBytes,
		})
	}

	ticket, created, err := h.aggregation.OnMessage(c.Context(), req.SubmitterID, req.SubmitterHandle, req.Content, attachments)
	if err != nil {
		return err
	}

	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(fiber.Map{
		"data":    ticketResponse(ticket),
		"created": created,
	})
}
