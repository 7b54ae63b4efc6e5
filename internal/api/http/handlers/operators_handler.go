package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/support-hub/helpdesk-core/internal/api/dto"
	"github.com/support-hub/helpdesk-core/internal/auth"
	"github.com/support-hub/helpdesk-core/internal/domain"
	"github.com/support-hub/helpdesk-core/internal/service"
	apperrors "github.com/support-hub/helpdesk-core/pkg/util"
)

// OperatorsHandler manages operator accounts and login.
type OperatorsHandler struct {
	auth *service.AuthService
}

// NewOperatorsHandler constructs handler.
func NewOperatorsHandler(authService *service.AuthService) *OperatorsHandler {
	return &OperatorsHandler{auth: authService}
}

// Login POST /auth/operators/login.
func (h *OperatorsHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Handle == "" || req.Password == "" {
		return apperrors.NewValidationError("handle and password required", nil)
	}

	operator, token, exp, err := h.auth.Login(c.Context(), req.Handle, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.LoginResponse{
		Token:     token,
		ExpiresAt: exp,
		Operator:  operatorResponse(operator),
	}})
}

// Create POST /auth/operators. Protected; an existing operator provisions
// new ones.
func (h *OperatorsHandler) Create(c *fiber.Ctx) error {
	if _, ok := auth.PrincipalFromContext(c); !ok {
		return apperrors.NewUnauthorized("operator required")
	}
	var req dto.CreateOperatorRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	operator, err := h.auth.CreateOperator(c.Context(), req.Handle, req.DisplayName, req.Password)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": operatorResponse(operator)})
}

func operatorResponse(operator *domain.Operator) dto.OperatorResponse {
	return dto.OperatorResponse{
		ID:          operator.ID,
		Handle:      operator.Handle,
		DisplayName: operator.DisplayName,
		IsActive:    operator.IsActive,
		CreatedAt:   operator.CreatedAt,
	}
}
