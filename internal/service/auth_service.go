package service

import (
	"context"
	"time"

	"github.com/support-hub/helpdesk-core/internal/auth"
	"github.com/support-hub/helpdesk-core/internal/config"
	"github.com/support-hub/helpdesk-core/internal/domain"
	"github.com/support-hub/helpdesk-core/internal/repository"
	apperrors "github.com/support-hub/helpdesk-core/pkg/util"
)

// AuthService coordinates operator provisioning and login.
type AuthService struct {
	operators  repository.OperatorRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, operators repository.OperatorRepository) *AuthService {
	return &AuthService{
		operators:  operators,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		bcryptCost: cfg.Auth.BcryptCost,
	}
}

// TokenManager exposes the manager so the gateway middleware can share it.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

// CreateOperator provisions a new operator account.
func (s *AuthService) CreateOperator(ctx context.Context, handle, displayName, password string) (*domain.Operator, error) {
	if handle == "" || password == "" {
		return nil, apperrors.NewValidationError("handle and password required", nil)
	}
	if _, err := s.operators.GetByHandle(ctx, handle); err == nil {
		return nil, apperrors.NewValidationError("handle already taken", map[string]any{"handle": handle})
	} else if !apperrors.IsNotFound(err) {
		return nil, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	operator := &domain.Operator{
		Handle:       handle,
		DisplayName:  displayName,
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := s.operators.Create(ctx, operator); err != nil {
		return nil, err
	}
	return operator, nil
}

// Login authenticates an operator and issues an access token.
func (s *AuthService) Login(ctx context.Context, handle, password string) (*domain.Operator, string, time.Time, error) {
	operator, err := s.operators.GetByHandle(ctx, handle)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, "", time.Time{}, err
	}
	if !operator.IsActive {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("operator deactivated")
	}
	if err := auth.ComparePassword(operator.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}

	token, exp, err := s.tokenMgr.GenerateToken(operator.ID, operator.Handle)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}
	return operator, token, exp, nil
}
