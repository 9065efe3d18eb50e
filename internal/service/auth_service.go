package service

import (
	"context"
	"strings"
	"time"

	"github.com/spec-kit/appointment-service/internal/auth"
	"github.com/spec-kit/appointment-service/internal/config"
	"github.com/spec-kit/appointment-service/internal/domain"
	"github.com/spec-kit/appointment-service/internal/repository"
	apperrors "github.com/spec-kit/appointment-service/pkg/util/errorutil"
)

// AuthService coordinates login for clients, providers and staff.
type AuthService struct {
	accounts repository.AccountRepository
	tokenMgr *auth.TokenManager
}

// LoginResult is returned on successful authentication.
type LoginResult struct {
	Account   *domain.Account
	Token     string
	ExpiresAt time.Time
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, accounts repository.AccountRepository) *AuthService {
	return &AuthService{
		accounts: accounts,
		tokenMgr: auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
	}
}

// Login verifies credentials and issues a role-bearing token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, apperrors.NewValidationError("email and password are required", nil)
	}
	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if apperrors.IsCode(apperrors.MapError(err), apperrors.CodeNotFound) {
			auth.CompareDecoy(password)
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, apperrors.MapError(err)
	}
	if account.Status != domain.AccountStatusActive {
		return nil, apperrors.NewForbidden("account suspended")
	}
	if err := auth.ComparePassword(account.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}
	token, exp, err := s.tokenMgr.GenerateToken(account.ID, account.Role)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &LoginResult{Account: account, Token: token, ExpiresAt: exp}, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
