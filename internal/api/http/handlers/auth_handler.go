package handlers

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/appointment-service/internal/api/dto"
	"github.com/spec-kit/appointment-service/internal/service"
	apperrors "github.com/spec-kit/appointment-service/pkg/util/errorutil"
)

// Authenticator exchanges credentials for a token.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*service.LoginResult, error)
}

// AuthHandler handles login.
type AuthHandler struct {
	auth Authenticator
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authenticator Authenticator) *AuthHandler {
	return &AuthHandler{auth: authenticator}
}

// Login POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}
	result, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.AuthResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		AccountID: result.Account.ID,
		Role:      result.Account.Role,
	}})
}
