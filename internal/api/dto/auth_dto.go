package dto

import (
	"time"

	"github.com/spec-kit/appointment-service/internal/domain"
)

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	AccountID string      `json:"account_id"`
	Role      domain.Role `json:"role"`
}
