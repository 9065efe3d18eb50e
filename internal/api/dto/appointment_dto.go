package dto

import (
	"time"

	"github.com/spec-kit/appointment-service/internal/actions"
	"github.com/spec-kit/appointment-service/internal/domain"
	"github.com/spec-kit/appointment-service/internal/lifecycle"
)

// TransitionRequest payload.
type TransitionRequest struct {
	Trigger string `json:"trigger"`
	Reason  string `json:"reason"`
}

// ReviewRequest payload.
type ReviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// InvoiceResponse describes the bill attached to an appointment.
type InvoiceResponse struct {
	ID            string               `json:"id"`
	PaymentStatus domain.PaymentStatus `json:"payment_status"`
	AmountCents   int64                `json:"amount_cents"`
	Currency      string               `json:"currency"`
	IssuedAt      time.Time            `json:"issued_at"`
	PaidAt        *time.Time           `json:"paid_at,omitempty"`
}

// AppointmentResponse is the appointment as rendered for one viewer.
type AppointmentResponse struct {
	ID                 string                 `json:"id"`
	ClientID           string                 `json:"client_id"`
	ProviderID         string                 `json:"provider_id"`
	ServiceName        string                 `json:"service_name"`
	PriceCents         int64                  `json:"price_cents"`
	Status             domain.Status          `json:"status"`
	Badge              lifecycle.Presentation `json:"badge"`
	ScheduledAt        time.Time              `json:"scheduled_at"`
	CreatedAt          time.Time              `json:"created_at"`
	UpdatedAt          time.Time              `json:"updated_at"`
	ConfirmedAt        *time.Time             `json:"confirmed_at,omitempty"`
	StartedAt          *time.Time             `json:"started_at,omitempty"`
	CompletedAt        *time.Time             `json:"completed_at,omitempty"`
	CancelledAt        *time.Time             `json:"cancelled_at,omitempty"`
	ReviewedAt         *time.Time             `json:"reviewed_at,omitempty"`
	CancellationReason string                 `json:"cancellation_reason,omitempty"`
	ProviderRating     *int                   `json:"provider_rating,omitempty"`
	QuoteID            *string                `json:"quote_id,omitempty"`
	Invoice            *InvoiceResponse       `json:"invoice,omitempty"`
	Actions            actions.Set            `json:"actions"`
	NextStatuses       []domain.Status        `json:"next_statuses"`
}

// HistoryEntryResponse is one audit trail row.
type HistoryEntryResponse struct {
	ID          string        `json:"id"`
	FromStatus  domain.Status `json:"from_status"`
	ToStatus    domain.Status `json:"to_status"`
	Trigger     string        `json:"trigger"`
	ChangedBy   domain.Role   `json:"changed_by_role"`
	ChangedByID *string       `json:"changed_by_id,omitempty"`
	Comment     string        `json:"comment,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}
