package events

import (
	"time"

	"github.com/spec-kit/appointment-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventAppointmentStatusChanged EventType = "appointment_status_changed"
	EventInvoiceRequired          EventType = "invoice_required"
	EventReviewSubmitted          EventType = "review_submitted"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Role domain.Role `json:"role"`
	ID   string      `json:"id,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID            string      `json:"id"`
	Type          EventType   `json:"type"`
	AppointmentID string      `json:"appointment_id"`
	Actor         Actor       `json:"actor"`
	Timestamp     time.Time   `json:"timestamp"`
	Payload       interface{} `json:"payload"`
}

// StatusChangedPayload payload.
type StatusChangedPayload struct {
	OldStatus domain.Status `json:"old_status"`
	NewStatus domain.Status `json:"new_status"`
	Trigger   string        `json:"trigger"`
	Effects   []string      `json:"effects,omitempty"`
	Comment   string        `json:"comment,omitempty"`
}

// InvoiceRequiredPayload payload.
type InvoiceRequiredPayload struct {
	InvoiceID   string `json:"invoice_id"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
	ClientID    string `json:"client_id"`
	ProviderID  string `json:"provider_id"`
}

// ReviewSubmittedPayload payload.
type ReviewSubmittedPayload struct {
	Rating     int    `json:"rating"`
	ProviderID string `json:"provider_id"`
}
