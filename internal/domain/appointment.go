package domain

import "time"

// Status enumerates lifecycle stages for appointments.
type Status string

const (
	StatusPending             Status = "pending"
	StatusConfirmed           Status = "confirmed"
	StatusInProgress          Status = "in_progress"
	StatusCompleted           Status = "completed"
	StatusInvoiceSent         Status = "invoice_sent"
	StatusPaymentPending      Status = "payment_pending"
	StatusPaid                Status = "paid"
	StatusReviewed            Status = "reviewed"
	StatusClosed              Status = "closed"
	StatusCancelledByClient   Status = "cancelled_by_client"
	StatusCancelledByProvider Status = "cancelled_by_provider"
	StatusNoShow              Status = "no_show"
	StatusDisputed            Status = "disputed"
)

// PaymentStatus tracks whether an invoice has been settled.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
)

// Invoice references the bill raised for a completed appointment.
type Invoice struct {
	ID            string
	AppointmentID string
	PaymentStatus PaymentStatus
	AmountCents   int64
	Currency      string
	IssuedAt      time.Time
	PaidAt        *time.Time
}

// Appointment is a single booking between a client and a provider.
// The engine treats it as an immutable snapshot per evaluation.
type Appointment struct {
	ID                 string
	ClientID           string
	ProviderID         string
	ServiceName        string
	PriceCents         int64
	Status             Status
	ScheduledAt        time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
	ConfirmedAt        *time.Time
	StartedAt          *time.Time
	CompletedAt        *time.Time
	CancelledAt        *time.Time
	ReviewedAt         *time.Time
	CancellationReason string
	Invoice            *Invoice
	ProviderRating     *int
	QuoteID            *string
}

// HasUnpaidInvoice reports whether an invoice exists and is still awaiting payment.
func (a Appointment) HasUnpaidInvoice() bool {
	return a.Invoice != nil && a.Invoice.PaymentStatus == PaymentStatusPending
}

// FromQuote reports whether the appointment originated from a quote.
func (a Appointment) FromQuote() bool {
	return a.QuoteID != nil && *a.QuoteID != ""
}
