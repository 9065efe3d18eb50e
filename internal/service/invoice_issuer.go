package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/appointment-service/internal/domain"
	"github.com/spec-kit/appointment-service/internal/repository"
)

// InvoiceIssuer performs the invoicing side effects the lifecycle asks for.
type InvoiceIssuer interface {
	Issue(ctx context.Context, appt domain.Appointment, at time.Time) (*domain.Invoice, error)
	MarkPaid(ctx context.Context, appointmentID string, at time.Time) error
}

type repositoryInvoiceIssuer struct {
	invoices repository.InvoiceRepository
	currency string
}

// NewRepositoryInvoiceIssuer records invoices in the invoice store. Delivery to
// the client is left to notification subscribers.
func NewRepositoryInvoiceIssuer(invoices repository.InvoiceRepository, currency string) InvoiceIssuer {
	if currency == "" {
		currency = "USD"
	}
	return &repositoryInvoiceIssuer{invoices: invoices, currency: currency}
}

func (i *repositoryInvoiceIssuer) Issue(ctx context.Context, appt domain.Appointment, at time.Time) (*domain.Invoice, error) {
	if appt.Invoice != nil {
		return appt.Invoice, nil
	}
	invoice := &domain.Invoice{
		ID:            uuid.NewString(),
		AppointmentID: appt.ID,
		PaymentStatus: domain.PaymentStatusPending,
		AmountCents:   appt.PriceCents,
		Currency:      i.currency,
		IssuedAt:      at,
	}
	if err := i.invoices.Create(ctx, invoice); err != nil {
		return nil, err
	}
	return invoice, nil
}

func (i *repositoryInvoiceIssuer) MarkPaid(ctx context.Context, appointmentID string, at time.Time) error {
	return i.invoices.MarkPaid(ctx, appointmentID, at)
}
