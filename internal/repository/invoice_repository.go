package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/appointment-service/internal/domain"
)

// InvoiceRepository stores invoices raised for appointments.
type InvoiceRepository interface {
	// Create is idempotent per appointment; an existing invoice is loaded into invoice.
	Create(ctx context.Context, invoice *domain.Invoice) error
	MarkPaid(ctx context.Context, appointmentID string, paidAt time.Time) error
}

type invoiceRepository struct {
	pool *pgxpool.Pool
}

// NewInvoiceRepository builds repository.
func NewInvoiceRepository(pool *pgxpool.Pool) InvoiceRepository {
	return &invoiceRepository{pool: pool}
}

func (r *invoiceRepository) Create(ctx context.Context, invoice *domain.Invoice) error {
	const query = `
        INSERT INTO invoices (id, appointment_id, payment_status, amount_cents, currency, issued_at)
        VALUES ($1,$2,$3,$4,$5,$6)
        ON CONFLICT (appointment_id) DO UPDATE SET appointment_id = EXCLUDED.appointment_id
        RETURNING id, payment_status, amount_cents, currency, issued_at, paid_at`
	return r.pool.QueryRow(ctx, query,
		invoice.ID,
		invoice.AppointmentID,
		invoice.PaymentStatus,
		invoice.AmountCents,
		invoice.Currency,
		invoice.IssuedAt,
	).Scan(&invoice.ID, &invoice.PaymentStatus, &invoice.AmountCents, &invoice.Currency, &invoice.IssuedAt, &invoice.PaidAt)
}

func (r *invoiceRepository) MarkPaid(ctx context.Context, appointmentID string, paidAt time.Time) error {
	const query = `
        UPDATE invoices SET payment_status=$1, paid_at=$2
        WHERE appointment_id=$3 AND payment_status=$4`
	_, err := r.pool.Exec(ctx, query, domain.PaymentStatusPaid, paidAt, appointmentID, domain.PaymentStatusPending)
	return err
}
