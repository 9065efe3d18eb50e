package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/appointment-service/internal/domain"
)

// ErrStaleStatus is returned when the stored status no longer matches the expected one.
var ErrStaleStatus = errors.New("appointment status changed concurrently")

// AppointmentFilter captures listing parameters.
type AppointmentFilter struct {
	ClientID      *string
	ProviderID    *string
	Statuses      []domain.Status
	ScheduledFrom *time.Time
	ScheduledTo   *time.Time
	Limit         int
	Offset        int
}

// AppointmentRepository encapsulates appointment persistence.
type AppointmentRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Appointment, error)
	ListWithFilter(ctx context.Context, filter AppointmentFilter) ([]domain.Appointment, error)
	// UpdateLifecycle writes status, lifecycle timestamps and rating only when
	// the stored status still equals expected.
	UpdateLifecycle(ctx context.Context, appt *domain.Appointment, expected domain.Status) error
}

type appointmentRepository struct {
	pool *pgxpool.Pool
}

// NewAppointmentRepository instantiates repository.
func NewAppointmentRepository(pool *pgxpool.Pool) AppointmentRepository {
	return &appointmentRepository{pool: pool}
}

const appointmentColumns = `
        a.id, a.client_id, a.provider_id, a.service_name, a.price_cents, a.status, a.scheduled_at, a.created_at, a.updated_at,
        a.confirmed_at, a.started_at, a.completed_at, a.cancelled_at, a.reviewed_at,
        a.cancellation_reason, a.provider_rating, a.quote_id,
        i.id, i.payment_status, i.amount_cents, i.currency, i.issued_at, i.paid_at`

const appointmentFrom = `
        FROM appointments a LEFT JOIN invoices i ON i.appointment_id = a.id`

func (r *appointmentRepository) GetByID(ctx context.Context, id string) (*domain.Appointment, error) {
	query := `SELECT ` + appointmentColumns + appointmentFrom + ` WHERE a.id=$1`
	appt, err := scanAppointment(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	return appt, nil
}

func (r *appointmentRepository) ListWithFilter(ctx context.Context, filter AppointmentFilter) ([]domain.Appointment, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.ClientID != nil {
		args = append(args, *filter.ClientID)
		clauses = append(clauses, fmt.Sprintf("a.client_id=$%d", len(args)))
	}
	if filter.ProviderID != nil {
		args = append(args, *filter.ProviderID)
		clauses = append(clauses, fmt.Sprintf("a.provider_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("a.status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.ScheduledFrom != nil {
		args = append(args, *filter.ScheduledFrom)
		clauses = append(clauses, fmt.Sprintf("a.scheduled_at >= $%d", len(args)))
	}
	if filter.ScheduledTo != nil {
		args = append(args, *filter.ScheduledTo)
		clauses = append(clauses, fmt.Sprintf("a.scheduled_at <= $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s %s WHERE %s ORDER BY a.scheduled_at DESC LIMIT %d OFFSET %d`,
		appointmentColumns, appointmentFrom, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *appt)
	}
	return result, rows.Err()
}

func (r *appointmentRepository) UpdateLifecycle(ctx context.Context, appt *domain.Appointment, expected domain.Status) error {
	const query = `
        UPDATE appointments SET status=$1, confirmed_at=$2, started_at=$3, completed_at=$4, cancelled_at=$5,
            reviewed_at=$6, cancellation_reason=$7, provider_rating=$8, updated_at=NOW()
        WHERE id=$9 AND status=$10
        RETURNING updated_at`
	err := r.pool.QueryRow(ctx, query,
		appt.Status,
		appt.ConfirmedAt,
		appt.StartedAt,
		appt.CompletedAt,
		appt.CancelledAt,
		appt.ReviewedAt,
		appt.CancellationReason,
		appt.ProviderRating,
		appt.ID,
		expected,
	).Scan(&appt.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrStaleStatus
	}
	return err
}

func scanAppointment(row pgx.Row) (*domain.Appointment, error) {
	var (
		appt          domain.Appointment
		invoiceID     *string
		paymentStatus *string
		amountCents   *int64
		currency      *string
		issuedAt      *time.Time
		paidAt        *time.Time
	)
	if err := row.Scan(
		&appt.ID,
		&appt.ClientID,
		&appt.ProviderID,
		&appt.ServiceName,
		&appt.PriceCents,
		&appt.Status,
		&appt.ScheduledAt,
		&appt.CreatedAt,
		&appt.UpdatedAt,
		&appt.ConfirmedAt,
		&appt.StartedAt,
		&appt.CompletedAt,
		&appt.CancelledAt,
		&appt.ReviewedAt,
		&appt.CancellationReason,
		&appt.ProviderRating,
		&appt.QuoteID,
		&invoiceID,
		&paymentStatus,
		&amountCents,
		&currency,
		&issuedAt,
		&paidAt,
	); err != nil {
		return nil, err
	}
	if invoiceID != nil {
		inv := &domain.Invoice{ID: *invoiceID, AppointmentID: appt.ID, PaidAt: paidAt}
		if paymentStatus != nil {
			inv.PaymentStatus = domain.PaymentStatus(*paymentStatus)
		}
		if amountCents != nil {
			inv.AmountCents = *amountCents
		}
		if currency != nil {
			inv.Currency = *currency
		}
		if issuedAt != nil {
			inv.IssuedAt = *issuedAt
		}
		appt.Invoice = inv
	}
	return &appt, nil
}
