package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/appointment-service/internal/domain"
)

// AppointmentHistoryRepository stores audit entries.
type AppointmentHistoryRepository interface {
	Create(ctx context.Context, history *domain.AppointmentHistory) error
	ListByAppointment(ctx context.Context, appointmentID string, limit, offset int) ([]domain.AppointmentHistory, error)
}

type appointmentHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewAppointmentHistoryRepository builds repository.
func NewAppointmentHistoryRepository(pool *pgxpool.Pool) AppointmentHistoryRepository {
	return &appointmentHistoryRepository{pool: pool}
}

func (r *appointmentHistoryRepository) Create(ctx context.Context, history *domain.AppointmentHistory) error {
	const query = `
        INSERT INTO appointment_history (appointment_id, changed_by_role, changed_by_id, from_status, to_status, trigger, comment)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		history.AppointmentID,
		history.ChangedByRole,
		history.ChangedByID,
		history.FromStatus,
		history.ToStatus,
		history.Trigger,
		history.Comment,
	).Scan(&history.ID, &history.CreatedAt)
}

func (r *appointmentHistoryRepository) ListByAppointment(ctx context.Context, appointmentID string, limit, offset int) ([]domain.AppointmentHistory, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
        SELECT id, appointment_id, changed_by_role, changed_by_id, from_status, to_status, trigger, comment, created_at
        FROM appointment_history WHERE appointment_id=$1 ORDER BY created_at ASC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, appointmentID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.AppointmentHistory
	for rows.Next() {
		var history domain.AppointmentHistory
		if err := rows.Scan(
			&history.ID,
			&history.AppointmentID,
			&history.ChangedByRole,
			&history.ChangedByID,
			&history.FromStatus,
			&history.ToStatus,
			&history.Trigger,
			&history.Comment,
			&history.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, history)
	}
	return result, rows.Err()
}
