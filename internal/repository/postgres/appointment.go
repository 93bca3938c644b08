package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/openphms/admin-api/internal/model"
	"github.com/openphms/admin-api/internal/repository"
	apperrors "github.com/openphms/admin-api/pkg/errors"
)

type appointmentRepository struct {
	db *sqlx.DB
}

func NewAppointmentRepository(db *sqlx.DB) repository.AppointmentRepository {
	return &appointmentRepository{db: db}
}

func (r *appointmentRepository) Create(ctx context.Context, apt *model.Appointment) error {
	query := `
		INSERT INTO appointments (id, patient_id, admin_id, start_time, end_time,
			type, status, notes, cancel_reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	apt.CreatedAt = time.Now().UTC()
	apt.UpdatedAt = apt.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		apt.ID,
		apt.PatientID,
		apt.AdminID,
		apt.StartTime,
		apt.EndTime,
		apt.Type,
		apt.Status,
		apt.Notes,
		apt.CancelReason,
		apt.CreatedAt,
		apt.UpdatedAt,
	)
	if err != nil {
		return apperrors.Storage(fmt.Errorf("failed to create appointment: %w", err))
	}
	return nil
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `SELECT * FROM appointments WHERE id = $1`
	var apt model.Appointment
	err := r.db.GetContext(ctx, &apt, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("appointment")
	}
	if err != nil {
		return nil, apperrors.Storage(fmt.Errorf("failed to get appointment: %w", err))
	}
	return &apt, nil
}

func (r *appointmentRepository) Update(ctx context.Context, apt *model.Appointment) error {
	query := `
		UPDATE appointments SET
			start_time = $2,
			end_time = $3,
			type = $4,
			status = $5,
			notes = $6,
			cancel_reason = $7,
			updated_at = $8
		WHERE id = $1
	`
	apt.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, query,
		apt.ID,
		apt.StartTime,
		apt.EndTime,
		apt.Type,
		apt.Status,
		apt.Notes,
		apt.CancelReason,
		apt.UpdatedAt,
	)
	if err != nil {
		return apperrors.Storage(fmt.Errorf("failed to update appointment: %w", err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NotFound("appointment")
	}
	return nil
}

func (r *appointmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return apperrors.Storage(fmt.Errorf("failed to delete appointment: %w", err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NotFound("appointment")
	}
	return nil
}

func (r *appointmentRepository) List(ctx context.Context, filters model.AppointmentFilters) ([]*model.Appointment, error) {
	filters.Normalize()

	query := `SELECT * FROM appointments WHERE 1=1`
	args := []interface{}{}

	if filters.Status != nil {
		args = append(args, *filters.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filters.PatientID != nil {
		args = append(args, *filters.PatientID)
		query += fmt.Sprintf(" AND patient_id = $%d", len(args))
	}
	if filters.AdminID != nil {
		args = append(args, *filters.AdminID)
		query += fmt.Sprintf(" AND admin_id = $%d", len(args))
	}
	if filters.From != nil {
		args = append(args, filters.From.UTC())
		query += fmt.Sprintf(" AND start_time >= $%d", len(args))
	}
	if filters.To != nil {
		args = append(args, filters.To.UTC())
		query += fmt.Sprintf(" AND start_time <= $%d", len(args))
	}
	args = append(args, filters.PageSize, filters.Offset())
	query += fmt.Sprintf(" ORDER BY start_time ASC, id ASC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	appointments := []*model.Appointment{}
	if err := r.db.SelectContext(ctx, &appointments, query, args...); err != nil {
		return nil, apperrors.Storage(fmt.Errorf("failed to list appointments: %w", err))
	}
	return appointments, nil
}

// CountOverlapping treats slots as half-open intervals: back-to-back
// appointments sharing a boundary do not conflict.
func (r *appointmentRepository) CountOverlapping(ctx context.Context, adminID uuid.UUID, start, end time.Time, exclude uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*) FROM appointments
		WHERE admin_id = $1
		  AND status = $2
		  AND start_time < $4 AND end_time > $3
		  AND id <> $5
	`
	var n int
	err := r.db.GetContext(ctx, &n, query, adminID, model.AppointmentScheduled, start.UTC(), end.UTC(), exclude)
	if err != nil {
		return 0, apperrors.Storage(fmt.Errorf("failed to count overlapping appointments: %w", err))
	}
	return n, nil
}
