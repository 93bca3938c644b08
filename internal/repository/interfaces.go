package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/openphms/admin-api/internal/model"
)

// All repository interfaces in one file
type (
	// AdminRepository handles administrator accounts.
	AdminRepository interface {
		Create(ctx context.Context, admin *model.Administrator) error
		Get(ctx context.Context, id uuid.UUID) (*model.Administrator, error)
		GetByUserID(ctx context.Context, userID string) (*model.Administrator, error)
		List(ctx context.Context) ([]*model.Administrator, error)
		Delete(ctx context.Context, id uuid.UUID) error
	}

	PatientRepository interface {
		Create(ctx context.Context, patient *model.Patient) error
		Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
		// Update applies a partial update as a single atomic UPDATE and
		// returns the resulting row; it never read-modifies-writes.
		Update(ctx context.Context, id uuid.UUID, req *model.UpdatePatientRequest) (*model.Patient, error)
		// Delete removes the patient and cascades its snapshots in one
		// transaction.
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, p model.Pagination) ([]*model.Patient, error)
		Search(ctx context.Context, search model.PatientSearch) ([]*model.Patient, error)
	}

	// SnapshotRepository is append-only: there is no update operation.
	SnapshotRepository interface {
		Insert(ctx context.Context, snap *model.HealthSnapshot) error
		Get(ctx context.Context, id uuid.UUID) (*model.HealthSnapshot, error)
		// ListByPatient returns snapshots ordered by recorded_at ASC, id ASC
		// with optional inclusive bounds.
		ListByPatient(ctx context.Context, patientID uuid.UUID, r model.SnapshotRange) ([]*model.HealthSnapshot, error)
		Latest(ctx context.Context, patientID uuid.UUID) (*model.HealthSnapshot, error)
		Delete(ctx context.Context, id uuid.UUID) error
	}

	AppointmentRepository interface {
		Create(ctx context.Context, apt *model.Appointment) error
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		Update(ctx context.Context, apt *model.Appointment) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, filters model.AppointmentFilters) ([]*model.Appointment, error)
		// CountOverlapping counts SCHEDULED appointments of the admin whose
		// slot intersects [start, end), excluding the given id (uuid.Nil to
		// exclude nothing).
		CountOverlapping(ctx context.Context, adminID uuid.UUID, start, end time.Time, exclude uuid.UUID) (int, error)
	}

	StatsRepository interface {
		Overview(ctx context.Context, weekStart time.Time) (*model.OverviewStats, error)
	}
)
