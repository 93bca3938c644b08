package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/openphms/admin-api/internal/model"
	"github.com/openphms/admin-api/internal/repository"
	apperrors "github.com/openphms/admin-api/pkg/errors"
)

type patientRepository struct {
	db *sqlx.DB
}

func NewPatientRepository(db *sqlx.DB) repository.PatientRepository {
	return &patientRepository{db: db}
}

func (r *patientRepository) Create(ctx context.Context, patient *model.Patient) error {
	query := `
		INSERT INTO patients (id, full_name, age, gender, contact_number, email, address,
			medical_conditions, emergency_contact, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	patient.CreatedAt = time.Now().UTC()
	patient.UpdatedAt = patient.CreatedAt
	if patient.MedicalConditions == nil {
		patient.MedicalConditions = pq.StringArray{}
	}

	_, err := r.db.ExecContext(ctx, query,
		patient.ID,
		patient.FullName,
		patient.Age,
		patient.Gender,
		patient.ContactNumber,
		patient.Email,
		patient.Address,
		patient.MedicalConditions,
		patient.EmergencyContact,
		patient.CreatedAt,
		patient.UpdatedAt,
	)
	if err != nil {
		return apperrors.Storage(fmt.Errorf("failed to create patient: %w", err))
	}
	return nil
}

func (r *patientRepository) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	query := `SELECT * FROM patients WHERE id = $1`
	var patient model.Patient
	err := r.db.GetContext(ctx, &patient, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("patient")
	}
	if err != nil {
		return nil, apperrors.Storage(fmt.Errorf("failed to get patient: %w", err))
	}
	return &patient, nil
}

// Update is a single atomic UPDATE with COALESCE per field, so concurrent
// admin sessions cannot lose each other's writes.
func (r *patientRepository) Update(ctx context.Context, id uuid.UUID, req *model.UpdatePatientRequest) (*model.Patient, error) {
	var conditions *pq.StringArray
	if req.MedicalConditions != nil {
		arr := pq.StringArray(*req.MedicalConditions)
		conditions = &arr
	}

	query := `
		UPDATE patients SET
			full_name = COALESCE($2, full_name),
			age = COALESCE($3, age),
			gender = COALESCE($4, gender),
			contact_number = COALESCE($5, contact_number),
			email = COALESCE($6, email),
			address = COALESCE($7, address),
			medical_conditions = COALESCE($8, medical_conditions),
			emergency_contact = COALESCE($9, emergency_contact),
			updated_at = $10
		WHERE id = $1
		RETURNING *
	`
	var patient model.Patient
	err := r.db.GetContext(ctx, &patient, query,
		id,
		req.FullName,
		req.Age,
		req.Gender,
		req.ContactNumber,
		req.Email,
		req.Address,
		conditions,
		req.EmergencyContact,
		time.Now().UTC(),
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("patient")
	}
	if err != nil {
		return nil, apperrors.Storage(fmt.Errorf("failed to update patient: %w", err))
	}
	return &patient, nil
}

// Delete cascades: the patient's snapshots and appointments are removed in
// the same transaction, so a patient row and orphaned records can never
// coexist.
func (r *patientRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM health_snapshots WHERE patient_id = $1`, id); err != nil {
			return apperrors.Storage(fmt.Errorf("failed to delete patient snapshots: %w", err))
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM appointments WHERE patient_id = $1`, id); err != nil {
			return apperrors.Storage(fmt.Errorf("failed to delete patient appointments: %w", err))
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM patients WHERE id = $1`, id)
		if err != nil {
			return apperrors.Storage(fmt.Errorf("failed to delete patient: %w", err))
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return apperrors.NotFound("patient")
		}
		return nil
	})
}

func (r *patientRepository) List(ctx context.Context, p model.Pagination) ([]*model.Patient, error) {
	p.Normalize()
	query := `SELECT * FROM patients ORDER BY full_name ASC, id ASC LIMIT $1 OFFSET $2`
	patients := []*model.Patient{}
	if err := r.db.SelectContext(ctx, &patients, query, p.PageSize, p.Offset()); err != nil {
		return nil, apperrors.Storage(fmt.Errorf("failed to list patients: %w", err))
	}
	return patients, nil
}

// likeEscaper neutralizes LIKE metacharacters so a query of "%" or "_"
// matches literally instead of everything.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(q string) string {
	return likeEscaper.Replace(q)
}

// Search matches the exact id when the query parses as a uuid, otherwise a
// case-insensitive partial name match ordered by relevance (prefix matches
// first) then name.
func (r *patientRepository) Search(ctx context.Context, search model.PatientSearch) ([]*model.Patient, error) {
	search.Normalize()

	if id, err := uuid.Parse(search.Query); err == nil {
		patient, err := r.Get(ctx, id)
		if err != nil {
			if apperrors.CodeOf(err) == apperrors.ErrNotFound {
				return []*model.Patient{}, nil
			}
			return nil, err
		}
		return []*model.Patient{patient}, nil
	}

	pattern := escapeLike(search.Query)
	query := `
		SELECT * FROM patients
		WHERE full_name ILIKE '%' || $1 || '%'
		ORDER BY (full_name ILIKE $1 || '%') DESC, full_name ASC, id ASC
		LIMIT $2 OFFSET $3
	`
	patients := []*model.Patient{}
	if err := r.db.SelectContext(ctx, &patients, query, pattern, search.PageSize, search.Offset()); err != nil {
		return nil, apperrors.Storage(fmt.Errorf("failed to search patients: %w", err))
	}
	return patients, nil
}
