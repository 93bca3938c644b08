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

type snapshotRepository struct {
	db *sqlx.DB
}

func NewSnapshotRepository(db *sqlx.DB) repository.SnapshotRepository {
	return &snapshotRepository{db: db}
}

// Insert is the only write path. Snapshots are never updated; duplicate
// recorded_at values for a patient are distinct rows.
func (r *snapshotRepository) Insert(ctx context.Context, snap *model.HealthSnapshot) error {
	if err := snap.EncodeMetrics(); err != nil {
		return apperrors.Internal(fmt.Errorf("failed to encode metrics: %w", err))
	}
	snap.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO health_snapshots (id, patient_id, recorded_at, source, metrics, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		snap.ID,
		snap.PatientID,
		snap.RecordedAt,
		snap.Source,
		snap.MetricsJSON,
		snap.Notes,
		snap.CreatedAt,
	)
	if err != nil {
		return apperrors.Storage(fmt.Errorf("failed to insert snapshot: %w", err))
	}
	return nil
}

func (r *snapshotRepository) Get(ctx context.Context, id uuid.UUID) (*model.HealthSnapshot, error) {
	query := `SELECT * FROM health_snapshots WHERE id = $1`
	var snap model.HealthSnapshot
	err := r.db.GetContext(ctx, &snap, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("snapshot")
	}
	if err != nil {
		return nil, apperrors.Storage(fmt.Errorf("failed to get snapshot: %w", err))
	}
	if err := snap.DecodeMetrics(); err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to decode metrics: %w", err))
	}
	return &snap, nil
}

// ListByPatient orders by recorded_at ASC with id as tiebreak so same-day
// draws keep a stable, deterministic order across reads.
func (r *snapshotRepository) ListByPatient(ctx context.Context, patientID uuid.UUID, rng model.SnapshotRange) ([]*model.HealthSnapshot, error) {
	rng.Normalize()

	query := `SELECT * FROM health_snapshots WHERE patient_id = $1`
	args := []interface{}{patientID}

	if rng.From != nil {
		args = append(args, rng.From.UTC())
		query += fmt.Sprintf(" AND recorded_at >= $%d", len(args))
	}
	if rng.To != nil {
		args = append(args, rng.To.UTC())
		query += fmt.Sprintf(" AND recorded_at <= $%d", len(args))
	}
	args = append(args, rng.PageSize, rng.Offset())
	query += fmt.Sprintf(" ORDER BY recorded_at ASC, id ASC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	snaps := []*model.HealthSnapshot{}
	if err := r.db.SelectContext(ctx, &snaps, query, args...); err != nil {
		return nil, apperrors.Storage(fmt.Errorf("failed to list snapshots: %w", err))
	}
	for _, snap := range snaps {
		if err := snap.DecodeMetrics(); err != nil {
			return nil, apperrors.Internal(fmt.Errorf("failed to decode metrics: %w", err))
		}
	}
	return snaps, nil
}

func (r *snapshotRepository) Latest(ctx context.Context, patientID uuid.UUID) (*model.HealthSnapshot, error) {
	query := `
		SELECT * FROM health_snapshots
		WHERE patient_id = $1
		ORDER BY recorded_at DESC, id DESC
		LIMIT 1
	`
	var snap model.HealthSnapshot
	err := r.db.GetContext(ctx, &snap, query, patientID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("snapshot")
	}
	if err != nil {
		return nil, apperrors.Storage(fmt.Errorf("failed to get latest snapshot: %w", err))
	}
	if err := snap.DecodeMetrics(); err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to decode metrics: %w", err))
	}
	return &snap, nil
}

func (r *snapshotRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM health_snapshots WHERE id = $1`, id)
	if err != nil {
		return apperrors.Storage(fmt.Errorf("failed to delete snapshot: %w", err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NotFound("snapshot")
	}
	return nil
}
