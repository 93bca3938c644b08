package record

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/openphms/admin-api/internal/metric"
	"github.com/openphms/admin-api/internal/model"
	"github.com/openphms/admin-api/internal/repository"
	apperrors "github.com/openphms/admin-api/pkg/errors"
)

type Service struct {
	snapshots repository.SnapshotRepository
	patients  repository.PatientRepository
}

func NewService(snapshots repository.SnapshotRepository, patients repository.PatientRepository) *Service {
	return &Service{
		snapshots: snapshots,
		patients:  patients,
	}
}

// AddSnapshot validates the sparse metric mapping against the catalog and
// appends an immutable snapshot. Validation completes before the single
// insert, so a snapshot is stored whole or not at all.
func (s *Service) AddSnapshot(ctx context.Context, patientID uuid.UUID, source model.SnapshotSource, recordedAt *time.Time, metrics map[string]float64, notes *string) (*model.HealthSnapshot, error) {
	if !source.Valid() {
		return nil, apperrors.ValidationField("source", "source must be MANUAL or REPORT_AI")
	}
	if _, err := s.patients.Get(ctx, patientID); err != nil {
		return nil, err
	}

	clean := make(map[string]float64, len(metrics))
	for name, value := range metrics {
		clean[name] = value
	}
	// A caller-supplied bmi wins over the derived value.
	if _, supplied := clean["bmi"]; !supplied {
		if bmi, ok := metric.DeriveBMI(clean); ok {
			clean["bmi"] = bmi
		}
	}
	if err := metric.ValidateMap(clean); err != nil {
		return nil, err
	}

	when := time.Now().UTC()
	if recordedAt != nil {
		when = recordedAt.UTC()
	}

	snap := &model.HealthSnapshot{
		ID:         uuid.New(),
		PatientID:  patientID,
		RecordedAt: when,
		Source:     source,
		Metrics:    clean,
		Notes:      notes,
	}
	if err := s.snapshots.Insert(ctx, snap); err != nil {
		return nil, err
	}

	log.Info().
		Str("patient_id", patientID.String()).
		Str("snapshot_id", snap.ID.String()).
		Str("source", string(source)).
		Int("metrics", len(clean)).
		Msg("snapshot recorded")
	return snap, nil
}

// ListSnapshots returns a page of the patient's snapshots in recorded_at
// ascending order, optionally bounded.
func (s *Service) ListSnapshots(ctx context.Context, patientID uuid.UUID, rng model.SnapshotRange) ([]*model.HealthSnapshot, error) {
	if rng.From != nil && rng.To != nil && rng.To.Before(*rng.From) {
		return nil, apperrors.ValidationField("to", "range end precedes range start")
	}
	if _, err := s.patients.Get(ctx, patientID); err != nil {
		return nil, err
	}
	return s.snapshots.ListByPatient(ctx, patientID, rng)
}

func (s *Service) GetSnapshot(ctx context.Context, id uuid.UUID) (*model.HealthSnapshot, error) {
	return s.snapshots.Get(ctx, id)
}

func (s *Service) LatestSnapshot(ctx context.Context, patientID uuid.UUID) (*model.HealthSnapshot, error) {
	if _, err := s.patients.Get(ctx, patientID); err != nil {
		return nil, err
	}
	return s.snapshots.Latest(ctx, patientID)
}

// DeleteSnapshot removes one snapshot outright. This and the patient cascade
// are the only removal paths; there is no in-place correction.
func (s *Service) DeleteSnapshot(ctx context.Context, id uuid.UUID) error {
	return s.snapshots.Delete(ctx, id)
}
