package chart

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openphms/admin-api/internal/model"
	"github.com/openphms/admin-api/internal/service/record"
	apperrors "github.com/openphms/admin-api/pkg/errors"
)

type stubSnapshotRepo struct {
	snapshots []*model.HealthSnapshot
}

func (r *stubSnapshotRepo) Insert(_ context.Context, snap *model.HealthSnapshot) error {
	r.snapshots = append(r.snapshots, snap)
	return nil
}

func (r *stubSnapshotRepo) Get(_ context.Context, id uuid.UUID) (*model.HealthSnapshot, error) {
	for _, snap := range r.snapshots {
		if snap.ID == id {
			return snap, nil
		}
	}
	return nil, apperrors.NotFound("snapshot")
}

func (r *stubSnapshotRepo) ListByPatient(_ context.Context, patientID uuid.UUID, rng model.SnapshotRange) ([]*model.HealthSnapshot, error) {
	rng.Normalize()
	var matched []*model.HealthSnapshot
	for _, snap := range r.snapshots {
		if snap.PatientID == patientID {
			matched = append(matched, snap)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].RecordedAt.Before(matched[j].RecordedAt)
	})
	start := rng.Offset()
	if start >= len(matched) {
		return nil, nil
	}
	end := start + rng.PageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], nil
}

func (r *stubSnapshotRepo) Latest(_ context.Context, patientID uuid.UUID) (*model.HealthSnapshot, error) {
	return nil, apperrors.NotFound("snapshot")
}

func (r *stubSnapshotRepo) Delete(_ context.Context, id uuid.UUID) error {
	return nil
}

type stubPatientRepo struct {
	id uuid.UUID
}

func (r *stubPatientRepo) Create(_ context.Context, p *model.Patient) error { return nil }

func (r *stubPatientRepo) Get(_ context.Context, id uuid.UUID) (*model.Patient, error) {
	if id != r.id {
		return nil, apperrors.NotFound("patient")
	}
	p := &model.Patient{}
	p.ID = id
	return p, nil
}

func (r *stubPatientRepo) Update(_ context.Context, id uuid.UUID, _ *model.UpdatePatientRequest) (*model.Patient, error) {
	return r.Get(context.Background(), id)
}

func (r *stubPatientRepo) Delete(_ context.Context, _ uuid.UUID) error { return nil }

func (r *stubPatientRepo) List(_ context.Context, _ model.Pagination) ([]*model.Patient, error) {
	return nil, nil
}

func (r *stubPatientRepo) Search(_ context.Context, _ model.PatientSearch) ([]*model.Patient, error) {
	return nil, nil
}

func day(d int) time.Time {
	return time.Date(2026, 3, d, 9, 0, 0, 0, time.UTC)
}

func addSnap(t *testing.T, repo *stubSnapshotRepo, patientID uuid.UUID, at time.Time, metrics map[string]float64) {
	t.Helper()
	repo.snapshots = append(repo.snapshots, &model.HealthSnapshot{
		ID:         uuid.New(),
		PatientID:  patientID,
		RecordedAt: at,
		Source:     model.SourceManual,
		Metrics:    metrics,
	})
}

func TestBuildSeriesSparseMetrics(t *testing.T) {
	patientID := uuid.New()
	snaps := &stubSnapshotRepo{}

	// Three visits with different metric subsets: sugar on two of them, bp
	// on two of them, hemoglobin once.
	addSnap(t, snaps, patientID, day(1), map[string]float64{"sugar_fasting": 110, "bp_systolic": 130})
	addSnap(t, snaps, patientID, day(10), map[string]float64{"sugar_fasting": 104})
	addSnap(t, snaps, patientID, day(20), map[string]float64{"bp_systolic": 126, "hemoglobin": 13.1})

	records := record.NewService(snaps, &stubPatientRepo{id: patientID})
	svc := NewService(records)

	series, err := svc.BuildSeries(context.Background(), patientID, "glucose")
	require.NoError(t, err)
	assert.Equal(t, "glucose", series.Group)

	sugar := series.Metrics["sugar_fasting"]
	require.Len(t, sugar, 2)
	assert.Equal(t, 110.0, sugar[0].Value)
	assert.Equal(t, 104.0, sugar[1].Value)

	// No zero-filling for visits where the metric was absent and no metrics
	// with zero observations.
	_, present := series.Metrics["hba1c"]
	assert.False(t, present)

	vitals, err := svc.BuildSeries(context.Background(), patientID, "vitals")
	require.NoError(t, err)
	require.Len(t, vitals.Metrics["bp_systolic"], 2)
	assert.Equal(t, 130.0, vitals.Metrics["bp_systolic"][0].Value)
	assert.Equal(t, 126.0, vitals.Metrics["bp_systolic"][1].Value)
	assert.NotContains(t, vitals.Metrics, "hemoglobin")
}

func TestBuildSeriesChronological(t *testing.T) {
	patientID := uuid.New()
	snaps := &stubSnapshotRepo{}

	// Inserted out of order; the series must come back sorted.
	addSnap(t, snaps, patientID, day(15), map[string]float64{"hba1c": 6.1})
	addSnap(t, snaps, patientID, day(3), map[string]float64{"hba1c": 6.5})
	addSnap(t, snaps, patientID, day(25), map[string]float64{"hba1c": 5.9})

	records := record.NewService(snaps, &stubPatientRepo{id: patientID})
	svc := NewService(records)

	series, err := svc.BuildSeries(context.Background(), patientID, "glucose")
	require.NoError(t, err)

	points := series.Metrics["hba1c"]
	require.Len(t, points, 3)
	assert.Equal(t, []float64{6.5, 6.1, 5.9}, []float64{points[0].Value, points[1].Value, points[2].Value})
	assert.True(t, points[0].RecordedAt < points[1].RecordedAt)
	assert.True(t, points[1].RecordedAt < points[2].RecordedAt)
}

func TestBuildSeriesUnknownGroup(t *testing.T) {
	records := record.NewService(&stubSnapshotRepo{}, &stubPatientRepo{id: uuid.New()})
	svc := NewService(records)

	_, err := svc.BuildSeries(context.Background(), uuid.New(), "astrology")
	assert.Equal(t, apperrors.ErrValidation, apperrors.CodeOf(err))
}

func TestBuildSeriesEmptyHistory(t *testing.T) {
	patientID := uuid.New()
	records := record.NewService(&stubSnapshotRepo{}, &stubPatientRepo{id: patientID})
	svc := NewService(records)

	series, err := svc.BuildSeries(context.Background(), patientID, "lipids")
	require.NoError(t, err)
	assert.Empty(t, series.Metrics)
}
