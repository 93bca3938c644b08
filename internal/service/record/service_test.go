package record

import (
	"bytes"
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openphms/admin-api/internal/model"
	apperrors "github.com/openphms/admin-api/pkg/errors"
)

type fakeSnapshotRepo struct {
	inserted []*model.HealthSnapshot
	byID     map[uuid.UUID]*model.HealthSnapshot
}

func newFakeSnapshotRepo() *fakeSnapshotRepo {
	return &fakeSnapshotRepo{byID: map[uuid.UUID]*model.HealthSnapshot{}}
}

func (r *fakeSnapshotRepo) Insert(_ context.Context, snap *model.HealthSnapshot) error {
	r.inserted = append(r.inserted, snap)
	r.byID[snap.ID] = snap
	return nil
}

func (r *fakeSnapshotRepo) Get(_ context.Context, id uuid.UUID) (*model.HealthSnapshot, error) {
	snap, ok := r.byID[id]
	if !ok {
		return nil, apperrors.NotFound("snapshot")
	}
	return snap, nil
}

func (r *fakeSnapshotRepo) ListByPatient(_ context.Context, patientID uuid.UUID, _ model.SnapshotRange) ([]*model.HealthSnapshot, error) {
	var out []*model.HealthSnapshot
	for _, snap := range r.inserted {
		if snap.PatientID == patientID {
			out = append(out, snap)
		}
	}
	// Same ordering contract as the real repository.
	sort.Slice(out, func(i, j int) bool {
		if !out[i].RecordedAt.Equal(out[j].RecordedAt) {
			return out[i].RecordedAt.Before(out[j].RecordedAt)
		}
		return bytes.Compare(out[i].ID[:], out[j].ID[:]) < 0
	})
	return out, nil
}

func (r *fakeSnapshotRepo) Latest(_ context.Context, patientID uuid.UUID) (*model.HealthSnapshot, error) {
	var latest *model.HealthSnapshot
	for _, snap := range r.inserted {
		if snap.PatientID != patientID {
			continue
		}
		if latest == nil || snap.RecordedAt.After(latest.RecordedAt) {
			latest = snap
		}
	}
	if latest == nil {
		return nil, apperrors.NotFound("snapshot")
	}
	return latest, nil
}

func (r *fakeSnapshotRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.byID[id]; !ok {
		return apperrors.NotFound("snapshot")
	}
	delete(r.byID, id)
	return nil
}

type fakePatientRepo struct {
	patients map[uuid.UUID]*model.Patient
}

func newFakePatientRepo(ids ...uuid.UUID) *fakePatientRepo {
	r := &fakePatientRepo{patients: map[uuid.UUID]*model.Patient{}}
	for _, id := range ids {
		p := &model.Patient{}
		p.ID = id
		p.FullName = "Test Patient"
		r.patients[id] = p
	}
	return r
}

func (r *fakePatientRepo) Create(_ context.Context, p *model.Patient) error {
	r.patients[p.ID] = p
	return nil
}

func (r *fakePatientRepo) Get(_ context.Context, id uuid.UUID) (*model.Patient, error) {
	p, ok := r.patients[id]
	if !ok {
		return nil, apperrors.NotFound("patient")
	}
	return p, nil
}

func (r *fakePatientRepo) Update(_ context.Context, id uuid.UUID, _ *model.UpdatePatientRequest) (*model.Patient, error) {
	return r.Get(context.Background(), id)
}

func (r *fakePatientRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.patients, id)
	return nil
}

func (r *fakePatientRepo) List(_ context.Context, _ model.Pagination) ([]*model.Patient, error) {
	var out []*model.Patient
	for _, p := range r.patients {
		out = append(out, p)
	}
	return out, nil
}

func (r *fakePatientRepo) Search(_ context.Context, _ model.PatientSearch) ([]*model.Patient, error) {
	return r.List(context.Background(), model.Pagination{})
}

func TestAddSnapshot(t *testing.T) {
	patientID := uuid.New()
	snaps := newFakeSnapshotRepo()
	svc := NewService(snaps, newFakePatientRepo(patientID))

	notes := "routine checkup"
	snap, err := svc.AddSnapshot(context.Background(), patientID, model.SourceManual,
		nil, map[string]float64{"bp_systolic": 120, "bp_diastolic": 80}, &notes)
	require.NoError(t, err)

	assert.Equal(t, patientID, snap.PatientID)
	assert.Equal(t, model.SourceManual, snap.Source)
	assert.Equal(t, 120.0, snap.Metrics["bp_systolic"])
	assert.WithinDuration(t, time.Now().UTC(), snap.RecordedAt, 5*time.Second)
	assert.Len(t, snaps.inserted, 1)
}

func TestAddSnapshotDerivesBMI(t *testing.T) {
	patientID := uuid.New()
	svc := NewService(newFakeSnapshotRepo(), newFakePatientRepo(patientID))

	snap, err := svc.AddSnapshot(context.Background(), patientID, model.SourceManual,
		nil, map[string]float64{"weight": 70, "height": 175}, nil)
	require.NoError(t, err)
	assert.InDelta(t, 22.86, snap.Metrics["bmi"], 0.01)
}

func TestAddSnapshotRejectsInvalidInput(t *testing.T) {
	patientID := uuid.New()
	snaps := newFakeSnapshotRepo()
	svc := NewService(snaps, newFakePatientRepo(patientID))
	ctx := context.Background()

	_, err := svc.AddSnapshot(ctx, patientID, model.SourceManual, nil, map[string]float64{}, nil)
	assert.Equal(t, apperrors.ErrValidation, apperrors.CodeOf(err))

	_, err = svc.AddSnapshot(ctx, patientID, model.SourceManual, nil,
		map[string]float64{"blood_type": 1}, nil)
	assert.Equal(t, apperrors.ErrValidation, apperrors.CodeOf(err))

	_, err = svc.AddSnapshot(ctx, patientID, model.SourceManual, nil,
		map[string]float64{"heart_rate": 9000}, nil)
	assert.Equal(t, apperrors.ErrValidation, apperrors.CodeOf(err))

	_, err = svc.AddSnapshot(ctx, patientID, model.SnapshotSource("IMPORT"), nil,
		map[string]float64{"heart_rate": 70}, nil)
	assert.Equal(t, apperrors.ErrValidation, apperrors.CodeOf(err))

	// Nothing reached storage.
	assert.Empty(t, snaps.inserted)
}

func TestAddSnapshotUnknownPatient(t *testing.T) {
	svc := NewService(newFakeSnapshotRepo(), newFakePatientRepo())

	_, err := svc.AddSnapshot(context.Background(), uuid.New(), model.SourceManual,
		nil, map[string]float64{"heart_rate": 70}, nil)
	assert.Equal(t, apperrors.ErrNotFound, apperrors.CodeOf(err))
}

func TestDuplicateRecordedAtBothPersist(t *testing.T) {
	patientID := uuid.New()
	snaps := newFakeSnapshotRepo()
	svc := NewService(snaps, newFakePatientRepo(patientID))
	ctx := context.Background()

	// Two draws on the same clinical timestamp, e.g. fasting and post-meal
	// samples logged against the same visit date.
	at := time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC)
	first, err := svc.AddSnapshot(ctx, patientID, model.SourceManual,
		&at, map[string]float64{"sugar_fasting": 5.4}, nil)
	require.NoError(t, err)
	second, err := svc.AddSnapshot(ctx, patientID, model.SourceManual,
		&at, map[string]float64{"sugar_pp": 7.8}, nil)
	require.NoError(t, err)

	require.Len(t, snaps.inserted, 2)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 5.4, snaps.byID[first.ID].Metrics["sugar_fasting"])
	assert.Equal(t, 7.8, snaps.byID[second.ID].Metrics["sugar_pp"])

	got, err := svc.ListSnapshots(ctx, patientID, model.SnapshotRange{})
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Equal recorded_at breaks ties on id, so the order is stable.
	wantFirst, wantSecond := first.ID, second.ID
	if bytes.Compare(wantFirst[:], wantSecond[:]) > 0 {
		wantFirst, wantSecond = wantSecond, wantFirst
	}
	assert.Equal(t, wantFirst, got[0].ID)
	assert.Equal(t, wantSecond, got[1].ID)
}

func TestCallerSuppliedBMIWins(t *testing.T) {
	patientID := uuid.New()
	svc := NewService(newFakeSnapshotRepo(), newFakePatientRepo(patientID))

	snap, err := svc.AddSnapshot(context.Background(), patientID, model.SourceManual,
		nil, map[string]float64{"weight": 70, "height": 175, "bmi": 24.5}, nil)
	require.NoError(t, err)
	assert.Equal(t, 24.5, snap.Metrics["bmi"])
}

func TestAddSnapshotDoesNotMutateInput(t *testing.T) {
	patientID := uuid.New()
	svc := NewService(newFakeSnapshotRepo(), newFakePatientRepo(patientID))

	in := map[string]float64{"weight": 70, "height": 175}
	_, err := svc.AddSnapshot(context.Background(), patientID, model.SourceManual, nil, in, nil)
	require.NoError(t, err)
	assert.NotContains(t, in, "bmi")
}

func TestListSnapshotsRejectsInvertedRange(t *testing.T) {
	patientID := uuid.New()
	svc := NewService(newFakeSnapshotRepo(), newFakePatientRepo(patientID))

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, -7)
	rng := model.SnapshotRange{From: &from, To: &to}

	_, err := svc.ListSnapshots(context.Background(), patientID, rng)
	assert.Equal(t, apperrors.ErrValidation, apperrors.CodeOf(err))
}

func TestRecordedAtNormalizedToUTC(t *testing.T) {
	patientID := uuid.New()
	svc := NewService(newFakeSnapshotRepo(), newFakePatientRepo(patientID))

	loc := time.FixedZone("IST", 5*3600+1800)
	at := time.Date(2026, 3, 15, 10, 30, 0, 0, loc)
	snap, err := svc.AddSnapshot(context.Background(), patientID, model.SourceManual,
		&at, map[string]float64{"heart_rate": 70}, nil)
	require.NoError(t, err)

	assert.Equal(t, time.UTC, snap.RecordedAt.Location())
	assert.True(t, snap.RecordedAt.Equal(at))
}
