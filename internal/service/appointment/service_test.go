package appointment

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openphms/admin-api/internal/model"
	apperrors "github.com/openphms/admin-api/pkg/errors"
)

type fakeAppointmentRepo struct {
	byID map[uuid.UUID]*model.Appointment
}

func newFakeAppointmentRepo() *fakeAppointmentRepo {
	return &fakeAppointmentRepo{byID: map[uuid.UUID]*model.Appointment{}}
}

func (r *fakeAppointmentRepo) Create(_ context.Context, apt *model.Appointment) error {
	cp := *apt
	r.byID[apt.ID] = &cp
	return nil
}

func (r *fakeAppointmentRepo) Get(_ context.Context, id uuid.UUID) (*model.Appointment, error) {
	apt, ok := r.byID[id]
	if !ok {
		return nil, apperrors.NotFound("appointment")
	}
	cp := *apt
	return &cp, nil
}

func (r *fakeAppointmentRepo) Update(_ context.Context, apt *model.Appointment) error {
	if _, ok := r.byID[apt.ID]; !ok {
		return apperrors.NotFound("appointment")
	}
	cp := *apt
	r.byID[apt.ID] = &cp
	return nil
}

func (r *fakeAppointmentRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.byID[id]; !ok {
		return apperrors.NotFound("appointment")
	}
	delete(r.byID, id)
	return nil
}

func (r *fakeAppointmentRepo) List(_ context.Context, filters model.AppointmentFilters) ([]*model.Appointment, error) {
	var out []*model.Appointment
	for _, apt := range r.byID {
		if filters.PatientID != nil && apt.PatientID != *filters.PatientID {
			continue
		}
		if filters.Status != nil && string(apt.Status) != *filters.Status {
			continue
		}
		cp := *apt
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeAppointmentRepo) CountOverlapping(_ context.Context, adminID uuid.UUID, start, end time.Time, exclude uuid.UUID) (int, error) {
	n := 0
	for _, apt := range r.byID {
		if apt.ID == exclude || apt.AdminID != adminID || apt.Status != model.AppointmentScheduled {
			continue
		}
		if apt.StartTime.Before(end) && apt.EndTime.After(start) {
			n++
		}
	}
	return n, nil
}

type fakePatientRepo struct {
	id uuid.UUID
}

func (r *fakePatientRepo) Create(_ context.Context, _ *model.Patient) error { return nil }

func (r *fakePatientRepo) Get(_ context.Context, id uuid.UUID) (*model.Patient, error) {
	if id != r.id {
		return nil, apperrors.NotFound("patient")
	}
	p := &model.Patient{}
	p.ID = id
	return p, nil
}

func (r *fakePatientRepo) Update(_ context.Context, id uuid.UUID, _ *model.UpdatePatientRequest) (*model.Patient, error) {
	return r.Get(context.Background(), id)
}

func (r *fakePatientRepo) Delete(_ context.Context, _ uuid.UUID) error { return nil }

func (r *fakePatientRepo) List(_ context.Context, _ model.Pagination) ([]*model.Patient, error) {
	return nil, nil
}

func (r *fakePatientRepo) Search(_ context.Context, _ model.PatientSearch) ([]*model.Patient, error) {
	return nil, nil
}

type fakeAdminRepo struct {
	id uuid.UUID
}

func (r *fakeAdminRepo) Create(_ context.Context, _ *model.Administrator) error { return nil }

func (r *fakeAdminRepo) Get(_ context.Context, id uuid.UUID) (*model.Administrator, error) {
	if id != r.id {
		return nil, apperrors.NotFound("admin")
	}
	a := &model.Administrator{}
	a.ID = id
	return a, nil
}

func (r *fakeAdminRepo) GetByUserID(_ context.Context, _ string) (*model.Administrator, error) {
	return nil, apperrors.NotFound("admin")
}

func (r *fakeAdminRepo) List(_ context.Context) ([]*model.Administrator, error) { return nil, nil }

func (r *fakeAdminRepo) Delete(_ context.Context, _ uuid.UUID) error { return nil }

var clinicNow = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

func newTestService(patientID, adminID uuid.UUID) (*Service, *fakeAppointmentRepo) {
	repo := newFakeAppointmentRepo()
	svc := NewService(repo, &fakePatientRepo{id: patientID}, &fakeAdminRepo{id: adminID})
	svc.now = func() time.Time { return clinicNow }
	return svc, repo
}

func TestCreateAppointment(t *testing.T) {
	patientID, adminID := uuid.New(), uuid.New()
	svc, repo := newTestService(patientID, adminID)

	apt, err := svc.Create(context.Background(), &model.CreateAppointmentRequest{
		PatientID: patientID,
		StartTime: clinicNow.Add(24 * time.Hour),
	}, adminID)
	require.NoError(t, err)

	assert.Equal(t, model.AppointmentScheduled, apt.Status)
	assert.Equal(t, model.AppointmentConsultation, apt.Type)
	assert.Equal(t, adminID, apt.AdminID)
	assert.Equal(t, 30*time.Minute, apt.EndTime.Sub(apt.StartTime))
	assert.Len(t, repo.byID, 1)
}

func TestCreateRejectsBadSlots(t *testing.T) {
	patientID, adminID := uuid.New(), uuid.New()
	svc, repo := newTestService(patientID, adminID)
	ctx := context.Background()

	cases := []struct {
		name string
		req  model.CreateAppointmentRequest
		code apperrors.ErrorCode
	}{
		{"past start", model.CreateAppointmentRequest{
			PatientID: patientID,
			StartTime: clinicNow.Add(-time.Hour),
		}, apperrors.ErrValidation},
		{"too far ahead", model.CreateAppointmentRequest{
			PatientID: patientID,
			StartTime: clinicNow.Add(91 * 24 * time.Hour),
		}, apperrors.ErrValidation},
		{"too short", model.CreateAppointmentRequest{
			PatientID:       patientID,
			StartTime:       clinicNow.Add(time.Hour),
			DurationMinutes: 5,
		}, apperrors.ErrValidation},
		{"too long", model.CreateAppointmentRequest{
			PatientID:       patientID,
			StartTime:       clinicNow.Add(time.Hour),
			DurationMinutes: 300,
		}, apperrors.ErrValidation},
		{"unknown type", model.CreateAppointmentRequest{
			PatientID: patientID,
			StartTime: clinicNow.Add(time.Hour),
			Type:      strPtr("HOUSE_CALL"),
		}, apperrors.ErrValidation},
		{"unknown patient", model.CreateAppointmentRequest{
			PatientID: uuid.New(),
			StartTime: clinicNow.Add(time.Hour),
		}, apperrors.ErrNotFound},
	}
	for _, tc := range cases {
		_, err := svc.Create(ctx, &tc.req, adminID)
		assert.Equal(t, tc.code, apperrors.CodeOf(err), tc.name)
	}
	assert.Empty(t, repo.byID)
}

func TestCreateDetectsConflicts(t *testing.T) {
	patientID, adminID := uuid.New(), uuid.New()
	svc, _ := newTestService(patientID, adminID)
	ctx := context.Background()

	start := clinicNow.Add(24 * time.Hour)
	_, err := svc.Create(ctx, &model.CreateAppointmentRequest{
		PatientID:       patientID,
		StartTime:       start,
		DurationMinutes: 60,
	}, adminID)
	require.NoError(t, err)

	// Overlapping slot for the same admin is rejected.
	_, err = svc.Create(ctx, &model.CreateAppointmentRequest{
		PatientID: patientID,
		StartTime: start.Add(30 * time.Minute),
	}, adminID)
	assert.Equal(t, apperrors.ErrConflict, apperrors.CodeOf(err))

	// Back-to-back is fine: slots are half-open.
	_, err = svc.Create(ctx, &model.CreateAppointmentRequest{
		PatientID: patientID,
		StartTime: start.Add(60 * time.Minute),
	}, adminID)
	assert.NoError(t, err)
}

func TestCancelFreesSlot(t *testing.T) {
	patientID, adminID := uuid.New(), uuid.New()
	svc, _ := newTestService(patientID, adminID)
	ctx := context.Background()

	start := clinicNow.Add(24 * time.Hour)
	apt, err := svc.Create(ctx, &model.CreateAppointmentRequest{
		PatientID: patientID,
		StartTime: start,
	}, adminID)
	require.NoError(t, err)

	reason := "patient called in"
	cancelled, err := svc.Cancel(ctx, apt.ID, &reason)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelReason)

	// The freed slot can be rebooked.
	_, err = svc.Create(ctx, &model.CreateAppointmentRequest{
		PatientID: patientID,
		StartTime: start,
	}, adminID)
	assert.NoError(t, err)

	// Cancelling twice is an error.
	_, err = svc.Cancel(ctx, apt.ID, nil)
	assert.Equal(t, apperrors.ErrValidation, apperrors.CodeOf(err))
}

func TestReschedule(t *testing.T) {
	patientID, adminID := uuid.New(), uuid.New()
	svc, _ := newTestService(patientID, adminID)
	ctx := context.Background()

	start := clinicNow.Add(24 * time.Hour)
	apt, err := svc.Create(ctx, &model.CreateAppointmentRequest{
		PatientID:       patientID,
		StartTime:       start,
		DurationMinutes: 60,
	}, adminID)
	require.NoError(t, err)

	// Shifting within the appointment's own slot is allowed; it does not
	// conflict with itself.
	moved, err := svc.Reschedule(ctx, apt.ID, &model.RescheduleAppointmentRequest{
		StartTime: start.Add(15 * time.Minute),
	})
	require.NoError(t, err)
	assert.True(t, moved.StartTime.Equal(start.Add(15*time.Minute)))
	// Duration carries over when not given.
	assert.Equal(t, 60*time.Minute, moved.EndTime.Sub(moved.StartTime))

	// A second booking blocks the move into its slot.
	other, err := svc.Create(ctx, &model.CreateAppointmentRequest{
		PatientID: patientID,
		StartTime: start.Add(3 * time.Hour),
	}, adminID)
	require.NoError(t, err)
	_, err = svc.Reschedule(ctx, apt.ID, &model.RescheduleAppointmentRequest{
		StartTime: other.StartTime,
	})
	assert.Equal(t, apperrors.ErrConflict, apperrors.CodeOf(err))

	// Terminal appointments stay put.
	_, err = svc.Cancel(ctx, apt.ID, nil)
	require.NoError(t, err)
	_, err = svc.Reschedule(ctx, apt.ID, &model.RescheduleAppointmentRequest{
		StartTime: start.Add(48 * time.Hour),
	})
	assert.Equal(t, apperrors.ErrValidation, apperrors.CodeOf(err))
}

func TestLifecycleTransitions(t *testing.T) {
	patientID, adminID := uuid.New(), uuid.New()
	svc, _ := newTestService(patientID, adminID)
	ctx := context.Background()

	book := func(t *testing.T, start time.Time) *model.Appointment {
		t.Helper()
		apt, err := svc.Create(ctx, &model.CreateAppointmentRequest{
			PatientID: patientID,
			StartTime: start,
		}, adminID)
		require.NoError(t, err)
		return apt
	}

	held := book(t, clinicNow.Add(2*time.Hour))
	done, err := svc.Complete(ctx, held.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentCompleted, done.Status)

	// Completed appointments are history: no cancel, no second complete.
	_, err = svc.Cancel(ctx, held.ID, nil)
	assert.Equal(t, apperrors.ErrValidation, apperrors.CodeOf(err))
	_, err = svc.Complete(ctx, held.ID)
	assert.Equal(t, apperrors.ErrValidation, apperrors.CodeOf(err))

	missed := book(t, clinicNow.Add(4*time.Hour))
	flagged, err := svc.MarkNoShow(ctx, missed.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentNoShow, flagged.Status)
}

func TestDeleteOnlyCancelled(t *testing.T) {
	patientID, adminID := uuid.New(), uuid.New()
	svc, repo := newTestService(patientID, adminID)
	ctx := context.Background()

	apt, err := svc.Create(ctx, &model.CreateAppointmentRequest{
		PatientID: patientID,
		StartTime: clinicNow.Add(2 * time.Hour),
	}, adminID)
	require.NoError(t, err)

	err = svc.Delete(ctx, apt.ID)
	assert.Equal(t, apperrors.ErrValidation, apperrors.CodeOf(err))

	_, err = svc.Cancel(ctx, apt.ID, nil)
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, apt.ID))
	assert.Empty(t, repo.byID)

	err = svc.Delete(ctx, uuid.New())
	assert.Equal(t, apperrors.ErrNotFound, apperrors.CodeOf(err))
}

func TestCheckConflict(t *testing.T) {
	patientID, adminID := uuid.New(), uuid.New()
	svc, _ := newTestService(patientID, adminID)
	ctx := context.Background()

	start := clinicNow.Add(24 * time.Hour)
	_, err := svc.Create(ctx, &model.CreateAppointmentRequest{
		PatientID:       patientID,
		StartTime:       start,
		DurationMinutes: 60,
	}, adminID)
	require.NoError(t, err)

	busy, err := svc.CheckConflict(ctx, model.ConflictQuery{
		AdminID:   adminID,
		StartTime: start.Add(45 * time.Minute),
	})
	require.NoError(t, err)
	assert.True(t, busy)

	free, err := svc.CheckConflict(ctx, model.ConflictQuery{
		AdminID:   adminID,
		StartTime: start.Add(time.Hour),
	})
	require.NoError(t, err)
	assert.False(t, free)
}

func strPtr(s string) *string { return &s }
