package extraction

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openphms/admin-api/internal/model"
	"github.com/openphms/admin-api/internal/repository"
	"github.com/openphms/admin-api/internal/service/record"
	apperrors "github.com/openphms/admin-api/pkg/errors"
	"github.com/openphms/admin-api/pkg/gemini"
)

type stubExtractor struct {
	calls  int
	result *gemini.Extraction
	err    error
}

func (e *stubExtractor) ExtractReport(_ context.Context, _ []byte, _ string) (*gemini.Extraction, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	return e.result, nil
}

type memSnapshotRepo struct {
	mu       sync.Mutex
	inserted []*model.HealthSnapshot
}

func (r *memSnapshotRepo) Insert(_ context.Context, snap *model.HealthSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inserted = append(r.inserted, snap)
	return nil
}

func (r *memSnapshotRepo) Get(_ context.Context, _ uuid.UUID) (*model.HealthSnapshot, error) {
	return nil, apperrors.NotFound("snapshot")
}

func (r *memSnapshotRepo) ListByPatient(_ context.Context, _ uuid.UUID, _ model.SnapshotRange) ([]*model.HealthSnapshot, error) {
	return r.inserted, nil
}

func (r *memSnapshotRepo) Latest(_ context.Context, _ uuid.UUID) (*model.HealthSnapshot, error) {
	return nil, apperrors.NotFound("snapshot")
}

func (r *memSnapshotRepo) Delete(_ context.Context, _ uuid.UUID) error { return nil }

type memPatientRepo struct {
	id uuid.UUID
}

func (r *memPatientRepo) Create(_ context.Context, _ *model.Patient) error { return nil }

func (r *memPatientRepo) Get(_ context.Context, id uuid.UUID) (*model.Patient, error) {
	if id != r.id {
		return nil, apperrors.NotFound("patient")
	}
	p := &model.Patient{}
	p.ID = id
	return p, nil
}

func (r *memPatientRepo) Update(_ context.Context, id uuid.UUID, _ *model.UpdatePatientRequest) (*model.Patient, error) {
	return r.Get(context.Background(), id)
}

func (r *memPatientRepo) Delete(_ context.Context, _ uuid.UUID) error { return nil }

func (r *memPatientRepo) List(_ context.Context, _ model.Pagination) ([]*model.Patient, error) {
	return nil, nil
}

func (r *memPatientRepo) Search(_ context.Context, _ model.PatientSearch) ([]*model.Patient, error) {
	return nil, nil
}

func newTestService(t *testing.T, extractor gemini.Extractor, patientID uuid.UUID) (*Service, *memSnapshotRepo) {
	t.Helper()
	snaps := &memSnapshotRepo{}
	var patients repository.PatientRepository = &memPatientRepo{id: patientID}
	records := record.NewService(snaps, patients)
	svc := NewService(extractor, records, patients, Config{
		UploadDir:  t.TempDir(),
		MaxBytes:   1 << 20,
		PendingTTL: time.Minute,
		SweepEvery: time.Minute,
	})
	return svc, snaps
}

func TestSubmitExtracts(t *testing.T) {
	patientID := uuid.New()
	reportDate := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	extractor := &stubExtractor{result: &gemini.Extraction{
		Metrics: map[string]float64{
			"hemoglobin": 13.2,
			"notavalue":  1,
		},
		ReportDate:  &reportDate,
		RawResponse: `{"hemoglobin": 13.2}`,
	}}
	svc, snaps := newTestService(t, extractor, patientID)

	pe, err := svc.Submit(context.Background(), patientID, "cbc.pdf", []byte("%PDF-1.4"))
	require.NoError(t, err)

	assert.Equal(t, model.ExtractionExtracted, pe.State)
	assert.Equal(t, 1, extractor.calls)
	assert.Equal(t, map[string]float64{"hemoglobin": 13.2}, pe.ProposedMetrics)
	require.NotNil(t, pe.SuggestedDate)
	assert.True(t, pe.SuggestedDate.Equal(reportDate))

	// Nothing persists until the administrator confirms.
	assert.Empty(t, snaps.inserted)
}

func TestSubmitRejectsBadUploads(t *testing.T) {
	patientID := uuid.New()
	extractor := &stubExtractor{result: &gemini.Extraction{}}
	svc, _ := newTestService(t, extractor, patientID)
	ctx := context.Background()

	_, err := svc.Submit(ctx, patientID, "report.exe", []byte("MZ"))
	assert.Equal(t, apperrors.ErrValidation, apperrors.CodeOf(err))

	_, err = svc.Submit(ctx, patientID, "report.pdf", nil)
	assert.Equal(t, apperrors.ErrValidation, apperrors.CodeOf(err))

	big := make([]byte, (1<<20)+1)
	_, err = svc.Submit(ctx, patientID, "report.pdf", big)
	assert.Equal(t, apperrors.ErrValidation, apperrors.CodeOf(err))

	_, err = svc.Submit(ctx, uuid.New(), "report.pdf", []byte("%PDF"))
	assert.Equal(t, apperrors.ErrNotFound, apperrors.CodeOf(err))

	// Rejected uploads never reach the adapter.
	assert.Equal(t, 0, extractor.calls)
}

func TestSubmitAdapterFailure(t *testing.T) {
	patientID := uuid.New()
	extractor := &stubExtractor{err: errors.New("upstream returned 503")}
	svc, snaps := newTestService(t, extractor, patientID)

	pe, err := svc.Submit(context.Background(), patientID, "scan.jpg", []byte{0xff, 0xd8})
	require.NoError(t, err)

	assert.Equal(t, model.ExtractionFailed, pe.State)
	assert.Contains(t, pe.FailureReason, "503")
	assert.Empty(t, snaps.inserted)

	// A failed entry cannot be confirmed.
	_, err = svc.Confirm(context.Background(), pe.ID, &model.ConfirmExtractionRequest{
		Metrics: map[string]float64{"hemoglobin": 13},
	})
	assert.Equal(t, apperrors.ErrValidation, apperrors.CodeOf(err))
}

func TestConfirmCommitsEditedMetrics(t *testing.T) {
	patientID := uuid.New()
	extractor := &stubExtractor{result: &gemini.Extraction{
		Metrics: map[string]float64{"hemoglobin": 13.2, "tsh": 2.4},
	}}
	svc, snaps := newTestService(t, extractor, patientID)
	ctx := context.Background()

	pe, err := svc.Submit(ctx, patientID, "panel.png", []byte{0x89, 0x50})
	require.NoError(t, err)
	require.Equal(t, model.ExtractionExtracted, pe.State)

	// The administrator corrects one value and drops the other.
	at := time.Date(2026, 2, 11, 8, 0, 0, 0, time.UTC)
	snap, err := svc.Confirm(ctx, pe.ID, &model.ConfirmExtractionRequest{
		RecordedAt: &at,
		Metrics:    map[string]float64{"hemoglobin": 12.9},
	})
	require.NoError(t, err)

	assert.Equal(t, model.SourceReportAI, snap.Source)
	assert.Equal(t, map[string]float64{"hemoglobin": 12.9}, snap.Metrics)
	assert.True(t, snap.RecordedAt.Equal(at))
	require.Len(t, snaps.inserted, 1)

	// Confirm consumed the entry.
	_, err = svc.Get(ctx, pe.ID)
	assert.Equal(t, apperrors.ErrNotFound, apperrors.CodeOf(err))
}

func TestConcurrentConfirmCommitsOnce(t *testing.T) {
	patientID := uuid.New()
	extractor := &stubExtractor{result: &gemini.Extraction{
		Metrics: map[string]float64{"hemoglobin": 13.2},
	}}
	svc, snaps := newTestService(t, extractor, patientID)
	ctx := context.Background()

	pe, err := svc.Submit(ctx, patientID, "panel.pdf", []byte("%PDF"))
	require.NoError(t, err)

	req := &model.ConfirmExtractionRequest{
		Metrics: map[string]float64{"hemoglobin": 13.2},
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Confirm(ctx, pe.ID, req)
		}(i)
	}
	wg.Wait()

	// Exactly one confirm wins; the other finds the entry already consumed.
	var committed, missed int
	for _, err := range errs {
		if err == nil {
			committed++
		} else if apperrors.CodeOf(err) == apperrors.ErrNotFound {
			missed++
		}
	}
	assert.Equal(t, 1, committed)
	assert.Equal(t, 1, missed)
	assert.Len(t, snaps.inserted, 1)
}

func TestDiscard(t *testing.T) {
	patientID := uuid.New()
	extractor := &stubExtractor{result: &gemini.Extraction{
		Metrics: map[string]float64{"sodium": 140},
	}}
	svc, snaps := newTestService(t, extractor, patientID)
	ctx := context.Background()

	pe, err := svc.Submit(ctx, patientID, "electrolytes.jpeg", []byte{0xff, 0xd8})
	require.NoError(t, err)

	require.NoError(t, svc.Discard(ctx, pe.ID))
	assert.Empty(t, snaps.inserted)

	_, err = svc.Get(ctx, pe.ID)
	assert.Equal(t, apperrors.ErrNotFound, apperrors.CodeOf(err))

	err = svc.Discard(ctx, uuid.New())
	assert.Equal(t, apperrors.ErrNotFound, apperrors.CodeOf(err))
}

func TestDisabledAdapter(t *testing.T) {
	patientID := uuid.New()
	svc, _ := newTestService(t, nil, patientID)

	pe, err := svc.Submit(context.Background(), patientID, "report.pdf", []byte("%PDF"))
	require.NoError(t, err)
	assert.Equal(t, model.ExtractionFailed, pe.State)
	assert.Contains(t, pe.FailureReason, "disabled")
}
