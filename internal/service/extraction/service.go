// Package extraction stages uploaded lab reports through the review
// workflow: UPLOADED → SUBMITTED → {EXTRACTED | FAILED} → {CONFIRMED |
// DISCARDED}. Staged entries live in an expiring cache; TTL lapse is an
// implicit discard. The adapter's guess never reaches the permanent record
// directly — only the administrator-edited mapping at confirm time does.
package extraction

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"

	"github.com/openphms/admin-api/internal/metric"
	"github.com/openphms/admin-api/internal/model"
	"github.com/openphms/admin-api/internal/repository"
	"github.com/openphms/admin-api/internal/service/record"
	apperrors "github.com/openphms/admin-api/pkg/errors"
	"github.com/openphms/admin-api/pkg/gemini"
)

var mimeTypes = map[string]string{
	".pdf":  "application/pdf",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
}

type Config struct {
	UploadDir  string
	MaxBytes   int64
	PendingTTL time.Duration
	SweepEvery time.Duration
}

type Service struct {
	extractor gemini.Extractor
	records   *record.Service
	patients  repository.PatientRepository
	pending   *gocache.Cache
	cfg       Config

	// mu serializes Confirm and Discard: the cache read and the state
	// change are not atomic on their own, and two concurrent confirms of
	// the same entry must not both commit a snapshot.
	mu sync.Mutex
}

func NewService(extractor gemini.Extractor, records *record.Service, patients repository.PatientRepository, cfg Config) *Service {
	s := &Service{
		extractor: extractor,
		records:   records,
		patients:  patients,
		pending:   gocache.New(cfg.PendingTTL, cfg.SweepEvery),
		cfg:       cfg,
	}
	// Expired entries leave a staged file behind; clean it with the entry.
	s.pending.OnEvicted(func(_ string, v interface{}) {
		if pe, ok := v.(*model.PendingExtraction); ok && pe.StagedPath != "" {
			os.Remove(pe.StagedPath)
		}
	})
	return s
}

// Submit validates the upload, stages the file, and calls the adapter. File
// type and size are checked before anything leaves the process; invalid
// input means zero adapter invocations. An adapter failure is staged as
// FAILED so the administrator sees it and can retry or enter data manually.
func (s *Service) Submit(ctx context.Context, patientID uuid.UUID, filename string, payload []byte) (*model.PendingExtraction, error) {
	if _, err := s.patients.Get(ctx, patientID); err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(filename))
	mimeType, ok := mimeTypes[ext]
	if !ok {
		return nil, apperrors.ValidationField("file", "unsupported file type: use PDF, PNG, JPG or JPEG")
	}
	if len(payload) == 0 {
		return nil, apperrors.ValidationField("file", "uploaded file is empty")
	}
	if int64(len(payload)) > s.cfg.MaxBytes {
		return nil, apperrors.ValidationField("file", fmt.Sprintf("file exceeds %d bytes", s.cfg.MaxBytes))
	}

	pe := &model.PendingExtraction{
		ID:        uuid.New(),
		PatientID: patientID,
		Filename:  filepath.Base(filename),
		State:     model.ExtractionUploaded,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.stageFile(pe, payload); err != nil {
		return nil, err
	}

	if s.extractor == nil {
		pe.State = model.ExtractionFailed
		pe.FailureReason = "extraction adapter is disabled; enter the values manually"
		s.pending.SetDefault(pe.ID.String(), pe)
		return pe, nil
	}

	pe.State = model.ExtractionSubmitted
	result, err := s.extractor.ExtractReport(ctx, payload, mimeType)
	if err != nil {
		// Recoverable: surface the failure, keep the entry so manual entry
		// or a retry stays available.
		pe.State = model.ExtractionFailed
		pe.FailureReason = err.Error()
		s.pending.SetDefault(pe.ID.String(), pe)
		log.Warn().Err(err).Str("patient_id", patientID.String()).Msg("report extraction failed")
		return pe, nil
	}

	pe.State = model.ExtractionExtracted
	pe.RawResponse = result.RawResponse
	pe.ProposedMetrics = metric.FilterKnown(result.Metrics)
	pe.SuggestedDate = result.ReportDate
	s.pending.SetDefault(pe.ID.String(), pe)

	log.Info().
		Str("patient_id", patientID.String()).
		Str("extraction_id", pe.ID.String()).
		Int("metrics", len(pe.ProposedMetrics)).
		Msg("report extracted, awaiting confirmation")
	return pe, nil
}

// Get returns a staged entry for review.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.PendingExtraction, error) {
	v, ok := s.pending.Get(id.String())
	if !ok {
		return nil, apperrors.NotFound("pending extraction")
	}
	return v.(*model.PendingExtraction), nil
}

// Confirm commits the administrator-edited metrics as a REPORT_AI snapshot
// and drops the staging entry. Only EXTRACTED entries can be confirmed; a
// FAILED upload has nothing reviewable to commit.
func (s *Service) Confirm(ctx context.Context, id uuid.UUID, req *model.ConfirmExtractionRequest) (*model.HealthSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pe, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if pe.State != model.ExtractionExtracted {
		return nil, apperrors.Validation(fmt.Sprintf("extraction in state %s cannot be confirmed", pe.State))
	}

	recordedAt := req.RecordedAt
	if recordedAt == nil {
		recordedAt = pe.SuggestedDate
	}

	snap, err := s.records.AddSnapshot(ctx, pe.PatientID, model.SourceReportAI, recordedAt, req.Metrics, req.Notes)
	if err != nil {
		return nil, err
	}

	pe.State = model.ExtractionConfirmed
	s.drop(pe)
	return snap, nil
}

// Discard drops the staged entry and its file with no persistent effect.
func (s *Service) Discard(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pe, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	pe.State = model.ExtractionDiscarded
	s.drop(pe)
	return nil
}

func (s *Service) stageFile(pe *model.PendingExtraction, payload []byte) error {
	if err := os.MkdirAll(s.cfg.UploadDir, 0o750); err != nil {
		return apperrors.Internal(fmt.Errorf("failed to create upload dir: %w", err))
	}
	staged := filepath.Join(s.cfg.UploadDir, fmt.Sprintf("%s_%s", pe.ID, pe.Filename))
	if err := os.WriteFile(staged, payload, 0o640); err != nil {
		return apperrors.Internal(fmt.Errorf("failed to stage upload: %w", err))
	}
	pe.StagedPath = staged
	return nil
}

func (s *Service) drop(pe *model.PendingExtraction) {
	if pe.StagedPath != "" {
		os.Remove(pe.StagedPath)
		pe.StagedPath = ""
	}
	s.pending.Delete(pe.ID.String())
}
