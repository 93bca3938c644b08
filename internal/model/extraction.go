package model

import (
	"time"

	"github.com/google/uuid"
)

// ExtractionState tracks one uploaded report through the staging workflow.
// Terminal states (CONFIRMED, DISCARDED) remove the entry from staging; TTL
// expiry is an implicit discard.
type ExtractionState string

const (
	ExtractionUploaded  ExtractionState = "UPLOADED"
	ExtractionSubmitted ExtractionState = "SUBMITTED"
	ExtractionExtracted ExtractionState = "EXTRACTED"
	ExtractionFailed    ExtractionState = "FAILED"
	ExtractionConfirmed ExtractionState = "CONFIRMED"
	ExtractionDiscarded ExtractionState = "DISCARDED"
)

// PendingExtraction is the ephemeral staging record between upload and
// administrator confirmation. The proposed metrics are a guess; only the
// human-edited mapping submitted at confirm time reaches the permanent
// record.
type PendingExtraction struct {
	ID              uuid.UUID          `json:"id"`
	PatientID       uuid.UUID          `json:"patient_id"`
	Filename        string             `json:"filename"`
	StagedPath      string             `json:"-"`
	State           ExtractionState    `json:"state"`
	RawResponse     string             `json:"-"`
	ProposedMetrics map[string]float64 `json:"proposed_metrics,omitempty"`
	SuggestedDate   *time.Time         `json:"suggested_date,omitempty"`
	FailureReason   string             `json:"failure_reason,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
}

// ConfirmExtractionRequest carries the administrator-reviewed metric mapping
// that will be committed as a REPORT_AI snapshot.
type ConfirmExtractionRequest struct {
	RecordedAt *time.Time         `json:"recorded_at"`
	Metrics    map[string]float64 `json:"metrics" binding:"required"`
	Notes      *string            `json:"notes"`
}
