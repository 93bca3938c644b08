package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SnapshotSource marks how a snapshot entered the record.
type SnapshotSource string

const (
	SourceManual   SnapshotSource = "MANUAL"
	SourceReportAI SnapshotSource = "REPORT_AI"
)

func (s SnapshotSource) Valid() bool {
	return s == SourceManual || s == SourceReportAI
}

// HealthSnapshot is one timestamped set of metric values for a patient.
// Snapshots are immutable once stored; corrections are new snapshots.
// RecordedAt is the clinical time of the draw, distinct from CreatedAt.
type HealthSnapshot struct {
	ID          uuid.UUID          `json:"id" db:"id"`
	PatientID   uuid.UUID          `json:"patient_id" db:"patient_id"`
	RecordedAt  time.Time          `json:"recorded_at" db:"recorded_at"`
	Source      SnapshotSource     `json:"source" db:"source"`
	MetricsJSON json.RawMessage    `json:"-" db:"metrics"`
	Metrics     map[string]float64 `json:"metrics" db:"-"`
	Notes       *string            `json:"notes,omitempty" db:"notes"`
	CreatedAt   time.Time          `json:"created_at" db:"created_at"`
}

// EncodeMetrics serializes the sparse metric map for storage.
func (s *HealthSnapshot) EncodeMetrics() error {
	raw, err := json.Marshal(s.Metrics)
	if err != nil {
		return err
	}
	s.MetricsJSON = raw
	return nil
}

// DecodeMetrics restores the sparse metric map after a read.
func (s *HealthSnapshot) DecodeMetrics() error {
	if len(s.MetricsJSON) == 0 {
		s.Metrics = map[string]float64{}
		return nil
	}
	return json.Unmarshal(s.MetricsJSON, &s.Metrics)
}

type AddSnapshotRequest struct {
	RecordedAt *time.Time         `json:"recorded_at"`
	Metrics    map[string]float64 `json:"metrics" binding:"required"`
	Notes      *string            `json:"notes"`
}

// SnapshotRange bounds a listing by clinical time, inclusive on both ends.
type SnapshotRange struct {
	From *time.Time `json:"from" form:"from" time_format:"2006-01-02"`
	To   *time.Time `json:"to" form:"to" time_format:"2006-01-02"`
	Pagination
}
