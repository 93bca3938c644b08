// Package chart reshapes a patient's snapshot history into per-metric time
// series. Snapshots are sparse; a metric absent from a snapshot simply
// contributes no point, it is never zero-filled.
package chart

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/openphms/admin-api/internal/metric"
	"github.com/openphms/admin-api/internal/model"
	"github.com/openphms/admin-api/internal/service/record"
	apperrors "github.com/openphms/admin-api/pkg/errors"
)

// Point is one observed value of a metric.
type Point struct {
	RecordedAt string  `json:"recorded_at"`
	Value      float64 `json:"value"`
}

// Series holds the chart data for one metric group.
type Series struct {
	Group   string             `json:"group"`
	Metrics map[string][]Point `json:"metrics"`
}

const pointTimeLayout = "2006-01-02T15:04:05Z07:00"

type Service struct {
	records *record.Service
}

func NewService(records *record.Service) *Service {
	return &Service{records: records}
}

// BuildSeries returns the time series for every catalog metric in group that
// the patient has at least one observation for. Points come out in recorded
// order; metrics with no observations are omitted entirely.
func (s *Service) BuildSeries(ctx context.Context, patientID uuid.UUID, group string) (*Series, error) {
	if !metric.ValidCategory(group) {
		return nil, apperrors.ValidationField("group", "unknown metric group: "+group)
	}

	snapshots, err := s.listAll(ctx, patientID)
	if err != nil {
		return nil, err
	}

	wanted := make(map[string]struct{})
	for _, name := range metric.ByCategory(metric.Category(group)) {
		wanted[name] = struct{}{}
	}

	series := &Series{Group: group, Metrics: make(map[string][]Point)}
	for _, snap := range snapshots {
		for name, value := range snap.Metrics {
			if _, ok := wanted[name]; !ok {
				continue
			}
			series.Metrics[name] = append(series.Metrics[name], Point{
				RecordedAt: snap.RecordedAt.Format(pointTimeLayout),
				Value:      value,
			})
		}
	}

	log.Debug().
		Str("patient_id", patientID.String()).
		Str("group", group).
		Int("metrics", len(series.Metrics)).
		Msg("chart series built")
	return series, nil
}

// listAll pages through the full snapshot history; the repository orders by
// recorded_at then id, so appended points stay chronological.
func (s *Service) listAll(ctx context.Context, patientID uuid.UUID) ([]*model.HealthSnapshot, error) {
	var all []*model.HealthSnapshot
	rng := model.SnapshotRange{}
	rng.Page = 1
	rng.PageSize = 200
	for {
		batch, err := s.records.ListSnapshots(ctx, patientID, rng)
		if err != nil {
			return nil, err
		}
		all = append(all, batch...)
		if len(batch) < rng.PageSize {
			return all, nil
		}
		rng.Page++
	}
}
