package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/openphms/admin-api/internal/model"
	"github.com/openphms/admin-api/internal/repository"
	apperrors "github.com/openphms/admin-api/pkg/errors"
)

type statsRepository struct {
	db *sqlx.DB
}

func NewStatsRepository(db *sqlx.DB) repository.StatsRepository {
	return &statsRepository{db: db}
}

func (r *statsRepository) Overview(ctx context.Context, weekStart time.Time) (*model.OverviewStats, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM patients) AS total_patients,
			(SELECT COUNT(*) FROM health_snapshots) AS total_snapshots,
			(SELECT COUNT(*) FROM health_snapshots WHERE recorded_at >= $1) AS snapshots_weekly,
			(SELECT COUNT(*) FROM admins WHERE is_active) AS total_admins
	`
	var stats model.OverviewStats
	if err := r.db.GetContext(ctx, &stats, query, weekStart.UTC()); err != nil {
		return nil, apperrors.Storage(fmt.Errorf("failed to collect overview stats: %w", err))
	}
	return &stats, nil
}
