package analytics

import (
	"context"
	"time"

	"github.com/openphms/admin-api/internal/model"
	"github.com/openphms/admin-api/internal/repository"
)

type Service struct {
	stats repository.StatsRepository
}

func NewService(stats repository.StatsRepository) *Service {
	return &Service{stats: stats}
}

// Overview returns the dashboard counters. "Weekly" means snapshots recorded
// in the trailing seven days.
func (s *Service) Overview(ctx context.Context) (*model.OverviewStats, error) {
	weekStart := time.Now().UTC().AddDate(0, 0, -7)
	return s.stats.Overview(ctx, weekStart)
}
