package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/jwliu/vantage/internal/marketdata"
	"github.com/jwliu/vantage/pkg/logger"
)

// Ranked lists older than this are no longer queryable through the API
// and only inflate the tables.
const rankedListRetention = 180 * 24 * time.Hour

// MaintenanceJob prunes aged ranked lists weekly
type MaintenanceJob struct {
	rankingRepo *marketdata.RankingRepository
	logger      *logger.Logger
}

// NewMaintenanceJob creates a new maintenance job
func NewMaintenanceJob(rankingRepo *marketdata.RankingRepository, log *logger.Logger) *MaintenanceJob {
	return &MaintenanceJob{
		rankingRepo: rankingRepo,
		logger:      log,
	}
}

// Name returns the job name
func (j *MaintenanceJob) Name() string {
	return "maintenance"
}

// Schedule runs Sunday 03:00
func (j *MaintenanceJob) Schedule() string {
	return "0 0 3 * * SUN"
}

// Run prunes ranked lists past the retention window
func (j *MaintenanceJob) Run(ctx context.Context) error {
	cutoff := time.Now().Add(-rankedListRetention)

	removed, err := j.rankingRepo.PruneBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("prune ranked lists: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"cutoff":  cutoff.Format("2006-01-02"),
		"removed": removed,
	}).Info("Maintenance completed")

	return nil
}
