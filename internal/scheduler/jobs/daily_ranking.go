package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/jwliu/vantage/internal/audit"
	"github.com/jwliu/vantage/internal/ingest"
	"github.com/jwliu/vantage/internal/marketdata"
	"github.com/jwliu/vantage/internal/pipeline"
	"github.com/jwliu/vantage/internal/strategyconfig"
	"github.com/jwliu/vantage/pkg/logger"
)

// DailyRankingJob collects the day's market data and produces the
// ranked list after the close.
type DailyRankingJob struct {
	collector    *ingest.Collector
	orchestrator *pipeline.Orchestrator
	calendarRepo *marketdata.CalendarRepository
	auditRepo    *audit.Repository
	snapshotFn   func() (*strategyconfig.DecisionSnapshot, error)
	logger       *logger.Logger
}

// NewDailyRankingJob creates a new daily ranking job. snapshotFn
// builds the decision snapshot recorded alongside each persisted run.
func NewDailyRankingJob(
	collector *ingest.Collector,
	orchestrator *pipeline.Orchestrator,
	calendarRepo *marketdata.CalendarRepository,
	auditRepo *audit.Repository,
	snapshotFn func() (*strategyconfig.DecisionSnapshot, error),
	log *logger.Logger,
) *DailyRankingJob {
	return &DailyRankingJob{
		collector:    collector,
		orchestrator: orchestrator,
		calendarRepo: calendarRepo,
		auditRepo:    auditRepo,
		snapshotFn:   snapshotFn,
		logger:       log,
	}
}

// Name returns the job name
func (j *DailyRankingJob) Name() string {
	return "daily_ranking"
}

// Schedule runs at 15:45 CST, after the A-share close
func (j *DailyRankingJob) Schedule() string {
	return "0 45 15 * * MON-FRI"
}

// Run collects data and executes the ranking pipeline
func (j *DailyRankingJob) Run(ctx context.Context) error {
	date := time.Now()

	open, err := j.calendarRepo.IsTradingDay(ctx, date)
	if err != nil {
		return fmt.Errorf("check trading day: %w", err)
	}
	if !open {
		j.logger.WithField("date", date.Format("2006-01-02")).Info("Not a trading day, skipping")
		return nil
	}

	j.logger.Info("Starting scheduled ranking run")

	if _, err := j.collector.CollectDaily(ctx, date, ingest.Config{Workers: 5}); err != nil {
		return fmt.Errorf("collect daily data: %w", err)
	}

	// Sector membership may have shifted, rebuild the board mapping.
	j.orchestrator.InvalidateClusters()

	result, err := j.orchestrator.Run(ctx, pipeline.RunConfig{
		Date:    date,
		RunID:   pipeline.GenerateRunID(),
		Persist: true,
	})
	if err != nil {
		return fmt.Errorf("pipeline run: %w", err)
	}

	snap, err := j.snapshotFn()
	if err != nil {
		return fmt.Errorf("build decision snapshot: %w", err)
	}
	if err := j.auditRepo.SaveDecisionSnapshot(ctx, result.RunID, snap); err != nil {
		return fmt.Errorf("save decision snapshot: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"run_id":     result.RunID,
		"regime":     result.Regime.Regime.String(),
		"candidates": len(result.RankedList.Candidates),
	}).Info("Scheduled ranking run completed")

	return nil
}
