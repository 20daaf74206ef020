package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/jwliu/vantage/internal/cluster"
	"github.com/jwliu/vantage/internal/contracts"
	"github.com/jwliu/vantage/internal/factors"
	"github.com/jwliu/vantage/internal/funnel"
	"github.com/jwliu/vantage/internal/regime"
	"github.com/jwliu/vantage/internal/scoring"
	"github.com/jwliu/vantage/internal/validation"
	"github.com/jwliu/vantage/pkg/logger"
)

// Orchestrator runs the daily selection pipeline:
// regime → cluster → funnel → factors → scoring → validation.
type Orchestrator struct {
	detector  *regime.Detector
	clusterer *cluster.Engine
	clusters  *cluster.Cache
	filter    *funnel.Filter
	factoring *factors.Engine
	scorer    *scoring.Engine
	validator *validation.Engine

	snapshotRepo contracts.SnapshotRepository
	sectorRepo   contracts.SectorRepository
	breadthRepo  contracts.BreadthRepository
	rankingRepo  contracts.RankingRepository

	configHash string
	logger     *logger.Logger
}

// RunConfig holds per-run parameters
type RunConfig struct {
	Date      time.Time
	RunID     string
	GitCommit string
	// Persist controls whether the ranked list is written out.
	// Backtest replays leave it off.
	Persist bool
}

// RunResult holds one pipeline run's full output
type RunResult struct {
	RunID           string
	Date            time.Time
	Success         bool
	Error           error
	CompletedStages []string

	Regime     *regime.Result
	Clusters   *contracts.ClusterAssignment
	Universe   *contracts.Universe
	FactorSet  *contracts.FactorSet
	RankedList *contracts.RankedList
	Duration   time.Duration
}

// NewOrchestrator creates a pipeline orchestrator
func NewOrchestrator(
	detector *regime.Detector,
	clusterer *cluster.Engine,
	filter *funnel.Filter,
	factoring *factors.Engine,
	scorer *scoring.Engine,
	validator *validation.Engine,
	snapshotRepo contracts.SnapshotRepository,
	sectorRepo contracts.SectorRepository,
	breadthRepo contracts.BreadthRepository,
	rankingRepo contracts.RankingRepository,
	configHash string,
	log *logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		detector:     detector,
		clusterer:    clusterer,
		clusters:     cluster.NewCache(),
		filter:       filter,
		factoring:    factoring,
		scorer:       scorer,
		validator:    validator,
		snapshotRepo: snapshotRepo,
		sectorRepo:   sectorRepo,
		breadthRepo:  breadthRepo,
		rankingRepo:  rankingRepo,
		configHash:   configHash,
		logger:       log,
	}
}

// Run executes the full pipeline for one trade date.
func (o *Orchestrator) Run(ctx context.Context, config RunConfig) (*RunResult, error) {
	start := time.Now()

	result := &RunResult{
		RunID:           config.RunID,
		Date:            config.Date,
		CompletedStages: make([]string, 0, 6),
	}

	o.logger.WithFields(map[string]interface{}{
		"run_id": config.RunID,
		"date":   config.Date.Format("2006-01-02"),
	}).Info("Starting pipeline run")

	// Load the day's snapshots. An empty universe is fatal: nothing
	// downstream can recover from it.
	snapshots, err := o.loadSnapshots(ctx, config.Date)
	if err != nil {
		result.Error = fmt.Errorf("load snapshots: %w", err)
		return result, result.Error
	}
	result.CompletedStages = append(result.CompletedStages, "load")

	// Regime detection tolerates missing breadth.
	result.Regime = o.detectRegime(ctx, config.Date)
	result.CompletedStages = append(result.CompletedStages, "regime")

	sectors, constituents := o.loadSectors(ctx, config.Date)
	result.Clusters = o.clusters.GetOrBuild(config.Date, func() *contracts.ClusterAssignment {
		return o.clusterer.Build(config.Date, sectors, constituents)
	})
	result.CompletedStages = append(result.CompletedStages, "cluster")

	result.Universe = o.filter.Apply(config.Date, snapshots)
	result.CompletedStages = append(result.CompletedStages, "funnel")
	if result.Universe.Count() == 0 {
		result.Error = fmt.Errorf("no survivors for %s", config.Date.Format("2006-01-02"))
		return result, result.Error
	}

	result.FactorSet, err = o.factoring.Build(ctx, config.Date, result.Universe, snapshots, sectors, result.Clusters)
	if err != nil {
		result.Error = fmt.Errorf("factor build: %w", err)
		return result, result.Error
	}
	result.CompletedStages = append(result.CompletedStages, "factors")

	scored := o.scorer.Score(config.Date, result.Regime.Regime.String(), result.FactorSet)
	result.CompletedStages = append(result.CompletedStages, "scoring")

	validated := o.validator.Validate(scored, snapshots, sectors, result.Clusters)
	result.CompletedStages = append(result.CompletedStages, "validation")

	result.RankedList = &contracts.RankedList{
		Date:       config.Date,
		Regime:     result.Regime.Regime.String(),
		Candidates: validated,
		RunID:      config.RunID,
		ConfigHash: o.configHash,
	}

	if config.Persist && o.rankingRepo != nil {
		if err := o.rankingRepo.SaveRankedList(ctx, result.RankedList); err != nil {
			result.Error = fmt.Errorf("save ranked list: %w", err)
			return result, result.Error
		}
		result.CompletedStages = append(result.CompletedStages, "persist")
	}

	result.Success = true
	result.Duration = time.Since(start)

	o.logger.WithFields(map[string]interface{}{
		"run_id":     config.RunID,
		"regime":     result.RankedList.Regime,
		"candidates": len(validated),
		"duration":   result.Duration.Seconds(),
	}).Info("Pipeline run completed")

	return result, nil
}

// InvalidateClusters drops the cached cluster assignment so the next
// run rebuilds it.
func (o *Orchestrator) InvalidateClusters() {
	o.clusters.Invalidate()
}

func (o *Orchestrator) loadSnapshots(ctx context.Context, date time.Time) (map[string]*contracts.StockSnapshot, error) {
	rows, err := o.snapshotRepo.GetUniverse(ctx, date)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("empty universe for %s", date.Format("2006-01-02"))
	}

	snapshots := make(map[string]*contracts.StockSnapshot, len(rows))
	skipped := 0
	for _, snap := range rows {
		if !snap.Valid() {
			skipped++
			continue
		}
		snapshots[snap.Code] = snap
	}
	if skipped > 0 {
		o.logger.WithFields(map[string]interface{}{
			"date":    date.Format("2006-01-02"),
			"skipped": skipped,
		}).Warn("Skipped invalid snapshots")
	}
	return snapshots, nil
}

func (o *Orchestrator) detectRegime(ctx context.Context, date time.Time) *regime.Result {
	breadth, err := o.breadthRepo.GetBreadth(ctx, date)
	if err != nil {
		o.logger.WithError(err).Warn("Breadth lookup failed")
		breadth = nil
	}
	return o.detector.Detect(date, breadth)
}

// loadSectors degrades to empty inputs on error: the concept factor
// zeroes out but the run continues.
func (o *Orchestrator) loadSectors(ctx context.Context, date time.Time) ([]contracts.SectorSnapshot, map[string][]string) {
	rows, err := o.sectorRepo.GetSectorSnapshots(ctx, date)
	if err != nil {
		o.logger.WithError(err).Warn("Sector snapshot lookup failed")
		return nil, nil
	}
	sectors := make([]contracts.SectorSnapshot, 0, len(rows))
	for _, s := range rows {
		if s != nil {
			sectors = append(sectors, *s)
		}
	}

	constituents, err := o.sectorRepo.GetConstituents(ctx, date)
	if err != nil {
		o.logger.WithError(err).Warn("Constituent lookup failed")
		constituents = nil
	}
	return sectors, constituents
}

// GenerateRunID generates a unique run ID
func GenerateRunID() string {
	return fmt.Sprintf("run_%s", time.Now().Format("20060102_150405"))
}
