package commands

import (
	"fmt"

	"github.com/jwliu/vantage/internal/audit"
	"github.com/jwliu/vantage/internal/backtest"
	"github.com/jwliu/vantage/internal/cluster"
	"github.com/jwliu/vantage/internal/external/eastmoney"
	"github.com/jwliu/vantage/internal/factors"
	"github.com/jwliu/vantage/internal/funnel"
	"github.com/jwliu/vantage/internal/ingest"
	"github.com/jwliu/vantage/internal/marketdata"
	"github.com/jwliu/vantage/internal/pipeline"
	"github.com/jwliu/vantage/internal/regime"
	"github.com/jwliu/vantage/internal/scoring"
	"github.com/jwliu/vantage/internal/strategyconfig"
	"github.com/jwliu/vantage/internal/validation"
	"github.com/jwliu/vantage/pkg/config"
	"github.com/jwliu/vantage/pkg/database"
	"github.com/jwliu/vantage/pkg/httputil"
	"github.com/jwliu/vantage/pkg/logger"
	"github.com/jwliu/vantage/pkg/redis"
)

// app wires the shared collaborators every command needs. Commands
// build it once in their RunE and defer Close.
type app struct {
	cfg *config.Config
	log *logger.Logger
	db  *database.DB

	strategy     *strategyconfig.Config
	strategyYAML []byte
	configHash   string

	snapshotRepo *marketdata.SnapshotRepository
	sectorRepo   *marketdata.SectorRepository
	breadthRepo  *marketdata.BreadthRepository
	calendarRepo *marketdata.CalendarRepository
	rankingRepo  *marketdata.RankingRepository
	backtestRepo *marketdata.BacktestRepository
	auditRepo    *audit.Repository

	clusterer    *cluster.Engine
	orchestrator *pipeline.Orchestrator
	backtester   *backtest.Engine
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if strategyFile != "" {
		cfg.StrategyFile = strategyFile
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	log := logger.New(cfg)

	strategy, yamlData, err := strategyconfig.Load(cfg.StrategyFile)
	if err != nil {
		return nil, fmt.Errorf("load strategy %s: %w", cfg.StrategyFile, err)
	}
	configHash, err := strategyconfig.Hash(strategy)
	if err != nil {
		return nil, fmt.Errorf("hash strategy: %w", err)
	}

	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	a := &app{
		cfg:          cfg,
		log:          log,
		db:           db,
		strategy:     strategy,
		strategyYAML: yamlData,
		configHash:   configHash,

		snapshotRepo: marketdata.NewSnapshotRepository(db.Pool),
		sectorRepo:   marketdata.NewSectorRepository(db.Pool),
		breadthRepo:  marketdata.NewBreadthRepository(db.Pool),
		calendarRepo: marketdata.NewCalendarRepository(db.Pool),
		rankingRepo:  marketdata.NewRankingRepository(db.Pool),
		backtestRepo: marketdata.NewBacktestRepository(db.Pool),
		auditRepo:    audit.NewRepository(db.Pool),
	}

	a.clusterer = cluster.NewEngine(strategy.Cluster, log)
	a.orchestrator = pipeline.NewOrchestrator(
		regime.NewDetector(strategy.Regime, log),
		a.clusterer,
		funnel.NewFilter(strategy.Funnel, log),
		factors.NewEngine(strategy.Factors, log),
		scoring.NewEngine(strategy.Weights, strategy.Factors, log),
		validation.NewEngine(strategy.Validation, log),
		a.snapshotRepo,
		a.sectorRepo,
		a.breadthRepo,
		a.rankingRepo,
		configHash,
		log,
	)
	a.backtester = backtest.NewEngine(
		a.orchestrator,
		a.snapshotRepo,
		a.calendarRepo,
		strategy.Backtest,
		configHash,
		log,
	)

	return a, nil
}

// decisionSnapshot builds the reproducibility record for a run.
func (a *app) decisionSnapshot() (*strategyconfig.DecisionSnapshot, error) {
	return strategyconfig.NewDecisionSnapshot(a.strategy, a.strategyYAML, a.cfg.GitCommit)
}

// newCollector builds the Eastmoney-backed ingestion collector.
func (a *app) newCollector() *ingest.Collector {
	httpClient := httputil.New(a.log, a.cfg.Eastmoney.Timeout)
	client := eastmoney.NewClient(a.cfg.Eastmoney, httpClient, a.log)
	return ingest.NewCollector(client, a.snapshotRepo, a.sectorRepo, a.breadthRepo, a.log)
}

// newRedis connects the shared Redis client. A disabled client is
// still usable; the cache layer degrades to pass-through.
func (a *app) newRedis() (*redis.Client, error) {
	return redis.New(a.cfg)
}

func (a *app) Close() {
	a.db.Close()
}
