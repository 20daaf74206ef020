package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwliu/vantage/internal/cluster"
	"github.com/jwliu/vantage/internal/contracts"
	"github.com/jwliu/vantage/internal/factors"
	"github.com/jwliu/vantage/internal/funnel"
	"github.com/jwliu/vantage/internal/regime"
	"github.com/jwliu/vantage/internal/scoring"
	"github.com/jwliu/vantage/internal/strategyconfig"
	"github.com/jwliu/vantage/internal/validation"
	"github.com/jwliu/vantage/pkg/logger"
)

type fakeSnapshotRepo struct {
	snapshots []*contracts.StockSnapshot
	err       error
}

func (f *fakeSnapshotRepo) GetUniverse(ctx context.Context, date time.Time) ([]*contracts.StockSnapshot, error) {
	return f.snapshots, f.err
}

func (f *fakeSnapshotRepo) GetBars(ctx context.Context, code string, date time.Time, limit int) ([]contracts.DailyBar, error) {
	return nil, nil
}

func (f *fakeSnapshotRepo) GetForwardBars(ctx context.Context, code string, date time.Time, limit int) ([]contracts.DailyBar, error) {
	return nil, nil
}

type fakeSectorRepo struct {
	sectors      []*contracts.SectorSnapshot
	constituents map[string][]string
}

func (f *fakeSectorRepo) GetSectorSnapshots(ctx context.Context, date time.Time) ([]*contracts.SectorSnapshot, error) {
	return f.sectors, nil
}

func (f *fakeSectorRepo) GetConstituents(ctx context.Context, date time.Time) (map[string][]string, error) {
	return f.constituents, nil
}

type fakeBreadthRepo struct {
	breadth *contracts.BreadthStats
	err     error
}

func (f *fakeBreadthRepo) GetBreadth(ctx context.Context, date time.Time) (*contracts.BreadthStats, error) {
	return f.breadth, f.err
}

type fakeRankingRepo struct {
	saved []*contracts.RankedList
}

func (f *fakeRankingRepo) SaveRankedList(ctx context.Context, list *contracts.RankedList) error {
	f.saved = append(f.saved, list)
	return nil
}

func (f *fakeRankingRepo) GetRankedList(ctx context.Context, date time.Time) (*contracts.RankedList, error) {
	if len(f.saved) == 0 {
		return nil, errors.New("not found")
	}
	return f.saved[len(f.saved)-1], nil
}

func testDate() time.Time {
	return time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)
}

func eligibleSnapshot(code string, rps float64) *contracts.StockSnapshot {
	return &contracts.StockSnapshot{
		Code: code,
		Date: testDate(),
		Open: 10, High: 10.6, Low: 9.9, Close: 10.6, PrevClose: 10,
		Volume:        5_000_000,
		Amount:        5e8,
		ChangePct:     3.0,
		VolumeRatio:   1.4,
		MA20:          10.2,
		RPS20:         rps,
		RPS50:         rps,
		ListingDays:   400,
		HistoryDays:   400,
		AvgAmount20:   3e8,
		StrongDays60:  2,
		MainNetInflow: 1e7,
		Concepts:      map[string]float64{"低空经济": 1},
	}
}

func testOrchestrator(snapRepo contracts.SnapshotRepository, rankRepo contracts.RankingRepository) *Orchestrator {
	cfg := strategyconfig.Default()
	cfg.Factors.MinSampleCount = 2
	log := logger.NewNop()

	return NewOrchestrator(
		regime.NewDetector(cfg.Regime, log),
		cluster.NewEngine(cfg.Cluster, log),
		funnel.NewFilter(cfg.Funnel, log),
		factors.NewEngine(cfg.Factors, log),
		scoring.NewEngine(cfg.Weights, cfg.Factors, log),
		validation.NewEngine(cfg.Validation, log),
		snapRepo,
		&fakeSectorRepo{
			sectors:      []*contracts.SectorSnapshot{{Name: "低空经济", Date: testDate(), MainNetInflow: 3e8, AvgChangePct: 2.0}},
			constituents: map[string][]string{"低空经济": {"000001", "000002"}},
		},
		&fakeBreadthRepo{breadth: &contracts.BreadthStats{
			Date:         testDate(),
			AdvanceCount: 2000, DeclineCount: 2100,
			LimitUpCount:  45,
			IndexReturn5D: 0.002,
		}},
		rankRepo,
		"cfg-hash-0001",
		log,
	)
}

func TestRun_FullPipeline(t *testing.T) {
	snapRepo := &fakeSnapshotRepo{snapshots: []*contracts.StockSnapshot{
		eligibleSnapshot("000001", 90),
		eligibleSnapshot("000002", 70),
		eligibleSnapshot("000003", 50),
	}}
	rankRepo := &fakeRankingRepo{}
	o := testOrchestrator(snapRepo, rankRepo)

	result, err := o.Run(context.Background(), RunConfig{
		Date:    testDate(),
		RunID:   "run_test",
		Persist: true,
	})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, []string{"load", "regime", "cluster", "funnel", "factors", "scoring", "validation", "persist"}, result.CompletedStages)

	require.NotNil(t, result.RankedList)
	assert.Equal(t, "balance", result.RankedList.Regime)
	assert.Equal(t, "cfg-hash-0001", result.RankedList.ConfigHash)
	assert.Len(t, result.RankedList.Candidates, 3)

	// Highest RPS ranks first.
	assert.Equal(t, "000001", result.RankedList.Candidates[0].Code)
	assert.Equal(t, 1, result.RankedList.Candidates[0].Rank)

	require.Len(t, rankRepo.saved, 1)
	assert.Equal(t, "run_test", rankRepo.saved[0].RunID)
}

func TestRun_NoPersistWhenDisabled(t *testing.T) {
	snapRepo := &fakeSnapshotRepo{snapshots: []*contracts.StockSnapshot{
		eligibleSnapshot("000001", 90),
		eligibleSnapshot("000002", 70),
	}}
	rankRepo := &fakeRankingRepo{}
	o := testOrchestrator(snapRepo, rankRepo)

	result, err := o.Run(context.Background(), RunConfig{Date: testDate(), RunID: "r1"})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Empty(t, rankRepo.saved)
	assert.NotContains(t, result.CompletedStages, "persist")
}

func TestRun_EmptyUniverseIsFatal(t *testing.T) {
	o := testOrchestrator(&fakeSnapshotRepo{}, &fakeRankingRepo{})

	result, err := o.Run(context.Background(), RunConfig{Date: testDate(), RunID: "r1"})
	require.Error(t, err)
	assert.False(t, result.Success)
}

func TestRun_MissingBreadthStillRuns(t *testing.T) {
	cfg := strategyconfig.Default()
	cfg.Factors.MinSampleCount = 2
	log := logger.NewNop()

	snapRepo := &fakeSnapshotRepo{snapshots: []*contracts.StockSnapshot{
		eligibleSnapshot("000001", 90),
		eligibleSnapshot("000002", 70),
	}}
	o := NewOrchestrator(
		regime.NewDetector(cfg.Regime, log),
		cluster.NewEngine(cfg.Cluster, log),
		funnel.NewFilter(cfg.Funnel, log),
		factors.NewEngine(cfg.Factors, log),
		scoring.NewEngine(cfg.Weights, cfg.Factors, log),
		validation.NewEngine(cfg.Validation, log),
		snapRepo,
		&fakeSectorRepo{},
		&fakeBreadthRepo{err: errors.New("breadth table empty")},
		&fakeRankingRepo{},
		"hash",
		log,
	)

	result, err := o.Run(context.Background(), RunConfig{Date: testDate(), RunID: "r1"})
	require.NoError(t, err)

	assert.True(t, result.Regime.Degraded)
	assert.Equal(t, "balance", result.RankedList.Regime)
}

func TestRun_Deterministic(t *testing.T) {
	snapshots := make([]*contracts.StockSnapshot, 0, 20)
	for i := 0; i < 20; i++ {
		s := eligibleSnapshot(fmt.Sprintf("%06d", i+1), float64(i*5))
		snapshots = append(snapshots, s)
	}

	run := func() *contracts.RankedList {
		o := testOrchestrator(&fakeSnapshotRepo{snapshots: snapshots}, &fakeRankingRepo{})
		result, err := o.Run(context.Background(), RunConfig{Date: testDate(), RunID: "r"})
		require.NoError(t, err)
		return result.RankedList
	}

	first := run()
	second := run()

	require.Equal(t, len(first.Candidates), len(second.Candidates))
	for i := range first.Candidates {
		assert.Equal(t, first.Candidates[i].Code, second.Candidates[i].Code)
		assert.Equal(t, first.Candidates[i].Adjusted, second.Candidates[i].Adjusted)
	}
}
