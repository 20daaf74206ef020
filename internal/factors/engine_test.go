package factors

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwliu/vantage/internal/contracts"
	"github.com/jwliu/vantage/internal/strategyconfig"
	"github.com/jwliu/vantage/pkg/logger"
)

func testEngine() *Engine {
	return NewEngine(strategyconfig.Factors{
		MinHistoryDays: 60,
		MinSampleCount: 2,
		ZScoreClip:     3.0,
		Workers:        4,
	}, logger.NewNop())
}

func testDate() time.Time {
	return time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)
}

func snap(code string, historyDays int) *contracts.StockSnapshot {
	return &contracts.StockSnapshot{
		Code:      code,
		Date:      testDate(),
		Open:      10, High: 11, Low: 9.8, Close: 10.5, PrevClose: 10,
		Volume:      1_000_000,
		Amount:      3e8,
		HistoryDays: historyDays,
		MA20:        10,
		VolumeRatio: 1.2,
	}
}

func TestBuild_ExcludesInsufficientHistory(t *testing.T) {
	e := testEngine()

	snapshots := map[string]*contracts.StockSnapshot{
		"000001": snap("000001", 120),
		"000002": snap("000002", 30), // below minimum
		"000003": snap("000003", 90),
	}
	universe := &contracts.Universe{
		Date:   testDate(),
		Stocks: []string{"000001", "000002", "000003"},
	}

	set, err := e.Build(context.Background(), testDate(), universe, snapshots, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, set.Count())
	_, ok := set.Get("000002")
	assert.False(t, ok)
	assert.Contains(t, set.Excluded["000002"], "insufficient history")
}

func TestBuild_ExcludesMissingSnapshot(t *testing.T) {
	e := testEngine()

	universe := &contracts.Universe{
		Date:   testDate(),
		Stocks: []string{"000001", "000099"},
	}
	snapshots := map[string]*contracts.StockSnapshot{
		"000001": snap("000001", 120),
	}

	set, err := e.Build(context.Background(), testDate(), universe, snapshots, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, set.Count())
	assert.Contains(t, set.Excluded, "000099")
}

func TestBuild_EmptyUniverseFails(t *testing.T) {
	e := testEngine()

	_, err := e.Build(context.Background(), testDate(), &contracts.Universe{Date: testDate()}, nil, nil, nil)
	assert.Error(t, err)
}

func TestZScores_Degenerate(t *testing.T) {
	e := testEngine()

	// Zero variance: everything standardizes to zero.
	z := e.zscores([]float64{5, 5, 5, 5})
	for _, v := range z {
		assert.Zero(t, v)
	}

	// Below minimum sample count.
	z = e.zscores([]float64{1})
	assert.Zero(t, z[0])
}

func TestZScores_Standardization(t *testing.T) {
	e := testEngine()

	z := e.zscores([]float64{10, 20, 30})
	assert.InDelta(t, -1.2247, z[0], 1e-3)
	assert.InDelta(t, 0, z[1], 1e-9)
	assert.InDelta(t, 1.2247, z[2], 1e-3)
}

func TestClip(t *testing.T) {
	e := testEngine()

	assert.Equal(t, 3.0, e.clip(7.5))
	assert.Equal(t, -3.0, e.clip(-4.1))
	assert.Equal(t, 1.5, e.clip(1.5))
}

func TestResonance_AggregatesVirtualBoards(t *testing.T) {
	e := testEngine()

	clusters := &contracts.ClusterAssignment{
		Date: testDate(),
		Canonical: map[string]string{
			"低空经济": "低空经济",
			"通用航空": "低空经济", // merged
			"光伏":   "光伏",
		},
	}
	sectors := []contracts.SectorSnapshot{
		{Name: "低空经济", MainNetInflow: 3e8},
		{Name: "通用航空", MainNetInflow: 2e8},
		{Name: "光伏", MainNetInflow: -1e8},
	}
	boardInflow := aggregateBoardInflow(sectors, clusters)
	assert.InDelta(t, 5e8, boardInflow["低空经济"], 1)

	s := snap("000001", 120)
	s.Concepts = map[string]float64{"低空经济": 1, "通用航空": 1, "光伏": 1}

	score, boards := e.resonance(s, boardInflow, clusters)
	// Merged concepts count once; negative-inflow boards contribute nothing.
	assert.InDelta(t, 5.0, score, 1e-9)
	assert.Equal(t, 1, boards)
}

func TestBuild_FactorsBounded(t *testing.T) {
	e := testEngine()

	snapshots := make(map[string]*contracts.StockSnapshot)
	codes := make([]string, 0, 10)
	for i := 0; i < 10; i++ {
		code := string(rune('a'+i)) + "00001"
		s := snap(code, 120)
		s.RPS20 = float64(i * 10)
		s.RPS50 = float64(100 - i*10)
		s.MainNetInflow = float64(i) * 1e7
		snapshots[code] = s
		codes = append(codes, code)
	}

	set, err := e.Build(context.Background(), testDate(), &contracts.Universe{
		Date:   testDate(),
		Stocks: codes,
	}, snapshots, nil, nil)
	require.NoError(t, err)
	require.Equal(t, 10, set.Count())

	for _, rec := range set.Records {
		assert.LessOrEqual(t, rec.Technical, 3.0)
		assert.GreaterOrEqual(t, rec.Technical, -3.0)
		assert.LessOrEqual(t, rec.Capital, 3.0)
		assert.GreaterOrEqual(t, rec.Capital, -3.0)
	}
}

func TestBuild_Deterministic(t *testing.T) {
	e := testEngine()

	snapshots := make(map[string]*contracts.StockSnapshot)
	codes := make([]string, 0, 6)
	for i := 0; i < 6; i++ {
		code := string(rune('a'+i)) + "00001"
		s := snap(code, 120)
		s.RPS20 = float64(i * 15)
		snapshots[code] = s
		codes = append(codes, code)
	}
	universe := &contracts.Universe{Date: testDate(), Stocks: codes}

	first, err := e.Build(context.Background(), testDate(), universe, snapshots, nil, nil)
	require.NoError(t, err)
	second, err := e.Build(context.Background(), testDate(), universe, snapshots, nil, nil)
	require.NoError(t, err)

	for code, rec := range first.Records {
		assert.Equal(t, rec.Technical, second.Records[code].Technical, code)
		assert.Equal(t, rec.Capital, second.Records[code].Capital, code)
		assert.Equal(t, rec.Concept, second.Records[code].Concept, code)
	}
}
