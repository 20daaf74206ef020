package ingest

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwliu/vantage/internal/contracts"
	"github.com/jwliu/vantage/internal/external/eastmoney"
)

func historyBars(n int, close float64) []contracts.DailyBar {
	bars := make([]contracts.DailyBar, n)
	day := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		bars[i] = contracts.DailyBar{
			Date:   day.AddDate(0, 0, i),
			Open:   close,
			High:   close + 0.2,
			Low:    close - 0.2,
			Close:  close,
			Volume: 1_000_000,
			Amount: close * 1_000_000,
		}
	}
	return bars
}

func TestLimitUpPct(t *testing.T) {
	assert.Equal(t, 0.10, limitUpPct("600519", "贵州茅台"))
	assert.Equal(t, 0.20, limitUpPct("300750", "宁德时代"))
	assert.Equal(t, 0.20, limitUpPct("688111", "金山办公"))
	assert.Equal(t, 0.05, limitUpPct("600123", "ST兰花"))
}

func TestEnrichFromHistory(t *testing.T) {
	bars := historyBars(61, 10.0)
	snap := &contracts.StockSnapshot{
		Code:      "600519",
		Name:      "贵州茅台",
		Close:     10.0,
		PrevClose: 10.0,
	}

	enrichFromHistory(snap, bars)

	assert.Equal(t, 60, snap.HistoryDays)
	assert.Equal(t, 61, snap.ListingDays)
	assert.False(t, snap.IsST)
	assert.InDelta(t, 10.0, snap.MA5, 1e-9)
	assert.InDelta(t, 10.0, snap.MA20, 1e-9)
	assert.InDelta(t, 10.0, snap.MA60, 1e-9)
	assert.InDelta(t, 1e7, snap.AvgAmount20, 1e-3)
	assert.Equal(t, 0, snap.StrongDays60)
	assert.InDelta(t, 11.0, snap.LimitUpPrice, 1e-9)
	assert.False(t, snap.IsLimitUp)
	// Uniform range: recent and wide windows match, so no contraction.
	assert.InDelta(t, 0.0, snap.VCPTightness, 1e-9)
	// Flat volume history: ratio one.
	assert.InDelta(t, 1.0, snap.VolumeRatio, 1e-9)
}

func TestEnrichShortHistoryZeroesTrailing(t *testing.T) {
	bars := historyBars(8, 10.0)
	snap := &contracts.StockSnapshot{Code: "600519", Name: "x", Close: 10.0, PrevClose: 10.0}

	enrichFromHistory(snap, bars)

	assert.Equal(t, 7, snap.HistoryDays)
	assert.NotZero(t, snap.MA5)
	assert.Zero(t, snap.MA20)
	assert.Zero(t, snap.MA60)
	assert.Zero(t, snap.AvgAmount20)
	assert.Zero(t, snap.VCPTightness)
}

func TestEnrichLimitUpDetection(t *testing.T) {
	bars := historyBars(61, 11.0)
	snap := &contracts.StockSnapshot{Code: "000001", Name: "平安银行", Close: 11.0, PrevClose: 10.0}

	enrichFromHistory(snap, bars)

	assert.InDelta(t, 11.0, snap.LimitUpPrice, 1e-9)
	assert.True(t, snap.IsLimitUp)
}

func TestStrongDays(t *testing.T) {
	bars := historyBars(61, 10.0)
	// Two 10% jumps inside the window.
	bars[30].Close = 11.0
	bars[31].Close = 12.1
	// Reset to avoid cascading returns afterwards.
	for i := 32; i < len(bars); i++ {
		bars[i].Close = 12.1
	}

	assert.Equal(t, 2, strongDays(bars, 60))
}

func TestVCPTightnessContractedRange(t *testing.T) {
	bars := historyBars(61, 10.0)
	// Widen the early part of the 60-day window.
	for i := 1; i < 30; i++ {
		bars[i].High = 14.0
		bars[i].Low = 8.0
	}

	got := vcpTightness(bars)
	// Recent 10-day range 0.4 over a 6.0 wide window.
	assert.InDelta(t, 1.0-0.4/6.0, got, 1e-9)
}

func TestVolumeRatioFallback(t *testing.T) {
	bars := historyBars(10, 10.0)
	bars[len(bars)-1].Volume = 3_000_000

	assert.InDelta(t, 3.0, volumeRatio(bars), 1e-9)
}

func TestNDayReturn(t *testing.T) {
	bars := historyBars(30, 10.0)
	bars[len(bars)-1].Close = 12.0

	got := nDayReturn(bars, 20)
	assert.InDelta(t, 0.2, got, 1e-9)

	assert.True(t, math.IsNaN(nDayReturn(bars, 30)))
}

func TestAssignRPSPercentiles(t *testing.T) {
	snapshots := map[string]*contracts.StockSnapshot{
		"000001": {Code: "000001"},
		"000002": {Code: "000002"},
		"000003": {Code: "000003"},
	}
	returns := map[string]float64{
		"000001": 0.30,
		"000002": -0.10,
		"000003": 0.05,
	}

	assignRPS(snapshots, returns, 20)

	assert.InDelta(t, 100.0, snapshots["000001"].RPS20, 1e-9)
	assert.InDelta(t, 0.0, snapshots["000002"].RPS20, 1e-9)
	assert.InDelta(t, 50.0, snapshots["000003"].RPS20, 1e-9)
}

func TestAssignRPSSkipsShortHistory(t *testing.T) {
	snapshots := map[string]*contracts.StockSnapshot{
		"000001": {Code: "000001"},
		"000002": {Code: "000002"},
	}
	returns := map[string]float64{
		"000001": 0.10,
		"000002": math.NaN(),
	}

	assignRPS(snapshots, returns, 50)

	assert.InDelta(t, 100.0, snapshots["000001"].RPS50, 1e-9)
	assert.Zero(t, snapshots["000002"].RPS50)
}

func TestIndexReturn(t *testing.T) {
	bars := []eastmoney.IndexBar{
		{Close: 3000}, {Close: 3010}, {Close: 3020},
		{Close: 3030}, {Close: 3040}, {Close: 3060},
	}

	assert.InDelta(t, (3060-3040)/3040.0*100, indexReturn(bars, 1), 1e-9)
	assert.InDelta(t, 2.0, indexReturn(bars, 5), 1e-9)
	assert.Zero(t, indexReturn(bars[:3], 5))
}

func TestBuildSnapshotTypedShape(t *testing.T) {
	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	q := eastmoney.Quote{
		Code: "600519", Name: "贵州茅台",
		Open: 10.1, High: 10.8, Low: 10.0, Close: 10.6, PrevClose: 10.0,
		ChangePct: 6.0, Volume: 2_000_000, Amount: 2.1e9,
		TurnoverRate: 3.5, VolumeRatio: 1.8,
	}
	flow := eastmoney.MoneyFlow{
		Code: "600519", MainNet: 1.2e8, SuperLargeNet: 0.8e8,
		LargeNet: 0.4e8, MediumNet: -0.1e8, SmallNet: -1.1e8,
	}
	concepts := map[string]float64{"白酒": 1}

	snap := buildSnapshot(date, q, flow, concepts)
	require.True(t, snap.Valid())

	assert.Equal(t, "600519", snap.Code)
	assert.Equal(t, date, snap.Date)
	assert.InDelta(t, 1.2e8, snap.MainNetInflow, 1e-9)
	assert.InDelta(t, 0.8e8, snap.SuperLargeNetInflow, 1e-9)
	assert.Equal(t, concepts, snap.Concepts)
}

func TestBuildSnapshotMissingFlowIsZero(t *testing.T) {
	q := eastmoney.Quote{
		Code: "000001", Name: "平安银行",
		Open: 10, High: 10.5, Low: 9.9, Close: 10.2, PrevClose: 10.0,
		Volume: 1, Amount: 1,
	}

	snap := buildSnapshot(time.Now(), q, eastmoney.MoneyFlow{}, nil)
	require.True(t, snap.Valid())
	assert.Zero(t, snap.MainNetInflow)
	assert.Nil(t, snap.Concepts)
}
