package funnel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwliu/vantage/internal/contracts"
	"github.com/jwliu/vantage/internal/strategyconfig"
	"github.com/jwliu/vantage/pkg/logger"
)

func testFilter() *Filter {
	return NewFilter(strategyconfig.Default().Funnel, logger.NewNop())
}

func testDate() time.Time {
	return time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)
}

// passing returns a snapshot that survives every default stage.
func passing(code string) *contracts.StockSnapshot {
	return &contracts.StockSnapshot{
		Code:      code,
		Date:      testDate(),
		Open:      10, High: 10.8, Low: 9.9, Close: 10.6, PrevClose: 10,
		Volume:       5_000_000,
		Amount:       5e8,
		ListingDays:  400,
		HistoryDays:  400,
		AvgAmount20:  3e8,
		StrongDays60: 3,
		VolumeRatio:  1.4,
		MA20:         10.2,
	}
}

func TestApply_Survivor(t *testing.T) {
	f := testFilter()

	u := f.Apply(testDate(), map[string]*contracts.StockSnapshot{
		"000001": passing("000001"),
	})

	assert.True(t, u.Contains("000001"))
	assert.Empty(t, u.Rejected)
}

func TestApply_StageRejections(t *testing.T) {
	f := testFilter()

	tests := []struct {
		name   string
		mutate func(*contracts.StockSnapshot)
		stage  contracts.FunnelStage
	}{
		{"st flag", func(s *contracts.StockSnapshot) { s.IsST = true }, contracts.StageEligibility},
		{"fresh listing", func(s *contracts.StockSnapshot) { s.ListingDays = 30 }, contracts.StageEligibility},
		{"already limit up", func(s *contracts.StockSnapshot) { s.IsLimitUp = true }, contracts.StageEligibility},
		{"thin turnover", func(s *contracts.StockSnapshot) { s.AvgAmount20 = 5e7 }, contracts.StageLiquidity},
		{"dormant", func(s *contracts.StockSnapshot) { s.StrongDays60 = 0 }, contracts.StageLiquidity},
		{"volume blowout", func(s *contracts.StockSnapshot) { s.VolumeRatio = 4.0 }, contracts.StageSetupShape},
		{"below key ma", func(s *contracts.StockSnapshot) { s.Close = 9.0 }, contracts.StageSetupShape},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := passing("000001")
			tt.mutate(snap)

			u := f.Apply(testDate(), map[string]*contracts.StockSnapshot{"000001": snap})

			assert.False(t, u.Contains("000001"))
			got, ok := u.Rejected["000001"]
			require.True(t, ok)
			assert.Equal(t, tt.stage, got)
		})
	}
}

func TestApply_EarliestStageWins(t *testing.T) {
	f := testFilter()

	// Fails eligibility AND setup shape; only the earliest is recorded.
	snap := passing("000001")
	snap.IsST = true
	snap.VolumeRatio = 9.0

	u := f.Apply(testDate(), map[string]*contracts.StockSnapshot{"000001": snap})

	assert.Equal(t, contracts.StageEligibility, u.Rejected["000001"])
}

func TestApply_OutputIsSubset(t *testing.T) {
	f := testFilter()

	input := map[string]*contracts.StockSnapshot{
		"000001": passing("000001"),
		"000002": passing("000002"),
		"000003": passing("000003"),
	}
	input["000002"].IsST = true
	input["000003"].AvgAmount20 = 0

	u := f.Apply(testDate(), input)

	assert.Equal(t, 1, u.Count())
	for _, code := range u.Stocks {
		_, ok := input[code]
		assert.True(t, ok)
	}
	// Every rejection names a real stage.
	for code, stage := range u.Rejected {
		assert.NotEqual(t, "unknown", stage.String(), code)
		assert.Less(t, int(stage), int(contracts.StageSurvived), code)
	}
}

func TestApply_SkipsInvalidSnapshots(t *testing.T) {
	f := testFilter()

	bad := passing("000001")
	bad.High = 5 // high < low

	u := f.Apply(testDate(), map[string]*contracts.StockSnapshot{"000001": bad})

	assert.Equal(t, 0, u.Count())
	// Invalid bars are skipped, not funnel-rejected.
	assert.Empty(t, u.Rejected)
}

func TestApply_DeterministicOrder(t *testing.T) {
	f := testFilter()

	input := map[string]*contracts.StockSnapshot{
		"600519": passing("600519"),
		"000001": passing("000001"),
		"300750": passing("300750"),
	}

	u := f.Apply(testDate(), input)

	assert.Equal(t, []string{"000001", "300750", "600519"}, u.Stocks)
}
