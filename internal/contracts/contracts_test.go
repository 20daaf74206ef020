package contracts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStockSnapshot_Valid(t *testing.T) {
	base := StockSnapshot{
		Code:      "600519",
		High:      1700,
		Low:       1650,
		Close:     1688,
		PrevClose: 1660,
		Volume:    25000,
	}

	tests := []struct {
		name   string
		mutate func(s *StockSnapshot)
		want   bool
	}{
		{"valid bar", func(s *StockSnapshot) {}, true},
		{"missing code", func(s *StockSnapshot) { s.Code = "" }, false},
		{"negative volume", func(s *StockSnapshot) { s.Volume = -1 }, false},
		{"high below low", func(s *StockSnapshot) { s.High = 1600 }, false},
		{"zero close", func(s *StockSnapshot) { s.Close = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := base
			tt.mutate(&s)
			assert.Equal(t, tt.want, s.Valid())
		})
	}
}

func TestStockSnapshot_UpperShadowRatio(t *testing.T) {
	// Close below open: shadow measured from open
	s := StockSnapshot{Open: 108, High: 110, Low: 100, Close: 102}
	assert.InDelta(t, 0.2, s.UpperShadowRatio(), 1e-9)

	// Close above open: shadow measured from close
	s = StockSnapshot{Open: 100, High: 110, Low: 100, Close: 105}
	assert.InDelta(t, 0.5, s.UpperShadowRatio(), 1e-9)

	// Flat bar has no shadow
	s = StockSnapshot{Open: 100, High: 100, Low: 100, Close: 100}
	assert.Zero(t, s.UpperShadowRatio())
}

func TestClusterAssignment_Resolve(t *testing.T) {
	ca := &ClusterAssignment{
		Date:      time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		Canonical: map[string]string{"AI算力": "人工智能", "人工智能": "人工智能"},
		Members:   map[string][]string{"人工智能": {"人工智能", "AI算力"}},
	}

	assert.Equal(t, "人工智能", ca.Resolve("AI算力"))
	assert.Equal(t, "人工智能", ca.Resolve("人工智能"))
	// Unknown concepts map to themselves so the mapping stays total
	assert.Equal(t, "量子科技", ca.Resolve("量子科技"))
	assert.Equal(t, 1, ca.BoardCount())
}

func TestFunnelStage_String(t *testing.T) {
	assert.Equal(t, "eligibility", StageEligibility.String())
	assert.Equal(t, "liquidity", StageLiquidity.String())
	assert.Equal(t, "setup_shape", StageSetupShape.String())
	assert.Equal(t, "survived", StageSurvived.String())
	assert.Equal(t, "unknown", FunnelStage(99).String())
}

func TestBreadthStats_AdvanceDeclineRatio(t *testing.T) {
	b := BreadthStats{AdvanceCount: 3000, DeclineCount: 1500}
	assert.Equal(t, 2.0, b.AdvanceDeclineRatio())

	b = BreadthStats{AdvanceCount: 100, DeclineCount: 0}
	assert.Equal(t, 100.0, b.AdvanceDeclineRatio())
}

func TestRankedList_Top(t *testing.T) {
	list := &RankedList{
		Candidates: []*ScoredCandidate{{Code: "a"}, {Code: "b"}, {Code: "c"}},
	}
	assert.Len(t, list.Top(2), 2)
	assert.Len(t, list.Top(10), 3)
}
