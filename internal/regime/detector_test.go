package regime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jwliu/vantage/internal/contracts"
	"github.com/jwliu/vantage/internal/strategyconfig"
	"github.com/jwliu/vantage/pkg/logger"
)

func testDetector() *Detector {
	return NewDetector(strategyconfig.Default().Regime, logger.NewNop())
}

func TestDetect_Attack(t *testing.T) {
	d := testDetector()

	result := d.Detect(time.Now(), &contracts.BreadthStats{
		AdvanceCount:  3000,
		DeclineCount:  1500,
		LimitUpCount:  80,
		IndexReturn5D: 0.025,
	})

	assert.Equal(t, Attack, result.Regime)
	assert.False(t, result.Degraded)
}

func TestDetect_AttackRequiresAllConditions(t *testing.T) {
	d := testDetector()

	// Breadth and limit-ups strong, but index flat: not attack.
	result := d.Detect(time.Now(), &contracts.BreadthStats{
		AdvanceCount:  3000,
		DeclineCount:  1500,
		LimitUpCount:  80,
		IndexReturn5D: 0.0,
	})

	assert.Equal(t, Balance, result.Regime)
}

func TestDetect_Defense(t *testing.T) {
	d := testDetector()

	tests := []struct {
		name    string
		breadth contracts.BreadthStats
	}{
		{
			name: "breadth collapse with falling index",
			breadth: contracts.BreadthStats{
				AdvanceCount:  800,
				DeclineCount:  3500,
				LimitUpCount:  35,
				IndexReturn5D: -0.03,
			},
		},
		{
			name: "limit-up drought alone",
			breadth: contracts.BreadthStats{
				AdvanceCount:  2000,
				DeclineCount:  2100,
				LimitUpCount:  12,
				IndexReturn5D: 0.002,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := d.Detect(time.Now(), &tt.breadth)
			assert.Equal(t, Defense, result.Regime)
		})
	}
}

func TestDetect_Balance(t *testing.T) {
	d := testDetector()

	result := d.Detect(time.Now(), &contracts.BreadthStats{
		AdvanceCount:  2200,
		DeclineCount:  2000,
		LimitUpCount:  45,
		IndexReturn5D: 0.004,
	})

	assert.Equal(t, Balance, result.Regime)
}

func TestDetect_MissingBreadthDefaultsToBalance(t *testing.T) {
	d := testDetector()

	result := d.Detect(time.Now(), nil)

	assert.Equal(t, Balance, result.Regime)
	assert.True(t, result.Degraded)
}

func TestRegimeString(t *testing.T) {
	assert.Equal(t, "attack", Attack.String())
	assert.Equal(t, "defense", Defense.String())
	assert.Equal(t, "balance", Balance.String())
}
