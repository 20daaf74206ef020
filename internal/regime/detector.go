package regime

import (
	"time"

	"github.com/jwliu/vantage/internal/contracts"
	"github.com/jwliu/vantage/internal/strategyconfig"
	"github.com/jwliu/vantage/pkg/logger"
)

// Regime is the coarse market-condition classification that selects
// the scoring weight profile.
type Regime int

const (
	Balance Regime = iota
	Attack
	Defense
)

func (r Regime) String() string {
	switch r {
	case Attack:
		return "attack"
	case Defense:
		return "defense"
	default:
		return "balance"
	}
}

// Result is one date's classification with its inputs retained for
// diagnostics.
type Result struct {
	Regime  Regime    `json:"regime"`
	Date    time.Time `json:"date"`
	Degraded bool     `json:"degraded"` // breadth inputs were missing

	ADRatio      float64 `json:"ad_ratio"`
	LimitUpCount int     `json:"limit_up_count"`
	IndexReturn  float64 `json:"index_return_5d"`
}

// Detector classifies market breadth into Attack/Defense/Balance.
type Detector struct {
	config strategyconfig.Regime
	logger *logger.Logger
}

// NewDetector creates a regime detector
func NewDetector(cfg strategyconfig.Regime, log *logger.Logger) *Detector {
	return &Detector{
		config: cfg,
		logger: log,
	}
}

// Detect classifies one trade date. Missing breadth defaults to Balance
// with the Degraded flag set; detection never fails the pipeline.
func (d *Detector) Detect(date time.Time, breadth *contracts.BreadthStats) *Result {
	if breadth == nil {
		d.logger.WithField("date", date.Format("2006-01-02")).
			Warn("Breadth stats missing, defaulting regime to balance")
		return &Result{
			Regime:   Balance,
			Date:     date,
			Degraded: true,
		}
	}

	result := &Result{
		Regime:       Balance,
		Date:         date,
		ADRatio:      breadth.AdvanceDeclineRatio(),
		LimitUpCount: breadth.LimitUpCount,
		IndexReturn:  breadth.IndexReturn5D,
	}

	switch {
	case result.ADRatio >= d.config.AttackADRMin &&
		result.IndexReturn >= d.config.AttackIndexMin &&
		result.LimitUpCount >= d.config.AttackLimitUpMin:
		result.Regime = Attack

	case (result.ADRatio <= d.config.DefenseADRMax && result.IndexReturn <= d.config.DefenseIndexMax) ||
		result.LimitUpCount <= d.config.DefenseLimitUpMax:
		result.Regime = Defense
	}

	d.logger.WithFields(map[string]interface{}{
		"date":           date.Format("2006-01-02"),
		"regime":         result.Regime.String(),
		"ad_ratio":       result.ADRatio,
		"limit_up_count": result.LimitUpCount,
		"index_return":   result.IndexReturn,
	}).Debug("Regime detected")

	return result
}
