package contracts

import "time"

// FunnelStage identifies a hard filter stage in pipeline order.
// Cheap stages run first; a stock rejected at stage k never reaches k+1.
type FunnelStage int

const (
	StageEligibility FunnelStage = iota
	StageLiquidity
	StageSetupShape
	// StageSurvived marks stocks that passed every stage
	StageSurvived
)

func (s FunnelStage) String() string {
	switch s {
	case StageEligibility:
		return "eligibility"
	case StageLiquidity:
		return "liquidity"
	case StageSetupShape:
		return "setup_shape"
	case StageSurvived:
		return "survived"
	default:
		return "unknown"
	}
}

// Universe is the funnel output for one trade date: survivors plus the
// earliest rejection stage for every excluded stock.
type Universe struct {
	Date     time.Time              `json:"date"`
	Stocks   []string               `json:"stocks"`
	Rejected map[string]FunnelStage `json:"rejected"` // code -> earliest failed stage
}

// Contains reports whether a code survived the funnel
func (u *Universe) Contains(code string) bool {
	for _, c := range u.Stocks {
		if c == code {
			return true
		}
	}
	return false
}

// Count returns the number of surviving stocks
func (u *Universe) Count() int {
	return len(u.Stocks)
}
