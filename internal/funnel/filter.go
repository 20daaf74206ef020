package funnel

import (
	"sort"
	"time"

	"github.com/jwliu/vantage/internal/contracts"
	"github.com/jwliu/vantage/internal/strategyconfig"
	"github.com/jwliu/vantage/pkg/logger"
)

// stage is one hard filter: accept or reject, nothing graded.
type stage struct {
	id     contracts.FunnelStage
	accept func(*contracts.StockSnapshot) bool
}

// Filter narrows the daily universe through ordered hard stages. A
// stock failing any stage skips all later stages; the earliest failed
// stage is recorded per stock.
type Filter struct {
	config strategyconfig.Funnel
	stages []stage
	logger *logger.Logger
}

// NewFilter creates a funnel filter with stages in pipeline order
func NewFilter(cfg strategyconfig.Funnel, log *logger.Logger) *Filter {
	f := &Filter{
		config: cfg,
		logger: log,
	}
	f.stages = []stage{
		{contracts.StageEligibility, f.eligible},
		{contracts.StageLiquidity, f.liquid},
		{contracts.StageSetupShape, f.setupShape},
	}
	return f
}

// Apply runs every snapshot through the stages and returns the
// surviving universe. Invalid snapshots are skipped entirely.
func (f *Filter) Apply(date time.Time, snapshots map[string]*contracts.StockSnapshot) *contracts.Universe {
	universe := &contracts.Universe{
		Date:     date,
		Rejected: make(map[string]contracts.FunnelStage),
	}

	codes := make([]string, 0, len(snapshots))
	for code := range snapshots {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	for _, code := range codes {
		snap := snapshots[code]
		if snap == nil || !snap.Valid() {
			continue
		}
		if rejectedAt, ok := f.run(snap); ok {
			universe.Rejected[code] = rejectedAt
			continue
		}
		universe.Stocks = append(universe.Stocks, code)
	}

	f.logger.WithFields(map[string]interface{}{
		"date":      date.Format("2006-01-02"),
		"input":     len(codes),
		"survivors": universe.Count(),
		"rejected":  len(universe.Rejected),
	}).Info("Funnel applied")

	return universe
}

// run returns the earliest failed stage, or ok=false if all pass.
func (f *Filter) run(snap *contracts.StockSnapshot) (contracts.FunnelStage, bool) {
	for _, s := range f.stages {
		if !s.accept(snap) {
			return s.id, true
		}
	}
	return contracts.StageSurvived, false
}

// eligible removes ST stocks, fresh listings and stocks already sealed
// at the daily limit (no entry opportunity).
func (f *Filter) eligible(snap *contracts.StockSnapshot) bool {
	if f.config.ExcludeST && snap.IsST {
		return false
	}
	if snap.ListingDays < f.config.MinListingDays {
		return false
	}
	if f.config.ExcludeLimitUp && snap.IsLimitUp {
		return false
	}
	return true
}

// liquid requires trailing turnover and at least one qualifying strong
// day, proof the name can move.
func (f *Filter) liquid(snap *contracts.StockSnapshot) bool {
	if snap.AvgAmount20 < f.config.MinAvgAmount20 {
		return false
	}
	if snap.StrongDays60 < f.config.MinStrongDays60 {
		return false
	}
	return true
}

// setupShape requires volume contraction and price above the key MA.
func (f *Filter) setupShape(snap *contracts.StockSnapshot) bool {
	if snap.VolumeRatio > f.config.VolumeRatioMax {
		return false
	}
	ma := f.keyMA(snap)
	if ma <= 0 {
		return false
	}
	return snap.Close >= ma
}

func (f *Filter) keyMA(snap *contracts.StockSnapshot) float64 {
	switch f.config.KeyMA {
	case "ma10":
		return snap.MA10
	case "ma60":
		return snap.MA60
	default:
		return snap.MA20
	}
}
