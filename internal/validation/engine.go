package validation

import (
	"sort"

	"github.com/jwliu/vantage/internal/contracts"
	"github.com/jwliu/vantage/internal/scoring"
	"github.com/jwliu/vantage/internal/strategyconfig"
	"github.com/jwliu/vantage/pkg/logger"
)

// Rule names as they appear in diagnostic tags.
const (
	RuleTombstone    = "tombstone"
	RuleVolumeClimax = "volume_climax"
	RuleStealth      = "stealth_distribution"

	RuleUpperShadow = "upper_shadow"
	RuleLateSpike   = "late_spike"
	RuleIsolated    = "isolated_mover"
)

// Engine refines the scored list: veto rules disqualify outright,
// deduction rules shave points. Every fired rule leaves a tag on the
// candidate. Vetoed candidates never reach the final list regardless
// of score.
type Engine struct {
	config strategyconfig.Validation
	logger *logger.Logger
}

// NewEngine creates a validation engine
func NewEngine(cfg strategyconfig.Validation, log *logger.Logger) *Engine {
	return &Engine{
		config: cfg,
		logger: log,
	}
}

// Validate applies all rules and returns the surviving candidates
// re-ranked by adjusted score. The input slice is annotated in place;
// vetoed candidates keep their tags for diagnostics but are dropped
// from the returned list.
func (e *Engine) Validate(
	candidates []*contracts.ScoredCandidate,
	snapshots map[string]*contracts.StockSnapshot,
	sectors []contracts.SectorSnapshot,
	clusters *contracts.ClusterAssignment,
) []*contracts.ScoredCandidate {
	boardChange := boardAvgChange(sectors, clusters)

	survivors := make([]*contracts.ScoredCandidate, 0, len(candidates))
	vetoed := 0
	for _, c := range candidates {
		snap := snapshots[c.Code]
		if snap == nil {
			survivors = append(survivors, c)
			continue
		}

		e.applyVetoes(c, snap)
		if c.Vetoed {
			vetoed++
			continue
		}

		e.applyDeductions(c, snap, boardChange, clusters)
		survivors = append(survivors, c)
	}

	sort.Slice(survivors, func(i, j int) bool {
		a, b := survivors[i], survivors[j]
		if a.Adjusted != b.Adjusted {
			return a.Adjusted > b.Adjusted
		}
		return scoring.Less(a, b)
	})
	for i, c := range survivors {
		c.Rank = i + 1
	}

	e.logger.WithFields(map[string]interface{}{
		"input":     len(candidates),
		"vetoed":    vetoed,
		"survivors": len(survivors),
	}).Info("Validation completed")

	return survivors
}

func (e *Engine) applyVetoes(c *contracts.ScoredCandidate, snap *contracts.StockSnapshot) {
	v := e.config.Veto

	// Tombstone: long upper shadow with a weak close, the day's buyers
	// got sold into.
	if snap.UpperShadowRatio() >= v.TombstoneShadowRatio && snap.ChangePct <= v.TombstoneCloseMaxPct {
		e.veto(c, RuleTombstone)
	}

	// Volume climax without follow-through: heavy volume, no progress.
	if snap.VolumeRatio >= v.ClimaxVolumeRatio && snap.ChangePct <= v.ClimaxMaxChangePct {
		e.veto(c, RuleVolumeClimax)
	}

	// Stealth distribution: price marked up while large orders leave.
	if snap.Amount > 0 && snap.ChangePct >= v.StealthMinChangePct {
		if snap.MainNetInflow/snap.Amount <= v.StealthOutflowRatio {
			e.veto(c, RuleStealth)
		}
	}
}

func (e *Engine) applyDeductions(
	c *contracts.ScoredCandidate,
	snap *contracts.StockSnapshot,
	boardChange map[string]float64,
	clusters *contracts.ClusterAssignment,
) {
	d := e.config.Deduction

	if snap.UpperShadowRatio() >= d.UpperShadowRatio {
		e.deduct(c, RuleUpperShadow, d.UpperShadowPoints)
	}

	if snap.LateSpikePct >= d.LateSpikeMinPct {
		e.deduct(c, RuleLateSpike, d.LateSpikePoints)
	}

	// Isolated mover: the stock rallies while every board it belongs
	// to stays flat.
	if snap.ChangePct >= d.IsolatedMinChangePct && e.isolated(snap, boardChange, clusters) {
		e.deduct(c, RuleIsolated, d.IsolatedPoints)
	}
}

func (e *Engine) isolated(snap *contracts.StockSnapshot, boardChange map[string]float64, clusters *contracts.ClusterAssignment) bool {
	if len(snap.Concepts) == 0 {
		return true // no sector to confirm it
	}
	for concept := range snap.Concepts {
		board := concept
		if clusters != nil {
			board = clusters.Resolve(concept)
		}
		if boardChange[board] > e.config.Deduction.IsolatedSectorMaxPct {
			return false
		}
	}
	return true
}

func (e *Engine) veto(c *contracts.ScoredCandidate, rule string) {
	c.Vetoed = true
	c.Tags = append(c.Tags, contracts.RuleTag{Rule: rule, Kind: contracts.RuleVeto})
}

// deduct subtracts points from the adjusted score, floored at zero.
func (e *Engine) deduct(c *contracts.ScoredCandidate, rule string, points float64) {
	c.Adjusted -= points
	if c.Adjusted < 0 {
		c.Adjusted = 0
	}
	c.Tags = append(c.Tags, contracts.RuleTag{Rule: rule, Kind: contracts.RuleDeduction, Points: points})
}

// boardAvgChange averages member-sector change percent per virtual board.
func boardAvgChange(sectors []contracts.SectorSnapshot, clusters *contracts.ClusterAssignment) map[string]float64 {
	sum := make(map[string]float64, len(sectors))
	count := make(map[string]int, len(sectors))
	for i := range sectors {
		board := sectors[i].Name
		if clusters != nil {
			board = clusters.Resolve(board)
		}
		sum[board] += sectors[i].AvgChangePct
		count[board]++
	}
	avg := make(map[string]float64, len(sum))
	for board, s := range sum {
		avg[board] = s / float64(count[board])
	}
	return avg
}
