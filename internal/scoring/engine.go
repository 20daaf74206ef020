package scoring

import (
	"sort"
	"time"

	"github.com/jwliu/vantage/internal/contracts"
	"github.com/jwliu/vantage/internal/strategyconfig"
	"github.com/jwliu/vantage/pkg/logger"
)

// Engine combines standardized factors into a bounded composite score
// using the weight profile of the detected market regime.
type Engine struct {
	weights strategyconfig.Weights
	clip    float64
	logger  *logger.Logger
}

// NewEngine creates a scoring engine
func NewEngine(weights strategyconfig.Weights, factorCfg strategyconfig.Factors, log *logger.Logger) *Engine {
	return &Engine{
		weights: weights,
		clip:    factorCfg.ZScoreClip,
		logger:  log,
	}
}

// Score produces the composite-ordered candidate list for one date.
// Ties break by capital factor descending, then volume ratio ascending
// (prefer tighter contraction), then code ascending.
func (e *Engine) Score(date time.Time, regime string, set *contracts.FactorSet) []*contracts.ScoredCandidate {
	profile := e.weights.ProfileFor(regime)

	candidates := make([]*contracts.ScoredCandidate, 0, set.Count())
	for _, rec := range set.Records {
		c := &contracts.ScoredCandidate{
			Code:           rec.Code,
			Date:           date,
			TechnicalScore: e.factorScore(rec.Technical, profile.Technical),
			CapitalScore:   e.factorScore(rec.Capital, profile.Capital),
			ConceptScore:   e.factorScore(rec.Concept, profile.Concept),
			FunnelStage:    contracts.StageSurvived,
			Factors:        rec,
		}
		c.Composite = e.bound(c.TechnicalScore + c.CapitalScore + c.ConceptScore)
		c.Adjusted = c.Composite
		candidates = append(candidates, c)
	}

	sort.Slice(candidates, func(i, j int) bool {
		return Less(candidates[i], candidates[j])
	})
	for i, c := range candidates {
		c.Rank = i + 1
	}

	e.logger.WithFields(map[string]interface{}{
		"date":       date.Format("2006-01-02"),
		"regime":     regime,
		"candidates": len(candidates),
	}).Info("Scoring completed")

	return candidates
}

// Less orders candidates best-first with deterministic tie-breaks.
func Less(a, b *contracts.ScoredCandidate) bool {
	if a.Composite != b.Composite {
		return a.Composite > b.Composite
	}
	af, bf := a.Factors, b.Factors
	if af != nil && bf != nil {
		if af.Capital != bf.Capital {
			return af.Capital > bf.Capital
		}
		if af.Details.VolumeRatio != bf.Details.VolumeRatio {
			return af.Details.VolumeRatio < bf.Details.VolumeRatio
		}
	}
	return a.Code < b.Code
}

// factorScore maps a clipped z-score onto [0, weight] linearly: the
// cross-sectional worst earns 0, the best the full weight.
func (e *Engine) factorScore(z, weight float64) float64 {
	if e.clip <= 0 {
		return weight / 2
	}
	normalized := (z + e.clip) / (2 * e.clip)
	if normalized < 0 {
		normalized = 0
	}
	if normalized > 1 {
		normalized = 1
	}
	return normalized * weight
}

func (e *Engine) bound(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > e.weights.Total {
		return e.weights.Total
	}
	return score
}
