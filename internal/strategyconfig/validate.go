package strategyconfig

import (
	"fmt"
	"math"
)

// ValidationError is a fatal configuration failure, raised before any
// per-stock work begins.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

const weightTolerance = 1e-6

// Validate checks all required constraints. Any failure aborts the run.
func Validate(cfg *Config) error {
	// === Meta ===
	if cfg.Meta.StrategyID == "" {
		return ValidationError{"meta.strategy_id", "required"}
	}

	// === Weights ===
	if cfg.Weights.Total <= 0 {
		return ValidationError{"weights.total", "must be > 0"}
	}
	profiles := map[string]WeightProfile{
		"weights.attack":  cfg.Weights.Attack,
		"weights.defense": cfg.Weights.Defense,
		"weights.balance": cfg.Weights.Balance,
	}
	for field, p := range profiles {
		if p.Technical < 0 || p.Capital < 0 || p.Concept < 0 {
			return ValidationError{field, "weights must be non-negative"}
		}
		if math.Abs(p.Sum()-cfg.Weights.Total) > weightTolerance {
			return ValidationError{field, fmt.Sprintf("weights sum to %.4f, declared total is %.4f", p.Sum(), cfg.Weights.Total)}
		}
	}

	// === Regime ===
	if cfg.Regime.AttackADRMin <= cfg.Regime.DefenseADRMax {
		return ValidationError{"regime", "attack_adr_min must exceed defense_adr_max"}
	}
	if cfg.Regime.AttackLimitUpMin <= cfg.Regime.DefenseLimitUpMax {
		return ValidationError{"regime", "attack_limit_up_min must exceed defense_limit_up_max"}
	}

	// === Funnel ===
	if cfg.Funnel.MinListingDays < 0 {
		return ValidationError{"funnel.min_listing_days", "must be >= 0"}
	}
	if cfg.Funnel.VolumeRatioMax <= 0 {
		return ValidationError{"funnel.volume_ratio_max", "must be > 0"}
	}
	switch cfg.Funnel.KeyMA {
	case "ma10", "ma20", "ma60":
	default:
		return ValidationError{"funnel.key_ma", "must be one of: ma10, ma20, ma60"}
	}

	// === Factors ===
	if cfg.Factors.MinHistoryDays <= 0 {
		return ValidationError{"factors.min_history_days", "must be > 0"}
	}
	if cfg.Factors.MinSampleCount < 2 {
		return ValidationError{"factors.min_sample_count", "must be >= 2"}
	}
	if cfg.Factors.ZScoreClip <= 0 {
		return ValidationError{"factors.zscore_clip", "must be > 0"}
	}
	if cfg.Factors.Workers <= 0 {
		return ValidationError{"factors.workers", "must be > 0"}
	}

	// === Validation rules ===
	if cfg.Validation.Veto.TombstoneShadowRatio <= 0 || cfg.Validation.Veto.TombstoneShadowRatio > 1 {
		return ValidationError{"validation.veto.tombstone_shadow_ratio", "must be in (0, 1]"}
	}
	if cfg.Validation.Deduction.UpperShadowPoints < 0 ||
		cfg.Validation.Deduction.LateSpikePoints < 0 ||
		cfg.Validation.Deduction.IsolatedPoints < 0 {
		return ValidationError{"validation.deduction", "points must be non-negative"}
	}

	// === Cluster ===
	if cfg.Cluster.JaccardThreshold < 0 || cfg.Cluster.JaccardThreshold > 1 {
		return ValidationError{"cluster.jaccard_threshold", "must be in [0, 1]"}
	}
	switch cfg.Cluster.RankingKey {
	case RankingKeyMainNetInflow, RankingKeyLimitUpCount:
	default:
		return ValidationError{"cluster.ranking_key", "must be one of: main_net_inflow, limit_up_count"}
	}

	// === Backtest ===
	if cfg.Backtest.WindowDays <= 0 {
		return ValidationError{"backtest.window_days", "must be > 0"}
	}
	if cfg.Backtest.ATRWindow <= 0 {
		return ValidationError{"backtest.atr_window", "must be > 0"}
	}
	if cfg.Backtest.ATRStopMult <= 0 {
		return ValidationError{"backtest.atr_stop_mult", "must be > 0"}
	}
	if cfg.Backtest.WinThresholdPct <= 0 {
		return ValidationError{"backtest.win_threshold_pct", "must be > 0"}
	}

	return nil
}

// ProfileFor returns the weight profile for a regime name.
// Unknown regimes fall back to the balance profile.
func (w Weights) ProfileFor(regime string) WeightProfile {
	switch regime {
	case "attack":
		return w.Attack
	case "defense":
		return w.Defense
	default:
		return w.Balance
	}
}
