package strategyconfig

import "time"

// Config is the full stock-selection strategy configuration.
// Loaded strictly from YAML; every numeric knob the pipeline uses
// lives here so a run is reproducible from (config hash, date).
type Config struct {
	Meta       Meta       `yaml:"meta" json:"meta"`
	Regime     Regime     `yaml:"regime" json:"regime"`
	Weights    Weights    `yaml:"weights" json:"weights"`
	Funnel     Funnel     `yaml:"funnel" json:"funnel"`
	Factors    Factors    `yaml:"factors" json:"factors"`
	Validation Validation `yaml:"validation" json:"validation"`
	Cluster    Cluster    `yaml:"cluster" json:"cluster"`
	Backtest   Backtest   `yaml:"backtest" json:"backtest"`
}

// Meta identifies the strategy version
type Meta struct {
	StrategyID string `yaml:"strategy_id" json:"strategy_id"`
	Version    string `yaml:"version" json:"version"`
	Timezone   string `yaml:"timezone" json:"timezone"`
}

// Regime holds breadth thresholds for market state classification
type Regime struct {
	// Attack requires all three
	AttackADRMin     float64 `yaml:"attack_adr_min" json:"attack_adr_min"`         // advance/decline ratio
	AttackLimitUpMin int     `yaml:"attack_limit_up_min" json:"attack_limit_up_min"`
	AttackIndexMin   float64 `yaml:"attack_index_min" json:"attack_index_min"`     // 5-day index return

	// Defense triggers on breadth collapse
	DefenseADRMax     float64 `yaml:"defense_adr_max" json:"defense_adr_max"`
	DefenseLimitUpMax int     `yaml:"defense_limit_up_max" json:"defense_limit_up_max"`
	DefenseIndexMax   float64 `yaml:"defense_index_max" json:"defense_index_max"`
}

// WeightProfile is one regime's factor weighting. Weights are points
// out of WeightTotal.
type WeightProfile struct {
	Technical float64 `yaml:"technical" json:"technical"`
	Capital   float64 `yaml:"capital" json:"capital"`
	Concept   float64 `yaml:"concept" json:"concept"`
}

// Sum returns the profile's weight total
func (p WeightProfile) Sum() float64 {
	return p.Technical + p.Capital + p.Concept
}

// Weights holds the per-regime weight table
type Weights struct {
	Total   float64       `yaml:"total" json:"total"` // declared sum, also the score bound
	Attack  WeightProfile `yaml:"attack" json:"attack"`
	Defense WeightProfile `yaml:"defense" json:"defense"`
	Balance WeightProfile `yaml:"balance" json:"balance"`
}

// Funnel holds the hard filter thresholds, in stage order
type Funnel struct {
	// Stage 1: eligibility
	MinListingDays int  `yaml:"min_listing_days" json:"min_listing_days"`
	ExcludeST      bool `yaml:"exclude_st" json:"exclude_st"`
	ExcludeLimitUp bool `yaml:"exclude_limit_up" json:"exclude_limit_up"`

	// Stage 2: liquidity / activity
	MinAvgAmount20  float64 `yaml:"min_avg_amount_20" json:"min_avg_amount_20"` // CNY
	MinStrongDays60 int     `yaml:"min_strong_days_60" json:"min_strong_days_60"`

	// Stage 3: setup shape
	VolumeRatioMax float64 `yaml:"volume_ratio_max" json:"volume_ratio_max"`
	KeyMA          string  `yaml:"key_ma" json:"key_ma"` // ma10 | ma20 | ma60
}

// Factors holds standardization parameters
type Factors struct {
	MinHistoryDays int     `yaml:"min_history_days" json:"min_history_days"`
	MinSampleCount int     `yaml:"min_sample_count" json:"min_sample_count"`
	ZScoreClip     float64 `yaml:"zscore_clip" json:"zscore_clip"`
	Workers        int     `yaml:"workers" json:"workers"`
}

// Validation holds veto and deduction rule parameters
type Validation struct {
	Veto      VetoRules      `yaml:"veto" json:"veto"`
	Deduction DeductionRules `yaml:"deduction" json:"deduction"`
}

// VetoRules are binary disqualifiers
type VetoRules struct {
	// Tombstone: long upper shadow with weak close
	TombstoneShadowRatio float64 `yaml:"tombstone_shadow_ratio" json:"tombstone_shadow_ratio"`
	TombstoneCloseMaxPct float64 `yaml:"tombstone_close_max_pct" json:"tombstone_close_max_pct"`

	// Volume climax without follow-through
	ClimaxVolumeRatio  float64 `yaml:"climax_volume_ratio" json:"climax_volume_ratio"`
	ClimaxMaxChangePct float64 `yaml:"climax_max_change_pct" json:"climax_max_change_pct"`

	// Stealth distribution: price up, large orders out
	StealthMinChangePct float64 `yaml:"stealth_min_change_pct" json:"stealth_min_change_pct"`
	StealthOutflowRatio float64 `yaml:"stealth_outflow_ratio" json:"stealth_outflow_ratio"`
}

// DeductionRules are graded non-disqualifying penalties
type DeductionRules struct {
	UpperShadowRatio  float64 `yaml:"upper_shadow_ratio" json:"upper_shadow_ratio"`
	UpperShadowPoints float64 `yaml:"upper_shadow_points" json:"upper_shadow_points"`

	LateSpikeMinPct float64 `yaml:"late_spike_min_pct" json:"late_spike_min_pct"`
	LateSpikePoints float64 `yaml:"late_spike_points" json:"late_spike_points"`

	// Isolated mover: stock rallies without sector confirmation
	IsolatedMinChangePct  float64 `yaml:"isolated_min_change_pct" json:"isolated_min_change_pct"`
	IsolatedSectorMaxPct  float64 `yaml:"isolated_sector_max_pct" json:"isolated_sector_max_pct"`
	IsolatedPoints        float64 `yaml:"isolated_points" json:"isolated_points"`
}

// Canonical-member ranking keys for clustering.
const (
	RankingKeyMainNetInflow = "main_net_inflow"
	RankingKeyLimitUpCount  = "limit_up_count"
)

// Cluster holds virtual-board merge parameters
type Cluster struct {
	JaccardThreshold float64 `yaml:"jaccard_threshold" json:"jaccard_threshold"`
	RankingKey       string  `yaml:"ranking_key" json:"ranking_key"` // main_net_inflow | limit_up_count
}

// Backtest holds replay parameters
type Backtest struct {
	WindowDays      int     `yaml:"window_days" json:"window_days"`
	ATRWindow       int     `yaml:"atr_window" json:"atr_window"`
	ATRStopMult     float64 `yaml:"atr_stop_mult" json:"atr_stop_mult"`
	WinThresholdPct float64 `yaml:"win_threshold_pct" json:"win_threshold_pct"`
	TopN            int     `yaml:"top_n" json:"top_n"`
}

// DecisionSnapshot records the exact configuration behind a run.
type DecisionSnapshot struct {
	ConfigHash string    `json:"config_hash"`
	ConfigYAML string    `json:"config_yaml"`
	StrategyID string    `json:"strategy_id"`
	GitCommit  string    `json:"git_commit"`
	CreatedAt  time.Time `json:"created_at"`
}

// Default returns the documented default strategy parameters.
// Values without a firm source are open tuning parameters; the YAML
// file is the operating copy.
func Default() *Config {
	return &Config{
		Meta: Meta{
			StrategyID: "ashare_resonance_v1",
			Version:    "1.0.0",
			Timezone:   "Asia/Shanghai",
		},
		Regime: Regime{
			AttackADRMin:      1.5,
			AttackLimitUpMin:  60,
			AttackIndexMin:    0.01,
			DefenseADRMax:     0.6,
			DefenseLimitUpMax: 20,
			DefenseIndexMax:   -0.01,
		},
		Weights: Weights{
			Total:   100,
			Attack:  WeightProfile{Technical: 45, Capital: 30, Concept: 25},
			Defense: WeightProfile{Technical: 30, Capital: 50, Concept: 20},
			Balance: WeightProfile{Technical: 40, Capital: 35, Concept: 25},
		},
		Funnel: Funnel{
			MinListingDays:  120,
			ExcludeST:       true,
			ExcludeLimitUp:  true,
			MinAvgAmount20:  200_000_000, // 2亿 CNY
			MinStrongDays60: 1,
			VolumeRatioMax:  2.5,
			KeyMA:           "ma20",
		},
		Factors: Factors{
			MinHistoryDays: 60,
			MinSampleCount: 30,
			ZScoreClip:     3.0,
			Workers:        8,
		},
		Validation: Validation{
			Veto: VetoRules{
				TombstoneShadowRatio: 0.6,
				TombstoneCloseMaxPct: 0.5,
				ClimaxVolumeRatio:    4.0,
				ClimaxMaxChangePct:   1.0,
				StealthMinChangePct:  2.0,
				StealthOutflowRatio:  -0.02,
			},
			Deduction: DeductionRules{
				UpperShadowRatio:     0.4,
				UpperShadowPoints:    5,
				LateSpikeMinPct:      2.0,
				LateSpikePoints:      5,
				IsolatedMinChangePct: 5.0,
				IsolatedSectorMaxPct: 0.5,
				IsolatedPoints:       8,
			},
		},
		Cluster: Cluster{
			JaccardThreshold: 0.6,
			RankingKey:       RankingKeyMainNetInflow,
		},
		Backtest: Backtest{
			WindowDays:      5,
			ATRWindow:       14,
			ATRStopMult:     2.0,
			WinThresholdPct: 0.01,
			TopN:            30,
		},
	}
}
