package contracts

import "time"

// FactorRecord holds one stock's standardized factor groups for a date.
// Values are cross-sectional z-scores; a degenerate distribution yields 0.
type FactorRecord struct {
	Code string    `json:"code"`
	Date time.Time `json:"date"`

	Technical float64 `json:"technical"`
	Capital   float64 `json:"capital"`
	Concept   float64 `json:"concept"`

	Details FactorDetails `json:"details"`
}

// FactorDetails keeps the raw inputs behind the standardized groups
// for diagnostics and reproducibility.
type FactorDetails struct {
	// Technical
	RPS20        float64 `json:"rps_20"`
	RPS50        float64 `json:"rps_50"`
	VCPTightness float64 `json:"vcp_tightness"`
	VolumeRatio  float64 `json:"volume_ratio"`
	AboveMA20Pct float64 `json:"above_ma20_pct"` // close distance to MA20, percent

	// Capital
	InflowToTurnover float64 `json:"inflow_to_turnover"` // main net inflow / turnover amount
	SuperLargeShare  float64 `json:"super_large_share"`  // super-large inflow / main inflow

	// Concept
	ResonanceScore float64 `json:"resonance_score"` // aggregate inflow of member virtual boards
	BoardCount     int     `json:"board_count"`     // member virtual boards with positive inflow
}

// FactorSet is the FactorEngine output for one trade date.
type FactorSet struct {
	Date    time.Time                `json:"date"`
	Records map[string]*FactorRecord `json:"records"`
	// Excluded maps stocks dropped for insufficient history to the reason
	Excluded map[string]string `json:"excluded"`
}

// Get returns the record for a stock code
func (f *FactorSet) Get(code string) (*FactorRecord, bool) {
	rec, ok := f.Records[code]
	return rec, ok
}

// Count returns the number of stocks with factor records
func (f *FactorSet) Count() int {
	return len(f.Records)
}
