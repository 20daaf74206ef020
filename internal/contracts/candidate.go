package contracts

import "time"

// RuleKind distinguishes disqualifying vetoes from graded deductions.
type RuleKind string

const (
	RuleVeto      RuleKind = "veto"
	RuleDeduction RuleKind = "deduction"
)

// RuleTag records one validation rule that fired on a candidate.
type RuleTag struct {
	Rule   string   `json:"rule"`
	Kind   RuleKind `json:"kind"`
	Points float64  `json:"points"` // deducted points; 0 for vetoes
}

// ScoredCandidate is one stock's scoring result. Produced fresh per run;
// persistence is a collaborator concern.
type ScoredCandidate struct {
	Code string    `json:"code"`
	Date time.Time `json:"date"`

	// Sub-scores after regime weighting
	TechnicalScore float64 `json:"technical_score"`
	CapitalScore   float64 `json:"capital_score"`
	ConceptScore   float64 `json:"concept_score"`

	Composite float64 `json:"composite"` // 0-100 after clipping
	Adjusted  float64 `json:"adjusted"`  // composite minus deductions, floored at 0
	Vetoed    bool    `json:"vetoed"`

	Tags        []RuleTag   `json:"tags,omitempty"`
	FunnelStage FunnelStage `json:"funnel_stage"` // stage reached (survived for final list)
	Rank        int         `json:"rank"`

	// Raw factor record used, kept for reproducibility
	Factors *FactorRecord `json:"factors,omitempty"`
}

// RankedList is the final pipeline output for one trade date.
type RankedList struct {
	Date       time.Time          `json:"date"`
	Regime     string             `json:"regime"`
	Candidates []*ScoredCandidate `json:"candidates"`

	// RunID ties the list back to its pipeline run
	RunID      string `json:"run_id"`
	ConfigHash string `json:"config_hash"`
}

// Top returns up to n highest-ranked candidates
func (r *RankedList) Top(n int) []*ScoredCandidate {
	if n > len(r.Candidates) {
		n = len(r.Candidates)
	}
	return r.Candidates[:n]
}
