package contracts

import "time"

// Outcome classifies a completed backtest entry.
type Outcome string

const (
	OutcomeWin  Outcome = "WIN"
	OutcomeFail Outcome = "FAIL"
)

// BacktestRecord is one replayed entry. Immutable once written.
type BacktestRecord struct {
	Code       string    `json:"code"`
	EntryDate  time.Time `json:"entry_date"`
	EntryPrice float64   `json:"entry_price"`

	WindowDays  int     `json:"window_days"`
	MaxReturn   float64 `json:"max_return"`   // peak return within the window
	FinalReturn float64 `json:"final_return"` // stop-triggered or window-end return

	StopPrice    float64 `json:"stop_price"`
	StopTriggered bool   `json:"stop_triggered"`
	StopDay       int    `json:"stop_day,omitempty"` // 1-based day within window

	Outcome Outcome `json:"outcome"`

	// Factor snapshot used at entry, for reproducibility
	Factors *FactorRecord `json:"factors,omitempty"`
	Score   float64       `json:"score"`
}

// BacktestReport aggregates records for a date range.
type BacktestReport struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`

	Records []*BacktestRecord `json:"records"`

	TotalEntries int     `json:"total_entries"`
	Wins         int     `json:"wins"`
	Fails        int     `json:"fails"`
	StopOuts     int     `json:"stop_outs"`
	WinRate      float64 `json:"win_rate"`
	AvgReturn    float64 `json:"avg_return"`
	AvgMaxReturn float64 `json:"avg_max_return"`
	// Average drawdown below the stop level that stopped entries avoided
	AvgDrawdownAvoided float64 `json:"avg_drawdown_avoided"`

	ConfigHash string `json:"config_hash"`
}
