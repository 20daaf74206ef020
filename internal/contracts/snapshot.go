package contracts

import "time"

// StockSnapshot is one stock's end-of-day state, delivered fully typed by
// the ingestion collaborator. One row per (stock, date); read-only to the
// core. The core never probes for alternately named fields.
type StockSnapshot struct {
	Code string    `json:"code"`
	Name string    `json:"name"`
	Date time.Time `json:"date"`

	// Daily bar
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	PrevClose float64 `json:"prev_close"`
	Volume    int64   `json:"volume"`
	Amount    float64 `json:"amount"` // turnover amount (CNY)

	ChangePct    float64 `json:"change_pct"`
	TurnoverRate float64 `json:"turnover_rate"`
	VolumeRatio  float64 `json:"volume_ratio"` // today's volume / 5-day average

	// Moving averages
	MA5  float64 `json:"ma5"`
	MA10 float64 `json:"ma10"`
	MA20 float64 `json:"ma20"`
	MA60 float64 `json:"ma60"`

	// Relative price strength percentiles (0-100)
	RPS20  float64 `json:"rps_20"`
	RPS50  float64 `json:"rps_50"`
	RPS120 float64 `json:"rps_120"`

	// Volatility contraction: 0 (loose) to 1 (tight)
	VCPTightness float64 `json:"vcp_tightness"`

	// Money-flow tiers, net inflow in CNY
	MainNetInflow       float64 `json:"main_net_inflow"`
	SuperLargeNetInflow float64 `json:"super_large_net_inflow"`
	LargeNetInflow      float64 `json:"large_net_inflow"`
	MediumNetInflow     float64 `json:"medium_net_inflow"`
	SmallNetInflow      float64 `json:"small_net_inflow"`

	// Trailing aggregates the funnel depends on
	AvgAmount20   float64 `json:"avg_amount_20"`   // 20-day average turnover amount
	StrongDays60  int     `json:"strong_days_60"`  // days with >=7% gain or limit-up in last 60
	HistoryDays   int     `json:"history_days"`    // bars available before this date
	ListingDays   int     `json:"listing_days"`    // days since listing
	IsST          bool    `json:"is_st"`           // special treatment flag
	IsLimitUp     bool    `json:"is_limit_up"`     // closed at the daily price limit
	LimitUpPrice  float64 `json:"limit_up_price"`  // today's upper price limit
	LateSpikePct  float64 `json:"late_spike_pct"`  // last-30-min change percent

	// Concept memberships: concept name -> membership weight
	Concepts map[string]float64 `json:"concepts"`
}

// Valid reports whether the snapshot satisfies the basic bar invariants.
// Violators are skipped by the core, never propagated.
func (s *StockSnapshot) Valid() bool {
	if s.Code == "" || s.Volume < 0 {
		return false
	}
	if s.High < s.Low || s.Close <= 0 || s.PrevClose <= 0 {
		return false
	}
	return true
}

// UpperShadowRatio returns the upper shadow length relative to the
// day's full range. Zero when the bar has no range.
func (s *StockSnapshot) UpperShadowRatio() float64 {
	fullRange := s.High - s.Low
	if fullRange <= 0 {
		return 0
	}
	body := s.Close
	if s.Open > s.Close {
		body = s.Open
	}
	return (s.High - body) / fullRange
}

// DailyBar is a single OHLCV bar used by backtest forward windows
// and ATR computation.
type DailyBar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
	Amount float64   `json:"amount"`
}

// SectorSnapshot is one sector/concept's end-of-day aggregate, derived
// from its constituents' StockSnapshots.
type SectorSnapshot struct {
	Name string    `json:"name"`
	Date time.Time `json:"date"`

	MainNetInflow       float64 `json:"main_net_inflow"`
	SuperLargeNetInflow float64 `json:"super_large_net_inflow"`

	RPS5  float64 `json:"rps_5"`
	RPS10 float64 `json:"rps_10"`
	RPS20 float64 `json:"rps_20"`

	LimitUpCount int     `json:"limit_up_count"`
	AvgChangePct float64 `json:"avg_change_pct"`
}

// BreadthStats feeds regime detection for one trade date.
type BreadthStats struct {
	Date          time.Time `json:"date"`
	AdvanceCount  int       `json:"advance_count"`
	DeclineCount  int       `json:"decline_count"`
	LimitUpCount  int       `json:"limit_up_count"`
	IndexReturn1D float64   `json:"index_return_1d"`
	IndexReturn5D float64   `json:"index_return_5d"`
}

// AdvanceDeclineRatio returns advances over declines. Declines of zero
// with positive advances yields the advance count itself.
func (b *BreadthStats) AdvanceDeclineRatio() float64 {
	if b.DeclineCount == 0 {
		return float64(b.AdvanceCount)
	}
	return float64(b.AdvanceCount) / float64(b.DeclineCount)
}
