package ingest

import (
	"math"
	"sort"
	"strings"

	"github.com/jwliu/vantage/internal/contracts"
)

// Price-limit bands by board. ChiNext and STAR codes move 20% a day,
// ST names 5%, everything else 10%.
func limitUpPct(code, name string) float64 {
	if strings.Contains(name, "ST") {
		return 0.05
	}
	if strings.HasPrefix(code, "30") || strings.HasPrefix(code, "688") {
		return 0.20
	}
	return 0.10
}

// enrichFromHistory fills the trailing fields a raw quote cannot carry.
// bars are ascending by date and include today's bar as the last element.
func enrichFromHistory(s *contracts.StockSnapshot, bars []contracts.DailyBar) {
	s.HistoryDays = len(bars) - 1
	if s.HistoryDays < 0 {
		s.HistoryDays = 0
	}
	s.ListingDays = len(bars)
	s.IsST = strings.Contains(s.Name, "ST")

	pct := limitUpPct(s.Code, s.Name)
	s.LimitUpPrice = math.Round(s.PrevClose*(1+pct)*100) / 100
	s.IsLimitUp = s.Close >= s.LimitUpPrice

	s.MA5 = trailingMA(bars, 5)
	s.MA10 = trailingMA(bars, 10)
	s.MA20 = trailingMA(bars, 20)
	s.MA60 = trailingMA(bars, 60)
	s.AvgAmount20 = trailingAvgAmount(bars, 20)
	s.StrongDays60 = strongDays(bars, 60)
	s.VCPTightness = vcpTightness(bars)

	if s.VolumeRatio == 0 {
		s.VolumeRatio = volumeRatio(bars)
	}
}

// trailingMA averages the last n closes, today included. Zero when the
// history is shorter than n.
func trailingMA(bars []contracts.DailyBar, n int) float64 {
	if len(bars) < n {
		return 0
	}
	sum := 0.0
	for _, b := range bars[len(bars)-n:] {
		sum += b.Close
	}
	return sum / float64(n)
}

func trailingAvgAmount(bars []contracts.DailyBar, n int) float64 {
	if len(bars) < n {
		return 0
	}
	sum := 0.0
	for _, b := range bars[len(bars)-n:] {
		sum += b.Amount
	}
	return sum / float64(n)
}

// strongDays counts days with a 7%+ close-over-close gain in the last
// n bars.
func strongDays(bars []contracts.DailyBar, n int) int {
	start := len(bars) - n
	if start < 1 {
		start = 1
	}
	count := 0
	for i := start; i < len(bars); i++ {
		prev := bars[i-1].Close
		if prev <= 0 {
			continue
		}
		if (bars[i].Close-prev)/prev >= 0.07 {
			count++
		}
	}
	return count
}

// vcpTightness compares the last 10 days' high-low range against the
// last 60 days'. A tight recent range relative to the wider window
// approaches 1.
func vcpTightness(bars []contracts.DailyBar) float64 {
	if len(bars) < 60 {
		return 0
	}
	recent := rangeOf(bars[len(bars)-10:])
	wide := rangeOf(bars[len(bars)-60:])
	if wide <= 0 {
		return 0
	}
	ratio := recent / wide
	if ratio > 1 {
		ratio = 1
	}
	return 1 - ratio
}

func rangeOf(bars []contracts.DailyBar) float64 {
	hi, lo := bars[0].High, bars[0].Low
	for _, b := range bars[1:] {
		if b.High > hi {
			hi = b.High
		}
		if b.Low < lo {
			lo = b.Low
		}
	}
	return hi - lo
}

// volumeRatio falls back to today's volume over the prior 5-day average
// when the provider omits the field.
func volumeRatio(bars []contracts.DailyBar) float64 {
	if len(bars) < 6 {
		return 0
	}
	sum := int64(0)
	for _, b := range bars[len(bars)-6 : len(bars)-1] {
		sum += b.Volume
	}
	if sum == 0 {
		return 0
	}
	avg := float64(sum) / 5
	return float64(bars[len(bars)-1].Volume) / avg
}

// nDayReturn is the close-over-close return across the last n trading
// days. NaN when the history is too short.
func nDayReturn(bars []contracts.DailyBar, n int) float64 {
	if len(bars) < n+1 {
		return math.NaN()
	}
	base := bars[len(bars)-1-n].Close
	if base <= 0 {
		return math.NaN()
	}
	return (bars[len(bars)-1].Close - base) / base
}

// assignRPS converts each window's raw returns into cross-sectional
// percentile ranks (0-100). Codes without enough history rank 0.
func assignRPS(snapshots map[string]*contracts.StockSnapshot, returns map[string]float64, window int) {
	type entry struct {
		code string
		ret  float64
	}
	entries := make([]entry, 0, len(returns))
	for code, ret := range returns {
		if math.IsNaN(ret) {
			continue
		}
		entries = append(entries, entry{code: code, ret: ret})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].ret != entries[j].ret {
			return entries[i].ret < entries[j].ret
		}
		return entries[i].code < entries[j].code
	})

	n := len(entries)
	for i, e := range entries {
		snap, ok := snapshots[e.code]
		if !ok {
			continue
		}
		rank := 100.0
		if n > 1 {
			rank = float64(i) / float64(n-1) * 100
		}
		switch window {
		case 20:
			snap.RPS20 = rank
		case 50:
			snap.RPS50 = rank
		case 120:
			snap.RPS120 = rank
		}
	}
}
