package factors

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/jwliu/vantage/internal/contracts"
	"github.com/jwliu/vantage/internal/strategyconfig"
	"github.com/jwliu/vantage/pkg/logger"
)

// Engine turns raw snapshots into three standardized factor groups per
// stock: technical, capital, concept. Raw factors are z-scored against
// the same-date cross-section; a degenerate distribution (zero variance
// or too few samples) standardizes to zero.
type Engine struct {
	config strategyconfig.Factors
	logger *logger.Logger
}

// NewEngine creates a factor engine
func NewEngine(cfg strategyconfig.Factors, log *logger.Logger) *Engine {
	return &Engine{
		config: cfg,
		logger: log,
	}
}

// rawFactors is one stock's pre-standardization factor inputs.
type rawFactors struct {
	code    string
	details contracts.FactorDetails
}

// Build computes the factor set for one trade date over the funnel
// survivors. Stocks with insufficient history are excluded with a
// reason, never silently dropped.
func (e *Engine) Build(
	ctx context.Context,
	date time.Time,
	universe *contracts.Universe,
	snapshots map[string]*contracts.StockSnapshot,
	sectors []contracts.SectorSnapshot,
	clusters *contracts.ClusterAssignment,
) (*contracts.FactorSet, error) {
	if universe == nil || len(universe.Stocks) == 0 {
		return nil, fmt.Errorf("factor engine: empty universe for %s", date.Format("2006-01-02"))
	}

	set := &contracts.FactorSet{
		Date:     date,
		Records:  make(map[string]*contracts.FactorRecord),
		Excluded: make(map[string]string),
	}

	boardInflow := aggregateBoardInflow(sectors, clusters)

	// Raw extraction is per-stock independent; fan out over a bounded
	// worker pool.
	eligible := make([]string, 0, len(universe.Stocks))
	for _, code := range universe.Stocks {
		snap, ok := snapshots[code]
		if !ok || !snap.Valid() {
			set.Excluded[code] = "snapshot missing or invalid"
			continue
		}
		if snap.HistoryDays < e.config.MinHistoryDays {
			set.Excluded[code] = fmt.Sprintf("insufficient history: %d < %d days", snap.HistoryDays, e.config.MinHistoryDays)
			continue
		}
		eligible = append(eligible, code)
	}

	raws := make([]rawFactors, len(eligible))
	workers := e.config.Workers
	if workers <= 0 {
		workers = 1
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				code := eligible[i]
				raws[i] = rawFactors{
					code:    code,
					details: e.extract(snapshots[code], boardInflow, clusters),
				}
			}
		}()
	}

loop:
	for i := range eligible {
		select {
		case <-ctx.Done():
			break loop
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("factor engine canceled: %w", err)
	}

	e.standardize(date, raws, set)

	e.logger.WithFields(map[string]interface{}{
		"date":     date.Format("2006-01-02"),
		"records":  set.Count(),
		"excluded": len(set.Excluded),
	}).Info("Factor set built")

	return set, nil
}

// extract pulls the raw factor inputs out of one snapshot.
func (e *Engine) extract(snap *contracts.StockSnapshot, boardInflow map[string]float64, clusters *contracts.ClusterAssignment) contracts.FactorDetails {
	details := contracts.FactorDetails{
		RPS20:        snap.RPS20,
		RPS50:        snap.RPS50,
		VCPTightness: snap.VCPTightness,
		VolumeRatio:  snap.VolumeRatio,
	}

	if snap.MA20 > 0 {
		details.AboveMA20Pct = (snap.Close - snap.MA20) / snap.MA20 * 100
	}

	if snap.Amount > 0 {
		details.InflowToTurnover = snap.MainNetInflow / snap.Amount
	}
	if snap.MainNetInflow > 0 {
		details.SuperLargeShare = snap.SuperLargeNetInflow / snap.MainNetInflow
	}

	details.ResonanceScore, details.BoardCount = e.resonance(snap, boardInflow, clusters)

	return details
}

// resonance sums the positive aggregate inflow of the distinct virtual
// boards the stock belongs to, scaled to 亿 CNY.
func (e *Engine) resonance(snap *contracts.StockSnapshot, boardInflow map[string]float64, clusters *contracts.ClusterAssignment) (float64, int) {
	if len(snap.Concepts) == 0 || clusters == nil {
		return 0, 0
	}

	seen := make(map[string]struct{}, len(snap.Concepts))
	score := 0.0
	count := 0
	for concept := range snap.Concepts {
		board := clusters.Resolve(concept)
		if _, ok := seen[board]; ok {
			continue
		}
		seen[board] = struct{}{}
		if inflow := boardInflow[board]; inflow > 0 {
			score += inflow / 1e8
			count++
		}
	}
	return score, count
}

// standardize z-scores each raw factor across the date's cross-section,
// averages the per-group z-scores and clips them, then fills the set.
func (e *Engine) standardize(date time.Time, raws []rawFactors, set *contracts.FactorSet) {
	n := len(raws)
	if n == 0 {
		return
	}

	column := func(pick func(*contracts.FactorDetails) float64) []float64 {
		values := make([]float64, n)
		for i := range raws {
			values[i] = pick(&raws[i].details)
		}
		return values
	}

	zRPS20 := e.zscores(column(func(d *contracts.FactorDetails) float64 { return d.RPS20 }))
	zRPS50 := e.zscores(column(func(d *contracts.FactorDetails) float64 { return d.RPS50 }))
	zVCP := e.zscores(column(func(d *contracts.FactorDetails) float64 { return d.VCPTightness }))
	// Volume-ratio extremity: distance from neutral, penalized.
	zVolExt := e.zscores(column(func(d *contracts.FactorDetails) float64 { return -math.Abs(d.VolumeRatio - 1) }))
	zMA := e.zscores(column(func(d *contracts.FactorDetails) float64 { return d.AboveMA20Pct }))

	zInflow := e.zscores(column(func(d *contracts.FactorDetails) float64 { return d.InflowToTurnover }))
	zSuper := e.zscores(column(func(d *contracts.FactorDetails) float64 { return d.SuperLargeShare }))

	zResonance := e.zscores(column(func(d *contracts.FactorDetails) float64 { return d.ResonanceScore }))

	for i := range raws {
		rec := &contracts.FactorRecord{
			Code:      raws[i].code,
			Date:      date,
			Technical: e.clip((zRPS20[i] + zRPS50[i] + zVCP[i] + zVolExt[i] + zMA[i]) / 5),
			Capital:   e.clip((zInflow[i] + zSuper[i]) / 2),
			Concept:   e.clip(zResonance[i]),
			Details:   raws[i].details,
		}
		set.Records[rec.Code] = rec
	}
}

// zscores standardizes one raw factor column. Degenerate distributions
// yield all zeros.
func (e *Engine) zscores(values []float64) []float64 {
	out := make([]float64, len(values))
	if len(values) < e.config.MinSampleCount {
		return out
	}

	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))

	if variance == 0 {
		return out
	}

	std := math.Sqrt(variance)
	for i, v := range values {
		out[i] = (v - mean) / std
	}
	return out
}

func (e *Engine) clip(z float64) float64 {
	limit := e.config.ZScoreClip
	if limit <= 0 {
		return z
	}
	if z > limit {
		return limit
	}
	if z < -limit {
		return -limit
	}
	return z
}

// aggregateBoardInflow rolls sector main inflow up to virtual boards.
func aggregateBoardInflow(sectors []contracts.SectorSnapshot, clusters *contracts.ClusterAssignment) map[string]float64 {
	inflow := make(map[string]float64, len(sectors))
	for i := range sectors {
		board := sectors[i].Name
		if clusters != nil {
			board = clusters.Resolve(board)
		}
		inflow[board] += sectors[i].MainNetInflow
	}
	return inflow
}

// ExcludedCodes returns a sorted list for stable diagnostics output.
func ExcludedCodes(set *contracts.FactorSet) []string {
	codes := make([]string, 0, len(set.Excluded))
	for code := range set.Excluded {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
