package backtest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jwliu/vantage/internal/contracts"
	"github.com/jwliu/vantage/internal/pipeline"
	"github.com/jwliu/vantage/internal/strategyconfig"
	"github.com/jwliu/vantage/pkg/logger"
)

// Engine replays the selection pipeline over historical dates and
// measures forward returns under an ATR stop-loss. Each replay date
// uses the breadth-derived regime of that date, not today's.
type Engine struct {
	orchestrator *pipeline.Orchestrator
	snapshotRepo contracts.SnapshotRepository
	calendarRepo contracts.CalendarRepository

	config     strategyconfig.Backtest
	configHash string
	logger     *logger.Logger
}

// NewEngine creates a backtest engine
func NewEngine(
	orchestrator *pipeline.Orchestrator,
	snapshotRepo contracts.SnapshotRepository,
	calendarRepo contracts.CalendarRepository,
	cfg strategyconfig.Backtest,
	configHash string,
	log *logger.Logger,
) *Engine {
	return &Engine{
		orchestrator: orchestrator,
		snapshotRepo: snapshotRepo,
		calendarRepo: calendarRepo,
		config:       cfg,
		configHash:   configHash,
		logger:       log,
	}
}

// Run replays every trading day in [from, to] and aggregates outcomes.
// Per-date pipeline failures are skipped, not fatal; a date whose
// forward window is incomplete is skipped too.
func (e *Engine) Run(ctx context.Context, from, to time.Time) (*contracts.BacktestReport, error) {
	days, err := e.calendarRepo.TradingDays(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("resolve trading days: %w", err)
	}
	if len(days) == 0 {
		return nil, fmt.Errorf("no trading days in [%s, %s]",
			from.Format("2006-01-02"), to.Format("2006-01-02"))
	}

	e.logger.WithFields(map[string]interface{}{
		"from": from.Format("2006-01-02"),
		"to":   to.Format("2006-01-02"),
		"days": len(days),
	}).Info("Starting backtest")

	// Memo scoped to this run: trailing bars are refetched by
	// overlapping windows of nearby entry dates.
	memo := newMemoCache()

	report := &contracts.BacktestReport{
		From:       from,
		To:         to,
		ConfigHash: e.configHash,
	}

	for _, day := range days {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("backtest canceled: %w", err)
		}

		records, err := e.replayDate(ctx, day, memo)
		if err != nil {
			e.logger.WithFields(map[string]interface{}{
				"date":  day.Format("2006-01-02"),
				"error": err.Error(),
			}).Warn("Replay date skipped")
			continue
		}
		report.Records = append(report.Records, records...)
	}

	e.aggregate(report)

	e.logger.WithFields(map[string]interface{}{
		"entries":      report.TotalEntries,
		"win_rate":     report.WinRate,
		"memo_entries": memo.size(),
	}).Info("Backtest completed")

	return report, nil
}

// replayDate runs the pipeline for one historical date and evaluates
// the top candidates' forward windows.
func (e *Engine) replayDate(ctx context.Context, date time.Time, memo *memoCache) ([]*contracts.BacktestRecord, error) {
	result, err := e.orchestrator.Run(ctx, pipeline.RunConfig{
		Date:  date,
		RunID: fmt.Sprintf("bt_%s", date.Format("20060102")),
	})
	if err != nil {
		return nil, err
	}

	top := result.RankedList.Top(e.config.TopN)
	records := make([]*contracts.BacktestRecord, len(top))

	// Forward-window evaluation is I/O bound per candidate; fan out.
	var wg sync.WaitGroup
	for i, candidate := range top {
		wg.Add(1)
		go func(slot int, c *contracts.ScoredCandidate) {
			defer wg.Done()
			rec, err := e.evaluate(ctx, c, date, memo)
			if err != nil {
				e.logger.WithFields(map[string]interface{}{
					"code":  c.Code,
					"date":  date.Format("2006-01-02"),
					"error": err.Error(),
				}).Warn("Entry evaluation skipped")
				return
			}
			records[slot] = rec
		}(i, candidate)
	}
	wg.Wait()

	// Drop skipped slots, keeping rank order.
	out := make([]*contracts.BacktestRecord, 0, len(records))
	for _, rec := range records {
		if rec != nil {
			out = append(out, rec)
		}
	}
	return out, nil
}

// evaluate walks one entry's forward window against its ATR stop.
func (e *Engine) evaluate(ctx context.Context, c *contracts.ScoredCandidate, date time.Time, memo *memoCache) (*contracts.BacktestRecord, error) {
	entryPrice, err := e.entryPrice(ctx, c.Code, date, memo)
	if err != nil {
		return nil, err
	}

	atr, err := e.atr(ctx, c.Code, date, memo)
	if err != nil {
		return nil, err
	}

	forward, err := e.snapshotRepo.GetForwardBars(ctx, c.Code, date, e.config.WindowDays)
	if err != nil {
		return nil, fmt.Errorf("forward bars: %w", err)
	}
	if len(forward) < e.config.WindowDays {
		return nil, fmt.Errorf("incomplete forward window: %d of %d bars", len(forward), e.config.WindowDays)
	}

	rec := &contracts.BacktestRecord{
		Code:       c.Code,
		EntryDate:  date,
		EntryPrice: entryPrice,
		WindowDays: e.config.WindowDays,
		StopPrice:  entryPrice - e.config.ATRStopMult*atr,
		Factors:    c.Factors,
		Score:      c.Adjusted,
	}

	for i, bar := range forward {
		if high := (bar.High - entryPrice) / entryPrice; high > rec.MaxReturn {
			rec.MaxReturn = high
		}

		// A stop breach ends the trade at the stop price; later price
		// action no longer matters for classification.
		if bar.Low <= rec.StopPrice {
			rec.StopTriggered = true
			rec.StopDay = i + 1
			rec.FinalReturn = (rec.StopPrice - entryPrice) / entryPrice
			break
		}

		rec.FinalReturn = (bar.Close - entryPrice) / entryPrice
	}

	rec.Outcome = contracts.OutcomeFail
	if rec.FinalReturn > e.config.WinThresholdPct {
		rec.Outcome = contracts.OutcomeWin
	}
	return rec, nil
}

// entryPrice is the entry date's close.
func (e *Engine) entryPrice(ctx context.Context, code string, date time.Time, memo *memoCache) (float64, error) {
	bars, err := e.trailingBars(ctx, code, date, 1, memo)
	if err != nil {
		return 0, err
	}
	if len(bars) == 0 || bars[0].Close <= 0 {
		return 0, fmt.Errorf("no entry bar for %s at %s", code, date.Format("2006-01-02"))
	}
	return bars[0].Close, nil
}

// atr computes the average true range over the configured trailing
// window ending at the entry date.
func (e *Engine) atr(ctx context.Context, code string, date time.Time, memo *memoCache) (float64, error) {
	// One extra bar supplies the previous close for the oldest range.
	bars, err := e.trailingBars(ctx, code, date, e.config.ATRWindow+1, memo)
	if err != nil {
		return 0, err
	}
	if len(bars) < 2 {
		return 0, fmt.Errorf("insufficient bars for ATR: %s at %s", code, date.Format("2006-01-02"))
	}

	// Bars arrive most recent first.
	sum := 0.0
	count := 0
	for i := 0; i+1 < len(bars); i++ {
		sum += trueRange(bars[i], bars[i+1].Close)
		count++
	}
	return sum / float64(count), nil
}

func (e *Engine) trailingBars(ctx context.Context, code string, date time.Time, limit int, memo *memoCache) ([]contracts.DailyBar, error) {
	key := barKey(code, date, limit)
	if bars, ok := memo.get(key); ok {
		return bars, nil
	}
	bars, err := e.snapshotRepo.GetBars(ctx, code, date, limit)
	if err != nil {
		return nil, fmt.Errorf("trailing bars: %w", err)
	}
	memo.put(key, bars)
	return bars, nil
}

// trueRange is max(high-low, |high-prevClose|, |low-prevClose|).
func trueRange(bar contracts.DailyBar, prevClose float64) float64 {
	tr := bar.High - bar.Low
	if hc := abs(bar.High - prevClose); hc > tr {
		tr = hc
	}
	if lc := abs(bar.Low - prevClose); lc > tr {
		tr = lc
	}
	return tr
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func (e *Engine) aggregate(report *contracts.BacktestReport) {
	report.TotalEntries = len(report.Records)
	if report.TotalEntries == 0 {
		return
	}

	sumReturn, sumMax, sumAvoided := 0.0, 0.0, 0.0
	for _, rec := range report.Records {
		sumReturn += rec.FinalReturn
		sumMax += rec.MaxReturn
		switch rec.Outcome {
		case contracts.OutcomeWin:
			report.Wins++
		default:
			report.Fails++
		}
		if rec.StopTriggered {
			report.StopOuts++
			// Return given up between the peak and the stop exit is
			// what the stop protected.
			if avoided := rec.MaxReturn - rec.FinalReturn; avoided > 0 {
				sumAvoided += avoided
			}
		}
	}

	report.WinRate = float64(report.Wins) / float64(report.TotalEntries)
	report.AvgReturn = sumReturn / float64(report.TotalEntries)
	report.AvgMaxReturn = sumMax / float64(report.TotalEntries)
	if report.StopOuts > 0 {
		report.AvgDrawdownAvoided = sumAvoided / float64(report.StopOuts)
	}
}
