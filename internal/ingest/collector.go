package ingest

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/jwliu/vantage/internal/contracts"
	"github.com/jwliu/vantage/internal/external/eastmoney"
	"github.com/jwliu/vantage/internal/marketdata"
	"github.com/jwliu/vantage/pkg/logger"
)

// Shanghai Composite, used for the breadth index returns.
const indexSecID = "1.000001"

// Collector assembles fixed-shape snapshots from the Eastmoney client
// and persists them. The core packages never see provider field names;
// this boundary is the only place raw rows are interpreted.
type Collector struct {
	client       *eastmoney.Client
	snapshotRepo *marketdata.SnapshotRepository
	sectorRepo   *marketdata.SectorRepository
	breadthRepo  *marketdata.BreadthRepository

	logger *logger.Logger
}

// Config holds collector configuration
type Config struct {
	Workers int // Number of concurrent workers
}

func (c Config) workers() int {
	if c.Workers <= 0 {
		return 4
	}
	return c.Workers
}

// NewCollector creates a new Collector instance
func NewCollector(
	client *eastmoney.Client,
	snapshotRepo *marketdata.SnapshotRepository,
	sectorRepo *marketdata.SectorRepository,
	breadthRepo *marketdata.BreadthRepository,
	log *logger.Logger,
) *Collector {
	return &Collector{
		client:       client,
		snapshotRepo: snapshotRepo,
		sectorRepo:   sectorRepo,
		breadthRepo:  breadthRepo,
		logger:       log.WithField("module", "collector"),
	}
}

// Result summarizes one collection run
type Result struct {
	Snapshots int
	Sectors   int
	Failed    int
}

// CollectDaily pulls the day's quotes, money flow and concept boards,
// derives the trailing fields from stored bar history, and writes
// stock snapshots, sector snapshots and breadth stats. Per-entity
// failures are counted and skipped.
func (c *Collector) CollectDaily(ctx context.Context, date time.Time, cfg Config) (*Result, error) {
	c.logger.WithFields(map[string]interface{}{
		"date":    date.Format("2006-01-02"),
		"workers": cfg.workers(),
	}).Info("Starting daily collection")

	quotes, err := c.client.FetchQuotes(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch quotes: %w", err)
	}
	if len(quotes) == 0 {
		return nil, fmt.Errorf("no quotes for %s", date.Format("2006-01-02"))
	}

	flows, err := c.client.FetchMoneyFlow(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch money flow: %w", err)
	}
	flowByCode := make(map[string]eastmoney.MoneyFlow, len(flows))
	for _, f := range flows {
		flowByCode[f.Code] = f
	}

	membership, boards, err := c.collectConcepts(ctx, date, cfg)
	if err != nil {
		// Concept data degrades the concept factor, not the run.
		c.logger.WithError(err).Warn("Concept collection failed")
	}

	result := &Result{Sectors: boards}

	snapshots := make(map[string]*contracts.StockSnapshot, len(quotes))
	for _, q := range quotes {
		snap := buildSnapshot(date, q, flowByCode[q.Code], membership[q.Code])
		if !snap.Valid() {
			result.Failed++
			continue
		}
		if err := c.snapshotRepo.SaveBar(ctx, q.Code, contracts.DailyBar{
			Date: date, Open: q.Open, High: q.High, Low: q.Low,
			Close: q.Close, Volume: q.Volume, Amount: q.Amount,
		}); err != nil {
			c.logger.WithFields(map[string]interface{}{
				"code":  q.Code,
				"error": err.Error(),
			}).Warn("Bar save failed")
			result.Failed++
			continue
		}
		snapshots[q.Code] = snap
	}

	if err := c.enrichSnapshots(ctx, date, snapshots, cfg); err != nil {
		return nil, fmt.Errorf("enrich snapshots: %w", err)
	}

	for _, snap := range snapshots {
		if err := c.snapshotRepo.SaveSnapshot(ctx, snap); err != nil {
			c.logger.WithFields(map[string]interface{}{
				"code":  snap.Code,
				"error": err.Error(),
			}).Warn("Snapshot save failed")
			result.Failed++
			continue
		}
		result.Snapshots++
	}

	if err := c.saveBreadth(ctx, date, snapshots); err != nil {
		c.logger.WithError(err).Warn("Breadth save failed")
	}

	c.logger.WithFields(map[string]interface{}{
		"snapshots": result.Snapshots,
		"sectors":   result.Sectors,
		"failed":    result.Failed,
	}).Info("Daily collection completed")

	return result, nil
}

// enrichSnapshots loads each stock's bar history over a worker pool,
// fills the trailing fields and assigns cross-sectional RPS ranks.
func (c *Collector) enrichSnapshots(ctx context.Context, date time.Time, snapshots map[string]*contracts.StockSnapshot, cfg Config) error {
	codes := make(chan string, len(snapshots))
	for code := range snapshots {
		codes <- code
	}
	close(codes)

	var mu sync.Mutex
	returns20 := make(map[string]float64, len(snapshots))
	returns50 := make(map[string]float64, len(snapshots))
	returns120 := make(map[string]float64, len(snapshots))

	var wg sync.WaitGroup
	for w := 0; w < cfg.workers(); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for code := range codes {
				select {
				case <-ctx.Done():
					return
				default:
				}

				bars, err := c.snapshotRepo.GetBars(ctx, code, date, 121)
				if err != nil {
					c.logger.WithFields(map[string]interface{}{
						"code":  code,
						"error": err.Error(),
					}).Warn("History load failed")
					continue
				}
				// GetBars returns most-recent-first; the derivations
				// walk ascending history.
				reverse(bars)

				snap := snapshots[code]
				enrichFromHistory(snap, bars)

				mu.Lock()
				returns20[code] = nDayReturn(bars, 20)
				returns50[code] = nDayReturn(bars, 50)
				returns120[code] = nDayReturn(bars, 120)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}

	assignRPS(snapshots, returns20, 20)
	assignRPS(snapshots, returns50, 50)
	assignRPS(snapshots, returns120, 120)
	return nil
}

// saveBreadth derives advance/decline/limit-up counts from the day's
// snapshots and index returns from the index kline history.
func (c *Collector) saveBreadth(ctx context.Context, date time.Time, snapshots map[string]*contracts.StockSnapshot) error {
	stats := &contracts.BreadthStats{Date: date}
	for _, snap := range snapshots {
		switch {
		case snap.ChangePct > 0:
			stats.AdvanceCount++
		case snap.ChangePct < 0:
			stats.DeclineCount++
		}
		if snap.IsLimitUp {
			stats.LimitUpCount++
		}
	}

	indexBars, err := c.client.FetchIndexBars(ctx, indexSecID, 6)
	if err != nil {
		return fmt.Errorf("fetch index bars: %w", err)
	}
	stats.IndexReturn1D = indexReturn(indexBars, 1)
	stats.IndexReturn5D = indexReturn(indexBars, 5)

	return c.breadthRepo.SaveBreadth(ctx, stats)
}

// indexReturn is the close-over-close percent return across the last n
// bars of an ascending kline series.
func indexReturn(bars []eastmoney.IndexBar, n int) float64 {
	if len(bars) < n+1 {
		return 0
	}
	base := bars[len(bars)-1-n].Close
	if base <= 0 {
		return 0
	}
	ret := (bars[len(bars)-1].Close - base) / base * 100
	if math.IsNaN(ret) {
		return 0
	}
	return ret
}

func reverse(bars []contracts.DailyBar) {
	for i, j := 0, len(bars)-1; i < j; i, j = i+1, j-1 {
		bars[i], bars[j] = bars[j], bars[i]
	}
}

// collectConcepts fetches the board list and each board's constituents
// over a worker pool, returning per-stock membership.
func (c *Collector) collectConcepts(ctx context.Context, date time.Time, cfg Config) (map[string]map[string]float64, int, error) {
	boards, err := c.client.FetchConceptBoards(ctx)
	if err != nil {
		return nil, 0, err
	}

	type boardResult struct {
		board eastmoney.ConceptBoard
		codes []string
	}

	jobs := make(chan eastmoney.ConceptBoard)
	results := make(chan boardResult, len(boards))

	var wg sync.WaitGroup
	for w := 0; w < cfg.workers(); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for board := range jobs {
				codes, err := c.client.FetchConstituents(ctx, board.Code)
				if err != nil {
					c.logger.WithFields(map[string]interface{}{
						"board": board.Name,
						"error": err.Error(),
					}).Warn("Constituent fetch failed")
					continue
				}
				results <- boardResult{board: board, codes: codes}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, board := range boards {
			select {
			case <-ctx.Done():
				return
			case jobs <- board:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	membership := make(map[string]map[string]float64)
	saved := 0
	for res := range results {
		if err := c.sectorRepo.SaveSectorSnapshot(ctx, &contracts.SectorSnapshot{
			Name:          res.board.Name,
			Date:          date,
			MainNetInflow: res.board.MainNetInflow,
			LimitUpCount:  res.board.LimitUpCount,
			AvgChangePct:  res.board.ChangePct,
		}); err != nil {
			c.logger.WithError(err).Warn("Sector snapshot save failed")
			continue
		}
		if err := c.sectorRepo.ReplaceConstituents(ctx, date, res.board.Name, res.codes); err != nil {
			c.logger.WithError(err).Warn("Constituent save failed")
			continue
		}
		for _, code := range res.codes {
			if membership[code] == nil {
				membership[code] = make(map[string]float64)
			}
			membership[code][res.board.Name] = 1
		}
		saved++
	}

	return membership, saved, ctx.Err()
}

// buildSnapshot maps provider rows onto the typed snapshot shape.
func buildSnapshot(date time.Time, q eastmoney.Quote, flow eastmoney.MoneyFlow, concepts map[string]float64) *contracts.StockSnapshot {
	return &contracts.StockSnapshot{
		Code:      q.Code,
		Name:      q.Name,
		Date:      date,
		Open:      q.Open,
		High:      q.High,
		Low:       q.Low,
		Close:     q.Close,
		PrevClose: q.PrevClose,
		Volume:    q.Volume,
		Amount:    q.Amount,

		ChangePct:    q.ChangePct,
		TurnoverRate: q.TurnoverRate,
		VolumeRatio:  q.VolumeRatio,

		MainNetInflow:       flow.MainNet,
		SuperLargeNetInflow: flow.SuperLargeNet,
		LargeNetInflow:      flow.LargeNet,
		MediumNetInflow:     flow.MediumNet,
		SmallNetInflow:      flow.SmallNet,

		Concepts: concepts,
	}
}
