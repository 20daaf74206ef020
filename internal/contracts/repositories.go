package contracts

import (
	"context"
	"time"
)

// SnapshotRepository reads per-stock daily snapshots written by the
// ingestion collaborator. All reads are as-of a trade date.
type SnapshotRepository interface {
	// GetUniverse returns all stock snapshots for a trade date
	GetUniverse(ctx context.Context, date time.Time) ([]*StockSnapshot, error)
	// GetBars returns up to limit daily bars for a stock ending at date,
	// most recent first
	GetBars(ctx context.Context, code string, date time.Time, limit int) ([]DailyBar, error)
	// GetForwardBars returns up to limit daily bars strictly after date,
	// oldest first
	GetForwardBars(ctx context.Context, code string, date time.Time, limit int) ([]DailyBar, error)
}

// SectorRepository reads sector/concept aggregates and constituents.
type SectorRepository interface {
	GetSectorSnapshots(ctx context.Context, date time.Time) ([]*SectorSnapshot, error)
	// GetConstituents returns concept name -> constituent stock codes.
	// A concept whose constituents cannot be resolved maps to nil.
	GetConstituents(ctx context.Context, date time.Time) (map[string][]string, error)
}

// BreadthRepository reads market breadth statistics.
type BreadthRepository interface {
	GetBreadth(ctx context.Context, date time.Time) (*BreadthStats, error)
}

// CalendarRepository resolves trading days.
type CalendarRepository interface {
	TradingDays(ctx context.Context, from, to time.Time) ([]time.Time, error)
	IsTradingDay(ctx context.Context, date time.Time) (bool, error)
}

// RankingRepository persists and serves ranked lists for the API layer.
type RankingRepository interface {
	SaveRankedList(ctx context.Context, list *RankedList) error
	GetRankedList(ctx context.Context, date time.Time) (*RankedList, error)
}

// BacktestRepository persists backtest output.
type BacktestRepository interface {
	SaveReport(ctx context.Context, report *BacktestReport) error
}
