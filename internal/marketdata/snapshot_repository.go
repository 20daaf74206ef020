package marketdata

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jwliu/vantage/internal/contracts"
)

// SnapshotRepository implements contracts.SnapshotRepository over the
// market.stock_snapshots and market.daily_bars tables written by the
// ingestion jobs.
type SnapshotRepository struct {
	pool *pgxpool.Pool
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(pool *pgxpool.Pool) *SnapshotRepository {
	return &SnapshotRepository{pool: pool}
}

// GetUniverse retrieves all stock snapshots for a trade date
func (r *SnapshotRepository) GetUniverse(ctx context.Context, date time.Time) ([]*contracts.StockSnapshot, error) {
	query := `
		SELECT code, name, trade_date, open_price, high_price, low_price, close_price,
		       prev_close, volume, amount, change_pct, turnover_rate, volume_ratio,
		       ma5, ma10, ma20, ma60, rps_20, rps_50, rps_120, vcp_tightness,
		       main_net_inflow, super_large_net_inflow, large_net_inflow,
		       medium_net_inflow, small_net_inflow,
		       avg_amount_20, strong_days_60, history_days, listing_days,
		       is_st, is_limit_up, limit_up_price, late_spike_pct, concepts
		FROM market.stock_snapshots
		WHERE trade_date = $1
	`

	rows, err := r.pool.Query(ctx, query, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snapshots []*contracts.StockSnapshot
	for rows.Next() {
		var s contracts.StockSnapshot
		if err := rows.Scan(
			&s.Code, &s.Name, &s.Date, &s.Open, &s.High, &s.Low, &s.Close,
			&s.PrevClose, &s.Volume, &s.Amount, &s.ChangePct, &s.TurnoverRate, &s.VolumeRatio,
			&s.MA5, &s.MA10, &s.MA20, &s.MA60, &s.RPS20, &s.RPS50, &s.RPS120, &s.VCPTightness,
			&s.MainNetInflow, &s.SuperLargeNetInflow, &s.LargeNetInflow,
			&s.MediumNetInflow, &s.SmallNetInflow,
			&s.AvgAmount20, &s.StrongDays60, &s.HistoryDays, &s.ListingDays,
			&s.IsST, &s.IsLimitUp, &s.LimitUpPrice, &s.LateSpikePct, &s.Concepts,
		); err != nil {
			return nil, err
		}
		snapshots = append(snapshots, &s)
	}
	return snapshots, rows.Err()
}

// GetBars retrieves up to limit daily bars ending at date, most recent first
func (r *SnapshotRepository) GetBars(ctx context.Context, code string, date time.Time, limit int) ([]contracts.DailyBar, error) {
	query := `
		SELECT trade_date, open_price, high_price, low_price, close_price, volume, amount
		FROM market.daily_bars
		WHERE code = $1 AND trade_date <= $2
		ORDER BY trade_date DESC
		LIMIT $3
	`
	return r.queryBars(ctx, query, code, date, limit)
}

// GetForwardBars retrieves up to limit daily bars strictly after date, oldest first
func (r *SnapshotRepository) GetForwardBars(ctx context.Context, code string, date time.Time, limit int) ([]contracts.DailyBar, error) {
	query := `
		SELECT trade_date, open_price, high_price, low_price, close_price, volume, amount
		FROM market.daily_bars
		WHERE code = $1 AND trade_date > $2
		ORDER BY trade_date ASC
		LIMIT $3
	`
	return r.queryBars(ctx, query, code, date, limit)
}

func (r *SnapshotRepository) queryBars(ctx context.Context, query, code string, date time.Time, limit int) ([]contracts.DailyBar, error) {
	rows, err := r.pool.Query(ctx, query, code, date, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bars []contracts.DailyBar
	for rows.Next() {
		var b contracts.DailyBar
		if err := rows.Scan(&b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume, &b.Amount); err != nil {
			return nil, err
		}
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// SaveSnapshot upserts one snapshot. Used by the ingestion job.
func (r *SnapshotRepository) SaveSnapshot(ctx context.Context, s *contracts.StockSnapshot) error {
	query := `
		INSERT INTO market.stock_snapshots (
			code, name, trade_date, open_price, high_price, low_price, close_price,
			prev_close, volume, amount, change_pct, turnover_rate, volume_ratio,
			ma5, ma10, ma20, ma60, rps_20, rps_50, rps_120, vcp_tightness,
			main_net_inflow, super_large_net_inflow, large_net_inflow,
			medium_net_inflow, small_net_inflow,
			avg_amount_20, strong_days_60, history_days, listing_days,
			is_st, is_limit_up, limit_up_price, late_spike_pct, concepts
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
			$18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32,
			$33, $34, $35
		)
		ON CONFLICT (code, trade_date) DO UPDATE SET
			close_price = EXCLUDED.close_price,
			volume = EXCLUDED.volume,
			amount = EXCLUDED.amount,
			change_pct = EXCLUDED.change_pct,
			volume_ratio = EXCLUDED.volume_ratio,
			main_net_inflow = EXCLUDED.main_net_inflow,
			super_large_net_inflow = EXCLUDED.super_large_net_inflow,
			late_spike_pct = EXCLUDED.late_spike_pct,
			concepts = EXCLUDED.concepts
	`

	_, err := r.pool.Exec(ctx, query,
		s.Code, s.Name, s.Date, s.Open, s.High, s.Low, s.Close,
		s.PrevClose, s.Volume, s.Amount, s.ChangePct, s.TurnoverRate, s.VolumeRatio,
		s.MA5, s.MA10, s.MA20, s.MA60, s.RPS20, s.RPS50, s.RPS120, s.VCPTightness,
		s.MainNetInflow, s.SuperLargeNetInflow, s.LargeNetInflow,
		s.MediumNetInflow, s.SmallNetInflow,
		s.AvgAmount20, s.StrongDays60, s.HistoryDays, s.ListingDays,
		s.IsST, s.IsLimitUp, s.LimitUpPrice, s.LateSpikePct, s.Concepts,
	)
	return err
}

// SaveBar upserts one daily bar
func (r *SnapshotRepository) SaveBar(ctx context.Context, code string, bar contracts.DailyBar) error {
	query := `
		INSERT INTO market.daily_bars (code, trade_date, open_price, high_price, low_price, close_price, volume, amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (code, trade_date) DO UPDATE SET
			open_price = EXCLUDED.open_price,
			high_price = EXCLUDED.high_price,
			low_price = EXCLUDED.low_price,
			close_price = EXCLUDED.close_price,
			volume = EXCLUDED.volume,
			amount = EXCLUDED.amount
	`

	_, err := r.pool.Exec(ctx, query,
		code, bar.Date, bar.Open, bar.High, bar.Low, bar.Close, bar.Volume, bar.Amount,
	)
	return err
}
