package marketdata

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jwliu/vantage/internal/contracts"
)

// BacktestRepository implements contracts.BacktestRepository.
type BacktestRepository struct {
	pool *pgxpool.Pool
}

// NewBacktestRepository creates a new backtest repository
func NewBacktestRepository(pool *pgxpool.Pool) *BacktestRepository {
	return &BacktestRepository{pool: pool}
}

// SaveReport persists a backtest report with its per-entry records.
// Records are immutable once written; a report row gets a fresh id
// every run.
func (r *BacktestRepository) SaveReport(ctx context.Context, report *contracts.BacktestReport) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var reportID int64
	if err := tx.QueryRow(ctx, `
		INSERT INTO quant.backtest_reports (
			from_date, to_date, total_entries, wins, fails, stop_outs,
			win_rate, avg_return, avg_max_return, avg_drawdown_avoided, config_hash
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`,
		report.From, report.To, report.TotalEntries, report.Wins, report.Fails,
		report.StopOuts, report.WinRate, report.AvgReturn, report.AvgMaxReturn,
		report.AvgDrawdownAvoided, report.ConfigHash,
	).Scan(&reportID); err != nil {
		return fmt.Errorf("save report header: %w", err)
	}

	for _, rec := range report.Records {
		if _, err := tx.Exec(ctx, `
			INSERT INTO quant.backtest_records (
				report_id, code, entry_date, entry_price, window_days,
				max_return, final_return, stop_price, stop_triggered, stop_day,
				outcome, score, factors
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		`,
			reportID, rec.Code, rec.EntryDate, rec.EntryPrice, rec.WindowDays,
			rec.MaxReturn, rec.FinalReturn, rec.StopPrice, rec.StopTriggered, rec.StopDay,
			string(rec.Outcome), rec.Score, rec.Factors,
		); err != nil {
			return fmt.Errorf("save record %s@%s: %w", rec.Code, rec.EntryDate.Format("2006-01-02"), err)
		}
	}

	return tx.Commit(ctx)
}
