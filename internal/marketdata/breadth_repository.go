package marketdata

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jwliu/vantage/internal/contracts"
)

// BreadthRepository implements contracts.BreadthRepository.
type BreadthRepository struct {
	pool *pgxpool.Pool
}

// NewBreadthRepository creates a new breadth repository
func NewBreadthRepository(pool *pgxpool.Pool) *BreadthRepository {
	return &BreadthRepository{pool: pool}
}

// GetBreadth retrieves breadth statistics for a trade date. A missing
// row returns (nil, nil): regime detection degrades to balance rather
// than failing the run.
func (r *BreadthRepository) GetBreadth(ctx context.Context, date time.Time) (*contracts.BreadthStats, error) {
	query := `
		SELECT trade_date, advance_count, decline_count, limit_up_count,
		       index_return_1d, index_return_5d
		FROM market.breadth
		WHERE trade_date = $1
	`

	var b contracts.BreadthStats
	err := r.pool.QueryRow(ctx, query, date).Scan(
		&b.Date, &b.AdvanceCount, &b.DeclineCount, &b.LimitUpCount,
		&b.IndexReturn1D, &b.IndexReturn5D,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// SaveBreadth upserts one date's breadth statistics
func (r *BreadthRepository) SaveBreadth(ctx context.Context, b *contracts.BreadthStats) error {
	query := `
		INSERT INTO market.breadth (
			trade_date, advance_count, decline_count, limit_up_count,
			index_return_1d, index_return_5d
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (trade_date) DO UPDATE SET
			advance_count = EXCLUDED.advance_count,
			decline_count = EXCLUDED.decline_count,
			limit_up_count = EXCLUDED.limit_up_count,
			index_return_1d = EXCLUDED.index_return_1d,
			index_return_5d = EXCLUDED.index_return_5d
	`

	_, err := r.pool.Exec(ctx, query,
		b.Date, b.AdvanceCount, b.DeclineCount, b.LimitUpCount,
		b.IndexReturn1D, b.IndexReturn5D,
	)
	return err
}
