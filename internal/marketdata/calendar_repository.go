package marketdata

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// CalendarRepository implements contracts.CalendarRepository over the
// exchange trading calendar table.
type CalendarRepository struct {
	pool *pgxpool.Pool
}

// NewCalendarRepository creates a new calendar repository
func NewCalendarRepository(pool *pgxpool.Pool) *CalendarRepository {
	return &CalendarRepository{pool: pool}
}

// TradingDays retrieves trading days in [from, to], ascending
func (r *CalendarRepository) TradingDays(ctx context.Context, from, to time.Time) ([]time.Time, error) {
	query := `
		SELECT trade_date
		FROM market.trading_calendar
		WHERE trade_date BETWEEN $1 AND $2 AND is_open
		ORDER BY trade_date ASC
	`

	rows, err := r.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var days []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		days = append(days, d)
	}
	return days, rows.Err()
}

// IsTradingDay reports whether the exchange is open on date
func (r *CalendarRepository) IsTradingDay(ctx context.Context, date time.Time) (bool, error) {
	query := `
		SELECT COUNT(*) > 0
		FROM market.trading_calendar
		WHERE trade_date = $1 AND is_open
	`

	var open bool
	if err := r.pool.QueryRow(ctx, query, date).Scan(&open); err != nil {
		return false, err
	}
	return open, nil
}
