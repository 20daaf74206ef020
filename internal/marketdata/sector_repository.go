package marketdata

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jwliu/vantage/internal/contracts"
)

// SectorRepository implements contracts.SectorRepository: per-date
// concept aggregates and constituent lists.
type SectorRepository struct {
	pool *pgxpool.Pool
}

// NewSectorRepository creates a new sector repository
func NewSectorRepository(pool *pgxpool.Pool) *SectorRepository {
	return &SectorRepository{pool: pool}
}

// GetSectorSnapshots retrieves all sector aggregates for a trade date
func (r *SectorRepository) GetSectorSnapshots(ctx context.Context, date time.Time) ([]*contracts.SectorSnapshot, error) {
	query := `
		SELECT name, trade_date, main_net_inflow, super_large_net_inflow,
		       rps_5, rps_10, rps_20, limit_up_count, avg_change_pct
		FROM market.sector_snapshots
		WHERE trade_date = $1
		ORDER BY name
	`

	rows, err := r.pool.Query(ctx, query, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sectors []*contracts.SectorSnapshot
	for rows.Next() {
		var s contracts.SectorSnapshot
		if err := rows.Scan(
			&s.Name, &s.Date, &s.MainNetInflow, &s.SuperLargeNetInflow,
			&s.RPS5, &s.RPS10, &s.RPS20, &s.LimitUpCount, &s.AvgChangePct,
		); err != nil {
			return nil, err
		}
		sectors = append(sectors, &s)
	}
	return sectors, rows.Err()
}

// GetConstituents retrieves concept name -> constituent codes for a
// trade date. Concepts present in sector_snapshots but absent here
// stay unresolved (nil), which the clustering engine isolates.
func (r *SectorRepository) GetConstituents(ctx context.Context, date time.Time) (map[string][]string, error) {
	query := `
		SELECT concept_name, stock_code
		FROM market.sector_constituents
		WHERE trade_date = $1
		ORDER BY concept_name, stock_code
	`

	rows, err := r.pool.Query(ctx, query, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	constituents := make(map[string][]string)
	for rows.Next() {
		var concept, code string
		if err := rows.Scan(&concept, &code); err != nil {
			return nil, err
		}
		constituents[concept] = append(constituents[concept], code)
	}
	return constituents, rows.Err()
}

// SaveSectorSnapshot upserts one sector aggregate
func (r *SectorRepository) SaveSectorSnapshot(ctx context.Context, s *contracts.SectorSnapshot) error {
	query := `
		INSERT INTO market.sector_snapshots (
			name, trade_date, main_net_inflow, super_large_net_inflow,
			rps_5, rps_10, rps_20, limit_up_count, avg_change_pct
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (name, trade_date) DO UPDATE SET
			main_net_inflow = EXCLUDED.main_net_inflow,
			super_large_net_inflow = EXCLUDED.super_large_net_inflow,
			rps_5 = EXCLUDED.rps_5,
			rps_10 = EXCLUDED.rps_10,
			rps_20 = EXCLUDED.rps_20,
			limit_up_count = EXCLUDED.limit_up_count,
			avg_change_pct = EXCLUDED.avg_change_pct
	`

	_, err := r.pool.Exec(ctx, query,
		s.Name, s.Date, s.MainNetInflow, s.SuperLargeNetInflow,
		s.RPS5, s.RPS10, s.RPS20, s.LimitUpCount, s.AvgChangePct,
	)
	return err
}

// ReplaceConstituents replaces a concept's constituent list for a date
func (r *SectorRepository) ReplaceConstituents(ctx context.Context, date time.Time, concept string, codes []string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM market.sector_constituents WHERE trade_date = $1 AND concept_name = $2`,
		date, concept,
	); err != nil {
		return err
	}

	for _, code := range codes {
		if _, err := tx.Exec(ctx,
			`INSERT INTO market.sector_constituents (trade_date, concept_name, stock_code) VALUES ($1, $2, $3)`,
			date, concept, code,
		); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}
