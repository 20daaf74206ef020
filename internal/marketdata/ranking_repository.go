package marketdata

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jwliu/vantage/internal/contracts"
)

// ErrNotFound reports that no row exists for the requested date.
var ErrNotFound = errors.New("not found")

// RankingRepository implements contracts.RankingRepository. Candidates
// are stored row-per-stock with their diagnostic tags and factor
// snapshot as jsonb, so a stored run is fully reproducible.
type RankingRepository struct {
	pool *pgxpool.Pool
}

// NewRankingRepository creates a new ranking repository
func NewRankingRepository(pool *pgxpool.Pool) *RankingRepository {
	return &RankingRepository{pool: pool}
}

// SaveRankedList persists one date's ranked list, replacing any
// earlier run for the same date.
func (r *RankingRepository) SaveRankedList(ctx context.Context, list *contracts.RankedList) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO quant.ranked_lists (trade_date, regime, run_id, config_hash)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (trade_date) DO UPDATE SET
			regime = EXCLUDED.regime,
			run_id = EXCLUDED.run_id,
			config_hash = EXCLUDED.config_hash
	`, list.Date, list.Regime, list.RunID, list.ConfigHash); err != nil {
		return fmt.Errorf("save list header: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM quant.ranked_candidates WHERE trade_date = $1`,
		list.Date,
	); err != nil {
		return fmt.Errorf("clear candidates: %w", err)
	}

	for _, c := range list.Candidates {
		if _, err := tx.Exec(ctx, `
			INSERT INTO quant.ranked_candidates (
				trade_date, code, rank, technical_score, capital_score, concept_score,
				composite, adjusted, vetoed, funnel_stage, tags, factors
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`,
			list.Date, c.Code, c.Rank, c.TechnicalScore, c.CapitalScore, c.ConceptScore,
			c.Composite, c.Adjusted, c.Vetoed, c.FunnelStage.String(), c.Tags, c.Factors,
		); err != nil {
			return fmt.Errorf("save candidate %s: %w", c.Code, err)
		}
	}

	return tx.Commit(ctx)
}

// GetRankedList retrieves the ranked list for a trade date
func (r *RankingRepository) GetRankedList(ctx context.Context, date time.Time) (*contracts.RankedList, error) {
	list := &contracts.RankedList{Date: date}

	err := r.pool.QueryRow(ctx, `
		SELECT regime, run_id, config_hash
		FROM quant.ranked_lists
		WHERE trade_date = $1
	`, date).Scan(&list.Regime, &list.RunID, &list.ConfigHash)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("no ranked list for %s: %w", date.Format("2006-01-02"), ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT code, rank, technical_score, capital_score, concept_score,
		       composite, adjusted, vetoed, tags, factors
		FROM quant.ranked_candidates
		WHERE trade_date = $1
		ORDER BY rank ASC
	`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		c := &contracts.ScoredCandidate{Date: date, FunnelStage: contracts.StageSurvived}
		if err := rows.Scan(
			&c.Code, &c.Rank, &c.TechnicalScore, &c.CapitalScore, &c.ConceptScore,
			&c.Composite, &c.Adjusted, &c.Vetoed, &c.Tags, &c.Factors,
		); err != nil {
			return nil, err
		}
		list.Candidates = append(list.Candidates, c)
	}
	return list, rows.Err()
}

// PruneBefore deletes ranked lists older than the cutoff date and
// returns the number of list rows removed.
func (r *RankingRepository) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		DELETE FROM quant.ranked_candidates WHERE trade_date < $1
	`, cutoff); err != nil {
		return 0, fmt.Errorf("prune candidates: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		DELETE FROM quant.ranked_lists WHERE trade_date < $1
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune lists: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
