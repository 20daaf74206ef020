package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jwliu/vantage/internal/strategyconfig"
)

// Repository stores decision snapshots: the exact strategy config a
// run executed under, keyed by run ID. A stored ranked list plus its
// snapshot reproduces the run.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new audit repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SaveDecisionSnapshot records the config a run executed under
func (r *Repository) SaveDecisionSnapshot(ctx context.Context, runID string, snap *strategyconfig.DecisionSnapshot) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO audit.decision_snapshots (
			run_id, config_hash, config_yaml, strategy_id, git_commit, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (run_id) DO UPDATE SET
			config_hash = EXCLUDED.config_hash,
			config_yaml = EXCLUDED.config_yaml,
			strategy_id = EXCLUDED.strategy_id,
			git_commit  = EXCLUDED.git_commit,
			created_at  = EXCLUDED.created_at
	`, runID, snap.ConfigHash, snap.ConfigYAML, snap.StrategyID, snap.GitCommit, snap.CreatedAt)
	if err != nil {
		return fmt.Errorf("save decision snapshot: %w", err)
	}
	return nil
}

// GetDecisionSnapshot returns the snapshot for a run ID
func (r *Repository) GetDecisionSnapshot(ctx context.Context, runID string) (*strategyconfig.DecisionSnapshot, error) {
	snap := &strategyconfig.DecisionSnapshot{}
	var createdAt time.Time

	err := r.pool.QueryRow(ctx, `
		SELECT config_hash, config_yaml, strategy_id, git_commit, created_at
		FROM audit.decision_snapshots
		WHERE run_id = $1
	`, runID).Scan(&snap.ConfigHash, &snap.ConfigYAML, &snap.StrategyID, &snap.GitCommit, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("no decision snapshot for run %s", runID)
	}
	if err != nil {
		return nil, err
	}

	snap.CreatedAt = createdAt
	return snap, nil
}
