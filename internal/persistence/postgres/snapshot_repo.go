// Package postgres implements the snapshot persistence boundary on top
// of sqlx and lib/pq.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/elommr/ratingengine/internal/persistence"
)

// snapshotRepo implements persistence.SnapshotRepo for PostgreSQL.
type snapshotRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewSnapshotRepo wraps an already-open *sqlx.DB.
func NewSnapshotRepo(db *sqlx.DB, timeout time.Duration) persistence.SnapshotRepo {
	return &snapshotRepo{db: db, timeout: timeout}
}

// Open opens a lib/pq connection and wraps it in a snapshotRepo.
func Open(dsn string, timeout time.Duration) (persistence.SnapshotRepo, *sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return NewSnapshotRepo(db, timeout), db, nil
}

const upsertPlayerQuery = `
	INSERT INTO player_snapshots (player_id, mu, sigma, perfs_json, weights_json, history_json, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (player_id) DO UPDATE SET
		mu = EXCLUDED.mu,
		sigma = EXCLUDED.sigma,
		perfs_json = EXCLUDED.perfs_json,
		weights_json = EXCLUDED.weights_json,
		history_json = EXCLUDED.history_json,
		updated_at = EXCLUDED.updated_at`

func (r *snapshotRepo) UpsertPlayer(ctx context.Context, snap persistence.PlayerSnapshot) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, upsertPlayerQuery,
		snap.PlayerID, snap.Mu, snap.Sigma, snap.PerfsJSON, snap.WeightsJSON, snap.HistoryJSON, snap.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert player snapshot: %w", err)
	}
	return nil
}

func (r *snapshotRepo) UpsertPlayersBatch(ctx context.Context, snaps []persistence.PlayerSnapshot) error {
	if len(snaps) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout*time.Duration(len(snaps)/100+1))
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertPlayerQuery)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, snap := range snaps {
		_, err := stmt.ExecContext(ctx,
			snap.PlayerID, snap.Mu, snap.Sigma, snap.PerfsJSON, snap.WeightsJSON, snap.HistoryJSON, snap.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to upsert player snapshot in batch: %w", err)
		}
	}

	return tx.Commit()
}

func (r *snapshotRepo) UpsertContest(ctx context.Context, snap persistence.ContestSnapshot) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO contest_snapshots (contest_id, rows_json, submitted_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (contest_id) DO UPDATE SET
			rows_json = EXCLUDED.rows_json,
			submitted_at = EXCLUDED.submitted_at`

	_, err := r.db.ExecContext(ctx, query, snap.ContestID, snap.RowsJSON, snap.SubmittedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert contest snapshot: %w", err)
	}
	return nil
}

func (r *snapshotRepo) PlayerByID(ctx context.Context, playerID int64) (persistence.PlayerSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var snap persistence.PlayerSnapshot
	query := `SELECT player_id, mu, sigma, perfs_json, weights_json, history_json, updated_at FROM player_snapshots WHERE player_id = $1`
	if err := r.db.GetContext(ctx, &snap, query, playerID); err != nil {
		return persistence.PlayerSnapshot{}, fmt.Errorf("failed to query player snapshot: %w", err)
	}
	return snap, nil
}

func (r *snapshotRepo) ContestByID(ctx context.Context, contestID int64) (persistence.ContestSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var snap persistence.ContestSnapshot
	query := `SELECT contest_id, rows_json, submitted_at FROM contest_snapshots WHERE contest_id = $1`
	if err := r.db.GetContext(ctx, &snap, query, contestID); err != nil {
		return persistence.ContestSnapshot{}, fmt.Errorf("failed to query contest snapshot: %w", err)
	}
	return snap, nil
}

func (r *snapshotRepo) PlayersWindow(ctx context.Context, tr persistence.TimeRange) ([]persistence.PlayerSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT player_id, mu, sigma, perfs_json, weights_json, history_json, updated_at
		FROM player_snapshots
		WHERE updated_at >= $1 AND updated_at <= $2
		ORDER BY updated_at DESC`

	var out []persistence.PlayerSnapshot
	if err := r.db.SelectContext(ctx, &out, query, tr.From, tr.To); err != nil {
		return nil, fmt.Errorf("failed to query player snapshots window: %w", err)
	}
	return out, nil
}

func (r *snapshotRepo) ContestsWindow(ctx context.Context, tr persistence.TimeRange) ([]persistence.ContestSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT contest_id, rows_json, submitted_at
		FROM contest_snapshots
		WHERE submitted_at >= $1 AND submitted_at <= $2
		ORDER BY submitted_at DESC`

	var out []persistence.ContestSnapshot
	if err := r.db.SelectContext(ctx, &out, query, tr.From, tr.To); err != nil {
		return nil, fmt.Errorf("failed to query contest snapshots window: %w", err)
	}
	return out, nil
}
