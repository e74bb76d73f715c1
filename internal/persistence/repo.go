// Package persistence defines the rating engine's optional snapshot
// store: a host application may ask the engine to mirror player
// ratings and contest detail records into a database so they survive
// process restarts, independent of the in-memory Engine that remains
// the source of truth while the process is alive.
package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elommr/ratingengine/internal/ratings"
)

// PlayerSnapshot is one player's rating state as of UpdatedAt.
// PerfsJSON, WeightsJSON and HistoryJSON are the player's full mixture
// state (ratings.PlayerSnapshot's Perfs/Weights/History fields) as
// JSON, matching the upsert-by-natural-key pattern this repo's tables
// use for irregularly-shaped per-row data.
type PlayerSnapshot struct {
	PlayerID    int64     `db:"player_id"`
	Mu          float64   `db:"mu"`
	Sigma       float64   `db:"sigma"`
	PerfsJSON   []byte    `db:"perfs_json"`
	WeightsJSON []byte    `db:"weights_json"`
	HistoryJSON []byte    `db:"history_json"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// ContestSnapshot is a contest's detail record as submitted.
type ContestSnapshot struct {
	ContestID   int64     `db:"contest_id"`
	RowsJSON    []byte    `db:"rows_json"`
	SubmittedAt time.Time `db:"submitted_at"`
}

// FromEngineSnapshot converts an engine-side accessor result into the
// row shape this package persists. It is the one place that depends
// on ratings — the engine package itself never imports persistence.
func FromEngineSnapshot(snap ratings.PlayerSnapshot, updatedAt time.Time) (PlayerSnapshot, error) {
	perfsJSON, err := json.Marshal(snap.Perfs)
	if err != nil {
		return PlayerSnapshot{}, fmt.Errorf("failed to marshal perfs: %w", err)
	}
	weightsJSON, err := json.Marshal(snap.Weights)
	if err != nil {
		return PlayerSnapshot{}, fmt.Errorf("failed to marshal weights: %w", err)
	}
	historyJSON, err := json.Marshal(snap.History)
	if err != nil {
		return PlayerSnapshot{}, fmt.Errorf("failed to marshal history: %w", err)
	}
	return PlayerSnapshot{
		PlayerID:    snap.PlayerID,
		Mu:          snap.Mu,
		Sigma:       snap.Sigma,
		PerfsJSON:   perfsJSON,
		WeightsJSON: weightsJSON,
		HistoryJSON: historyJSON,
		UpdatedAt:   updatedAt,
	}, nil
}

// FromEngineContest converts a contest's exported detail vector into
// the row shape this package persists.
func FromEngineContest(detail ratings.ContestDetail, submittedAt time.Time) (ContestSnapshot, error) {
	rowsJSON, err := json.Marshal(detail.Rows)
	if err != nil {
		return ContestSnapshot{}, fmt.Errorf("failed to marshal contest rows: %w", err)
	}
	return ContestSnapshot{ContestID: detail.ContestID, RowsJSON: rowsJSON, SubmittedAt: submittedAt}, nil
}

// TimeRange bounds a window query, inclusive on both ends.
type TimeRange struct {
	From time.Time
	To   time.Time
}

// SnapshotRepo is the host-facing persistence boundary: upsert-by-natural-key
// writes, keyed on player_id / contest_id, plus read paths a host
// application can use to warm a new process or serve historical queries
// without replaying every contest through Engine.Submit again.
type SnapshotRepo interface {
	UpsertPlayer(ctx context.Context, snap PlayerSnapshot) error
	UpsertPlayersBatch(ctx context.Context, snaps []PlayerSnapshot) error
	UpsertContest(ctx context.Context, snap ContestSnapshot) error

	PlayerByID(ctx context.Context, playerID int64) (PlayerSnapshot, error)
	ContestByID(ctx context.Context, contestID int64) (ContestSnapshot, error)
	PlayersWindow(ctx context.Context, tr TimeRange) ([]PlayerSnapshot, error)
	ContestsWindow(ctx context.Context, tr TimeRange) ([]ContestSnapshot, error)
}
