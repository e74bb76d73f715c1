package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elommr/ratingengine/internal/persistence"
)

func newMockRepo(t *testing.T) (persistence.SnapshotRepo, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	repo := NewSnapshotRepo(sqlxDB, time.Second)
	return repo, mock, func() { db.Close() }
}

func TestSnapshotRepo_UpsertPlayer(t *testing.T) {
	repo, mock, cleanup := newMockRepo(t)
	defer cleanup()

	now := time.Now().UTC()
	mock.ExpectExec("INSERT INTO player_snapshots").
		WithArgs(int64(1), 1600.0, 300.0, []byte("[]"), []byte("[]"), []byte("[]"), now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpsertPlayer(context.Background(), persistence.PlayerSnapshot{
		PlayerID:    1,
		Mu:          1600,
		Sigma:       300,
		PerfsJSON:   []byte("[]"),
		WeightsJSON: []byte("[]"),
		HistoryJSON: []byte("[]"),
		UpdatedAt:   now,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotRepo_UpsertPlayersBatch_Empty(t *testing.T) {
	repo, mock, cleanup := newMockRepo(t)
	defer cleanup()

	err := repo.UpsertPlayersBatch(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotRepo_UpsertPlayersBatch_CommitsTransaction(t *testing.T) {
	repo, mock, cleanup := newMockRepo(t)
	defer cleanup()

	now := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectPrepare("INSERT INTO player_snapshots")
	mock.ExpectExec("INSERT INTO player_snapshots").
		WithArgs(int64(1), 1600.0, 300.0, []byte("[]"), []byte("[]"), []byte("[]"), now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO player_snapshots").
		WithArgs(int64(2), 1400.0, 320.0, []byte("[]"), []byte("[]"), []byte("[]"), now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.UpsertPlayersBatch(context.Background(), []persistence.PlayerSnapshot{
		{PlayerID: 1, Mu: 1600, Sigma: 300, PerfsJSON: []byte("[]"), WeightsJSON: []byte("[]"), HistoryJSON: []byte("[]"), UpdatedAt: now},
		{PlayerID: 2, Mu: 1400, Sigma: 320, PerfsJSON: []byte("[]"), WeightsJSON: []byte("[]"), HistoryJSON: []byte("[]"), UpdatedAt: now},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotRepo_PlayerByID(t *testing.T) {
	repo, mock, cleanup := newMockRepo(t)
	defer cleanup()

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"player_id", "mu", "sigma", "perfs_json", "weights_json", "history_json", "updated_at"}).
		AddRow(int64(5), 1550.0, 280.0, []byte("[]"), []byte("[]"), []byte("[]"), now)
	mock.ExpectQuery("SELECT player_id, mu, sigma, perfs_json, weights_json, history_json, updated_at FROM player_snapshots").
		WithArgs(int64(5)).
		WillReturnRows(rows)

	snap, err := repo.PlayerByID(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), snap.PlayerID)
	assert.Equal(t, 1550.0, snap.Mu)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotRepo_ContestByID_NotFound(t *testing.T) {
	repo, mock, cleanup := newMockRepo(t)
	defer cleanup()

	mock.ExpectQuery("SELECT contest_id, rows_json, submitted_at FROM contest_snapshots").
		WithArgs(int64(404)).
		WillReturnError(sqlmock.ErrCancelled)

	_, err := repo.ContestByID(context.Background(), 404)
	assert.Error(t, err)
}
