package ratings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotPlayer_RoundTripsThroughRestore(t *testing.T) {
	e := NewDefault()
	e.Submit(1, []ScoreEntry{{PlayerID: 1, Score: 100}, {PlayerID: 2, Score: 50}})
	e.Submit(2, []ScoreEntry{{PlayerID: 1, Score: 10}, {PlayerID: 2, Score: 90}})

	snap, ok := e.SnapshotPlayer(1)
	require.True(t, ok)
	assert.Equal(t, int64(1), snap.PlayerID)
	assert.NotEmpty(t, snap.Perfs)
	assert.NotEmpty(t, snap.Weights)
	assert.Len(t, snap.History, 3)

	fresh := NewDefault()
	fresh.RestorePlayer(snap)

	mu, ok := fresh.GetRatingOf(1)
	require.True(t, ok)
	assert.Equal(t, snap.Mu, mu)

	history, ok := fresh.ExportPlayerHistoryOf(1)
	require.True(t, ok)
	assert.Equal(t, snap.History, history)
}

func TestSnapshotPlayer_UnknownPlayerReturnsFalse(t *testing.T) {
	e := NewDefault()
	_, ok := e.SnapshotPlayer(999)
	assert.False(t, ok)
}

func TestSnapshotContest_MatchesExportContestDetailOf(t *testing.T) {
	e := NewDefault()
	e.Submit(1, []ScoreEntry{{PlayerID: 1, Score: 100}, {PlayerID: 2, Score: 50}})

	snap, ok := e.SnapshotContest(1)
	require.True(t, ok)
	detail, ok := e.ExportContestDetailOf(1)
	require.True(t, ok)
	assert.Equal(t, detail, snap)
}

func TestRestoreContest_InstallsDetailWithoutSubmit(t *testing.T) {
	e := NewDefault()
	detail := ContestDetail{
		ContestID: 42,
		Rows:      []ContestDetailRow{{PlayerID: 1, Score: 10, Rating: 1500}},
	}
	e.RestoreContest(detail)

	got, ok := e.ExportContestDetailOf(42)
	require.True(t, ok)
	assert.Equal(t, detail, got)
}
