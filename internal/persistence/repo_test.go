package persistence

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elommr/ratingengine/internal/ratings"
)

func TestFromEngineSnapshot_MarshalsMixtureState(t *testing.T) {
	now := time.Now().UTC()
	snap := ratings.PlayerSnapshot{
		PlayerID: 7,
		Mu:       1600,
		Sigma:    300,
		Perfs:    []float64{1500, 1650},
		Weights:  []float64{0.5, 0.5},
		History: []ratings.PlayerHistoryEntry{
			{ContestID: ratings.SentinelContestID, Perf: 1500, Rating: 1500},
			{ContestID: 1, Perf: 1650, Rating: 1600, ContestRank: 1, RatingRank: 1},
		},
	}

	row, err := FromEngineSnapshot(snap, now)
	require.NoError(t, err)

	assert.Equal(t, int64(7), row.PlayerID)
	assert.Equal(t, now, row.UpdatedAt)

	var perfs []float64
	require.NoError(t, json.Unmarshal(row.PerfsJSON, &perfs))
	assert.Equal(t, snap.Perfs, perfs)

	var history []ratings.PlayerHistoryEntry
	require.NoError(t, json.Unmarshal(row.HistoryJSON, &history))
	assert.Equal(t, snap.History, history)
}

func TestFromEngineContest_MarshalsRows(t *testing.T) {
	now := time.Now().UTC()
	detail := ratings.ContestDetail{
		ContestID: 3,
		Rows: []ratings.ContestDetailRow{
			{PlayerID: 1, Score: 100, Rating: 1600, RatingRank: 1},
		},
	}

	row, err := FromEngineContest(detail, now)
	require.NoError(t, err)
	assert.Equal(t, int64(3), row.ContestID)

	var rows []ratings.ContestDetailRow
	require.NoError(t, json.Unmarshal(row.RowsJSON, &rows))
	assert.Equal(t, detail.Rows, rows)
}
