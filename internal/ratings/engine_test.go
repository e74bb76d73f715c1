package ratings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmit_EmptyScoreboardIsNoOp(t *testing.T) {
	e := NewDefault()
	e.Submit(1, []ScoreEntry{{PlayerID: 1, Score: 10}})
	before := e.ExportPlayerRatings()

	result := e.Submit(2, nil)

	assert.Nil(t, result)
	assert.ElementsMatch(t, before, e.ExportPlayerRatings())
}

func TestSubmit_SinglePlayerContestLeavesRatingUnchanged(t *testing.T) {
	e := NewDefault()
	e.Submit(1, []ScoreEntry{{PlayerID: 1, Score: 100}})

	mu, ok := e.GetRatingOf(1)
	require.True(t, ok)
	assert.InDelta(t, 1500.0, mu, 1e-6)
}

func TestSubmit_S1_TwoPlayersWinnerBeatsLoser(t *testing.T) {
	e := NewDefault()
	e.Submit(1, []ScoreEntry{{PlayerID: 1, Score: 100}, {PlayerID: 2, Score: 50}})

	mu1, _ := e.GetRatingOf(1)
	mu2, _ := e.GetRatingOf(2)

	assert.Greater(t, mu1, 1500.0)
	assert.Less(t, mu2, 1500.0)

	ratings := e.ExportPlayerRatings()
	assert.Len(t, ratings, 2)

	h1, ok := e.ExportPlayerHistoryOf(1)
	require.True(t, ok)
	require.Len(t, h1, 2)
	assert.Equal(t, int64(1), h1[1].ContestID)
	assert.Equal(t, 1, h1[1].ContestRank)
	assert.Equal(t, 1, h1[1].RatingRank)

	h2, ok := e.ExportPlayerHistoryOf(2)
	require.True(t, ok)
	assert.Equal(t, 2, h2[1].RatingRank)
}

func TestSubmit_S2_ExactTieIsSymmetric(t *testing.T) {
	e := NewDefault()
	e.Submit(1, []ScoreEntry{{PlayerID: 1, Score: 50}, {PlayerID: 2, Score: 50}})

	mu1, _ := e.GetRatingOf(1)
	mu2, _ := e.GetRatingOf(2)
	assert.InDelta(t, mu1, mu2, 1e-9)

	h1, _ := e.ExportPlayerHistoryOf(1)
	h2, _ := e.ExportPlayerHistoryOf(2)
	assert.Equal(t, 1, h1[1].RatingRank)
	assert.Equal(t, 1, h2[1].RatingRank)
}

func TestSubmit_S3_ThreeWayWithOneTie(t *testing.T) {
	e := NewDefault()
	e.Submit(1, []ScoreEntry{
		{PlayerID: 1, Score: 100},
		{PlayerID: 2, Score: 80},
		{PlayerID: 3, Score: 80},
	})

	mu1, _ := e.GetRatingOf(1)
	mu2, _ := e.GetRatingOf(2)
	mu3, _ := e.GetRatingOf(3)

	assert.Greater(t, mu1, mu2)
	assert.InDelta(t, mu2, mu3, 1e-9)
}

func TestSubmit_S4_TwoConsecutiveContestsMoveSigma(t *testing.T) {
	e := NewDefault()
	e.Submit(1, []ScoreEntry{{PlayerID: 1, Score: 10}, {PlayerID: 2, Score: 5}})
	sigmaAfterFirst := e.players.get(1).sigma
	assert.Greater(t, sigmaAfterFirst, 0.0)

	e.Submit(2, []ScoreEntry{{PlayerID: 1, Score: 10}, {PlayerID: 2, Score: 5}})
	sigmaAfterSecond := e.players.get(1).sigma
	assert.NotEqual(t, sigmaAfterFirst, sigmaAfterSecond)
}

func TestSubmit_S5_ContestDetailRoundTrip(t *testing.T) {
	e := NewDefault()
	e.Submit(1, []ScoreEntry{{PlayerID: 1, Score: 100}, {PlayerID: 2, Score: 50}})

	detail, ok := e.ExportContestDetailOf(1)
	require.True(t, ok)
	require.Len(t, detail.Rows, 2)

	ids := map[int64]ContestDetailRow{}
	for _, r := range detail.Rows {
		ids[r.PlayerID] = r
	}
	assert.Contains(t, ids, int64(1))
	assert.Contains(t, ids, int64(2))
	assert.Equal(t, int64(100), ids[1].Score)
	assert.Equal(t, int64(50), ids[2].Score)

	h1, _ := e.ExportPlayerHistoryOf(1)
	assert.Equal(t, h1[len(h1)-1].RatingRank, ids[1].RatingRank)
}

func TestSubmit_S6_EveryParticipantRatingRankBackfilled(t *testing.T) {
	e := NewDefault()
	e.Submit(1, []ScoreEntry{
		{PlayerID: 1, Score: 30},
		{PlayerID: 2, Score: 30},
		{PlayerID: 3, Score: 10},
	})

	for _, id := range []int64{1, 2, 3} {
		h, ok := e.ExportPlayerHistoryOf(id)
		require.True(t, ok)
		assert.NotZero(t, h[len(h)-1].RatingRank)
	}
}

func TestPlayer_PerfsAndWeightsStayAligned(t *testing.T) {
	e := NewDefault()
	for contestID := int64(1); contestID <= 3; contestID++ {
		e.Submit(contestID, []ScoreEntry{{PlayerID: 7, Score: contestID}, {PlayerID: 8, Score: -contestID}})
	}

	p := e.players.get(7)
	assert.Equal(t, len(p.perfs), len(p.weights))

	h, _ := e.ExportPlayerHistoryOf(7)
	assert.Len(t, h, 4) // sentinel + 3 contests
}
