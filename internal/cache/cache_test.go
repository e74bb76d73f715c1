package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elommr/ratingengine/internal/ratings"
)

// These tests point at a port nothing is listening on, so every Redis
// round-trip fails and GetRating/GetHistory/GetContest must fall back
// to querying the engine directly instead of returning an error.
const unreachableAddr = "127.0.0.1:1"

func newTestEngine() *ratings.Engine {
	e := ratings.NewDefault()
	e.Submit(1, []ratings.ScoreEntry{{PlayerID: 1, Score: 100}, {PlayerID: 2, Score: 50}})
	return e
}

func TestRatingCache_GetRating_FallsBackToEngineWhenRedisDown(t *testing.T) {
	engine := newTestEngine()
	c := New(unreachableAddr, 0, time.Minute, engine, nil)
	defer c.Close()

	mu, ok := c.GetRating(context.Background(), 1)
	require.True(t, ok)
	assert.Greater(t, mu, 1500.0)
}

func TestRatingCache_GetRating_UnknownPlayerMisses(t *testing.T) {
	engine := newTestEngine()
	c := New(unreachableAddr, 0, time.Minute, engine, nil)
	defer c.Close()

	_, ok := c.GetRating(context.Background(), 999)
	assert.False(t, ok)
}

func TestRatingCache_GetAllRatings_FallsBackToEngine(t *testing.T) {
	engine := newTestEngine()
	c := New(unreachableAddr, 0, time.Minute, engine, nil)
	defer c.Close()

	out := c.GetAllRatings(context.Background())
	assert.Len(t, out, 2)
}

func TestRatingCache_GetContest_FallsBackToEngine(t *testing.T) {
	engine := newTestEngine()
	c := New(unreachableAddr, 0, time.Minute, engine, nil)
	defer c.Close()

	detail, ok := c.GetContest(context.Background(), 1)
	require.True(t, ok)
	assert.Equal(t, int64(1), detail.ContestID)
	assert.Len(t, detail.Rows, 2)
}

func TestRatingCache_Invalidate_DoesNotPanicWhenRedisDown(t *testing.T) {
	engine := newTestEngine()
	c := New(unreachableAddr, 0, time.Minute, engine, nil)
	defer c.Close()

	assert.NotPanics(t, func() {
		c.Invalidate(context.Background(), 1, []int64{1, 2})
	})
}
