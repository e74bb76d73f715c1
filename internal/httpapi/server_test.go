package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elommr/ratingengine/internal/ratings"
)

func TestServer_ServesRatingsAndHealth(t *testing.T) {
	engine := ratings.NewDefault()
	engine.Submit(1, []ratings.ScoreEntry{{PlayerID: 1, Score: 100}, {PlayerID: 2, Score: 50}})

	cfg := DefaultConfig()
	cfg.Port = 18743
	server, err := NewServer(cfg, engine, nil, nil)
	require.NoError(t, err)

	go server.Start()
	defer server.Shutdown(context.Background())
	time.Sleep(50 * time.Millisecond)

	base := fmt.Sprintf("http://%s", server.Address())

	resp, err := http.Get(base + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp2, err := http.Get(base + "/ratings/1")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusOK, resp2.StatusCode)

	var entry ratings.RatingEntry
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&entry))
	assert.Equal(t, int64(1), entry.PlayerID)
}

func TestServer_NotFoundRoute(t *testing.T) {
	engine := ratings.NewDefault()
	cfg := DefaultConfig()
	cfg.Port = 18744
	server, err := NewServer(cfg, engine, nil, nil)
	require.NoError(t, err)

	go server.Start()
	defer server.Shutdown(context.Background())
	time.Sleep(50 * time.Millisecond)

	resp, err := http.Get(fmt.Sprintf("http://%s/does-not-exist", server.Address()))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
