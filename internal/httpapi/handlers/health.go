package handlers

import (
	"net/http"
	"time"
)

// HealthResponse reports the engine's liveness and population size; it
// carries no circuit or rate-limit detail because this server has no
// outbound calls of its own to break on.
type HealthResponse struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	KnownPlayers int      `json:"known_players"`
	Contests     int      `json:"contests_submitted"`
}

// Health handles GET /health.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, HealthResponse{
		Status:       "healthy",
		Timestamp:    time.Now().UTC(),
		KnownPlayers: len(h.engine.ExportPlayerRatings()),
		Contests:     len(h.engine.ExportContestDetails()),
	})
}
