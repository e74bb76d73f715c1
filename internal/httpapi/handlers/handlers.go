// Package handlers implements the rating engine's read-only query
// surface: ratings, history and contest-detail lookups, plus health.
// It never accepts writes — contest submission is a CLI/ingest
// concern, never an HTTP one.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/elommr/ratingengine/internal/cache"
	"github.com/elommr/ratingengine/internal/ratings"
)

// Handlers serves queries against a shared Engine, preferring cache
// when one is wired.
type Handlers struct {
	engine *ratings.Engine
	cache  *cache.RatingCache
}

// NewHandlers wires a Handlers to the engine it queries and, when
// ratingCache is non-nil, the read-through cache in front of it.
func NewHandlers(engine *ratings.Engine, ratingCache *cache.RatingCache) *Handlers {
	return &Handlers{engine: engine, cache: ratingCache}
}

// ErrorResponse is the standard JSON error body.
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Code      string    `json:"code"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, `{"error":"json_encoding_failed"}`, http.StatusInternalServerError)
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	requestID, _ := r.Context().Value(requestIDKey{}).(string)
	if requestID == "" {
		requestID = "unknown"
	}
	h.writeJSON(w, status, ErrorResponse{
		Error:     http.StatusText(status),
		Message:   message,
		Code:      code,
		RequestID: requestID,
		Timestamp: time.Now().UTC(),
	})
}

// requestIDKey is the context key the request-ID middleware stores
// under; it lives here so handlers and middleware agree on it without
// the stringly-typed context key that invites collisions.
type requestIDKey struct{}

// RequestIDKey exports requestIDKey for the middleware in server.go.
var RequestIDKey = requestIDKey{}

// NotFound handles unmatched routes.
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	h.writeError(w, r, http.StatusNotFound, "endpoint_not_found", "the requested endpoint does not exist")
}

// Ratings handles GET /ratings: every known player's current rating.
func (h *Handlers) Ratings(w http.ResponseWriter, r *http.Request) {
	if h.cache != nil {
		h.writeJSON(w, http.StatusOK, h.cache.GetAllRatings(r.Context()))
		return
	}
	h.writeJSON(w, http.StatusOK, h.engine.ExportPlayerRatings())
}

// RatingOf handles GET /ratings/{id}.
func (h *Handlers) RatingOf(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid_player_id", "player id must be an integer")
		return
	}
	var mu float64
	var ok bool
	if h.cache != nil {
		mu, ok = h.cache.GetRating(r.Context(), id)
	} else {
		mu, ok = h.engine.GetRatingOf(id)
	}
	if !ok {
		h.writeError(w, r, http.StatusNotFound, "unknown_player", "no rating recorded for this player")
		return
	}
	h.writeJSON(w, http.StatusOK, ratings.RatingEntry{PlayerID: id, Rating: mu})
}

// HistoryOf handles GET /history/{id}: the player's full contest
// history, sentinel entry included.
func (h *Handlers) HistoryOf(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid_player_id", "player id must be an integer")
		return
	}
	var history []ratings.PlayerHistoryEntry
	var ok bool
	if h.cache != nil {
		history, ok = h.cache.GetHistory(r.Context(), id)
	} else {
		history, ok = h.engine.ExportPlayerHistoryOf(id)
	}
	if !ok {
		h.writeError(w, r, http.StatusNotFound, "unknown_player", "no history recorded for this player")
		return
	}
	h.writeJSON(w, http.StatusOK, history)
}

// ContestOf handles GET /contests/{id}.
func (h *Handlers) ContestOf(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid_contest_id", "contest id must be an integer")
		return
	}
	var detail ratings.ContestDetail
	var ok bool
	if h.cache != nil {
		detail, ok = h.cache.GetContest(r.Context(), id)
	} else {
		detail, ok = h.engine.ExportContestDetailOf(id)
	}
	if !ok {
		h.writeError(w, r, http.StatusNotFound, "unknown_contest", "no contest recorded with this id")
		return
	}
	h.writeJSON(w, http.StatusOK, detail)
}
