// Package metrics exposes the rating engine's Prometheus instrumentation:
// submit latency, population counters, and the ops-surface counters for
// the read-through cache and its circuit breaker.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Registry holds every metric this service exports.
type Registry struct {
	SubmitDuration    *prometheus.HistogramVec
	SubmitParticipants prometheus.Histogram
	ContestsSubmitted prometheus.Counter
	KnownPlayers      prometheus.Gauge

	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec

	BreakerStateChanges *prometheus.CounterVec
	BreakerState        prometheus.Gauge
}

// NewRegistry builds and registers every metric with prometheus's
// default registry.
func NewRegistry() *Registry {
	r := &Registry{
		SubmitDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "elommr_submit_duration_seconds",
				Help:    "Duration of Engine.Submit by outcome",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
			},
			[]string{"result"},
		),
		SubmitParticipants: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "elommr_submit_participants",
				Help:    "Number of scoreboard entries per submitted contest",
				Buckets: []float64{2, 4, 8, 16, 32, 64, 128, 256, 512, 1024},
			},
		),
		ContestsSubmitted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "elommr_contests_submitted_total",
				Help: "Total number of contests successfully submitted",
			},
		),
		KnownPlayers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "elommr_known_players",
				Help: "Number of distinct players the engine has rated",
			},
		),
		CacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "elommr_cache_hits_total",
				Help: "Read-through cache hits by query kind",
			},
			[]string{"kind"},
		),
		CacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "elommr_cache_misses_total",
				Help: "Read-through cache misses by query kind",
			},
			[]string{"kind"},
		),
		BreakerStateChanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "elommr_cache_breaker_state_changes_total",
				Help: "Cache circuit breaker transitions by to-state",
			},
			[]string{"to_state"},
		),
		BreakerState: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "elommr_cache_breaker_state",
				Help: "Cache circuit breaker state (0=closed, 1=half-open, 2=open)",
			},
		),
	}

	prometheus.MustRegister(
		r.SubmitDuration,
		r.SubmitParticipants,
		r.ContestsSubmitted,
		r.KnownPlayers,
		r.CacheHits,
		r.CacheMisses,
		r.BreakerStateChanges,
		r.BreakerState,
	)

	return r
}

// SubmitTimer times one Engine.Submit call.
type SubmitTimer struct {
	r             *Registry
	start         time.Time
	participants int
}

// StartSubmit begins timing a contest submission of n participants.
func (r *Registry) StartSubmit(participants int) *SubmitTimer {
	return &SubmitTimer{r: r, start: time.Now(), participants: participants}
}

// Stop records the submit's duration and participant count under result
// ("ok" or "error").
func (st *SubmitTimer) Stop(result string) {
	duration := time.Since(st.start)
	st.r.SubmitDuration.WithLabelValues(result).Observe(duration.Seconds())
	if result == "ok" {
		st.r.SubmitParticipants.Observe(float64(st.participants))
		st.r.ContestsSubmitted.Inc()
	}
	log.Debug().Str("result", result).Dur("duration", duration).Int("participants", st.participants).Msg("submit recorded")
}

// RecordCacheHit increments the hit counter for a query kind ("ratings",
// "rating", "history", "contest").
func (r *Registry) RecordCacheHit(kind string) { r.CacheHits.WithLabelValues(kind).Inc() }

// RecordCacheMiss increments the miss counter for a query kind.
func (r *Registry) RecordCacheMiss(kind string) { r.CacheMisses.WithLabelValues(kind).Inc() }

// RecordBreakerStateChange records the breaker's new state both as a
// counter event and as the current-state gauge.
func (r *Registry) RecordBreakerStateChange(toState string) {
	r.BreakerStateChanges.WithLabelValues(toState).Inc()
	switch toState {
	case "closed":
		r.BreakerState.Set(0)
	case "half-open":
		r.BreakerState.Set(1)
	case "open":
		r.BreakerState.Set(2)
	}
}

// SetKnownPlayers updates the known-player population gauge.
func (r *Registry) SetKnownPlayers(n int) { r.KnownPlayers.Set(float64(n)) }

// Handler exposes the /metrics scrape endpoint.
func (r *Registry) Handler() http.Handler { return promhttp.Handler() }
