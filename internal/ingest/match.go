// Package ingest maps the external osu!-API match JSON shape to the
// engine's (contestID, scores) submission calls. It owns only that
// mapping and the player-id filtering the ingestion boundary calls
// for; the actual osu!-API HTTP client stays outside this module, as
// an external tool's job.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/elommr/ratingengine/internal/async"
	"github.com/elommr/ratingengine/internal/cache"
	"github.com/elommr/ratingengine/internal/metrics"
	"github.com/elommr/ratingengine/internal/ratings"
)

// Match is the subset of an osu!-API match payload this package reads.
type Match struct {
	Match struct {
		Name string `json:"name"`
	} `json:"match"`
	Games []Game `json:"games"`
}

// Game is one round within a match; each game becomes one contest.
type Game struct {
	Scores []Score `json:"scores"`
}

// Score is one participant's result within a game.
type Score struct {
	UserID *int64 `json:"user_id"`
	Score  int64  `json:"score"`
}

// ContestSubmission is one (contestID, scores) pair ready for
// Engine.Submit.
type ContestSubmission struct {
	ContestID int64
	Scores    []ratings.ScoreEntry
}

// ParseMatch decodes raw osu!-API match JSON and assigns a monotonic
// contestID to each game, starting from startContestID. Scores with a
// missing or unresolvable user_id are filtered out, since the core
// accepts only integer ids.
func ParseMatch(raw []byte, startContestID int64) ([]ContestSubmission, error) {
	var m Match
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("ingest: failed to parse match JSON: %w", err)
	}

	out := make([]ContestSubmission, 0, len(m.Games))
	contestID := startContestID
	for _, game := range m.Games {
		scores := make([]ratings.ScoreEntry, 0, len(game.Scores))
		for _, s := range game.Scores {
			if s.UserID == nil {
				log.Warn().Str("match", m.Match.Name).Msg("dropping score with unresolvable user_id")
				continue
			}
			scores = append(scores, ratings.ScoreEntry{PlayerID: *s.UserID, Score: s.Score})
		}
		out = append(out, ContestSubmission{ContestID: contestID, Scores: scores})
		contestID++
	}
	return out, nil
}

// Replayer buffers ContestSubmissions arriving faster than they can be
// safely applied — Submit is not safe to call concurrently with
// itself — and flushes them to engine.Submit in arrival order.
type Replayer struct {
	engine  *ratings.Engine
	batcher *async.Batcher[ContestSubmission]
	metrics *metrics.Registry
	cache   *cache.RatingCache
}

// NewReplayer wires a Replayer that flushes through engine.Submit. reg
// and ratingCache may both be nil; when present, reg observes every
// submit and ratingCache is invalidated by contest id right after it.
func NewReplayer(engine *ratings.Engine, cfg async.BatchConfig, reg *metrics.Registry, ratingCache *cache.RatingCache) *Replayer {
	r := &Replayer{engine: engine, metrics: reg, cache: ratingCache}
	r.batcher = async.NewBatcher(r.flush, cfg)
	return r
}

// Start arms the replayer's background flush timer.
func (r *Replayer) Start(ctx context.Context) error { return r.batcher.Start(ctx) }

// Stop flushes any buffered contests and stops the replayer.
func (r *Replayer) Stop(ctx context.Context) error { return r.batcher.Stop(ctx) }

// Submit buffers one contest submission for later sequential replay.
func (r *Replayer) Submit(ctx context.Context, sub ContestSubmission) error {
	return r.batcher.Submit(ctx, sub)
}

// Flush forces replay of whatever is currently buffered.
func (r *Replayer) Flush(ctx context.Context) error { return r.batcher.Flush(ctx) }

func (r *Replayer) flush(ctx context.Context, batch []ContestSubmission) error {
	for _, sub := range batch {
		if len(sub.Scores) == 0 {
			continue
		}

		var timer *metrics.SubmitTimer
		if r.metrics != nil {
			timer = r.metrics.StartSubmit(len(sub.Scores))
		}
		r.engine.Submit(sub.ContestID, sub.Scores)
		if timer != nil {
			timer.Stop("ok")
		}

		if r.cache != nil {
			playerIDs := make([]int64, len(sub.Scores))
			for i, score := range sub.Scores {
				playerIDs[i] = score.PlayerID
			}
			r.cache.Invalidate(ctx, sub.ContestID, playerIDs)
		}
	}
	if r.metrics != nil {
		r.metrics.SetKnownPlayers(len(r.engine.ExportPlayerRatings()))
	}
	return nil
}

// Metrics reports the replayer's buffering counters.
func (r *Replayer) Metrics() async.BatchMetrics { return r.batcher.Metrics() }
