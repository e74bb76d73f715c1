// Package ratings implements the Elo-MMR batch rating engine: a
// persistent per-player posterior represented as a growing mixture of
// logistic factors, updated one contest at a time.
package ratings

import "errors"

// ErrEmptyScoreboard is returned by nothing currently — an empty
// scoreboard is a documented no-op, not an error — but is kept as a
// sentinel for callers that want to distinguish "no-op" from "ok" in
// their own logging.
var ErrEmptyScoreboard = errors.New("ratings: scoreboard has no entries")

// ErrUnknownPlayer names the condition of a player id the engine has
// never seen. The engine's history/rating lookups do not return it;
// they report an unknown id through their false ok result.
var ErrUnknownPlayer = errors.New("ratings: unknown player id")

// ErrUnknownContest names the condition of a contest id never
// submitted. ExportContestDetailOf does not return it; it reports an
// unknown id through its false ok result.
var ErrUnknownContest = errors.New("ratings: unknown contest id")

// Hyperparameters are the five immutable knobs of the rating model.
type Hyperparameters struct {
	Rho       float64 `yaml:"rho"`
	Beta      float64 `yaml:"beta"`
	Gamma     float64 `yaml:"gamma"`
	MuInit    float64 `yaml:"mu_init"`
	SigmaInit float64 `yaml:"sigma_init"`
}

// DefaultHyperparameters returns this engine's documented default
// hyperparameters.
func DefaultHyperparameters() Hyperparameters {
	return Hyperparameters{
		Rho:       1.0,
		Beta:      200.0,
		Gamma:     80.0,
		MuInit:    1500.0,
		SigmaInit: 350.0,
	}
}

// ScoreEntry is one participant's raw contest score. Higher is better.
type ScoreEntry struct {
	PlayerID int64
	Score    int64
}

// RatingEntry is a (player, rating) pair as returned by Submit and the
// export queries.
type RatingEntry struct {
	PlayerID int64
	Rating   float64
}

// PlayerHistoryEntry records one contest's effect on a player, plus
// the synthetic sentinel entry every player starts with.
type PlayerHistoryEntry struct {
	ContestID   int64
	Perf        float64
	Rating      float64
	ContestRank int // lo-rank for this contest; 0 for the sentinel
	RatingRank  int // 1-based rank after this contest, ties sharing the lowest position; 0 until backfilled
}

// SentinelContestID is the contest id used by every player's initial,
// synthetic history entry.
const SentinelContestID int64 = -1

// ContestDetailRow is one participant's record within a contest's
// detail vector.
type ContestDetailRow struct {
	PlayerID   int64
	Score      int64
	Perf       float64
	Rating     float64
	RatingRank int
}

// ContestDetail is the full per-contest record exported by the engine,
// in standings order.
type ContestDetail struct {
	ContestID int64
	Rows      []ContestDetailRow
}

// PlayerSnapshot is a player's full internal mixture state: everything
// a host would need to persist and later restore a player without
// replaying their contest history. This is the accessor the host-side
// persistence boundary is built on; the engine never serializes or
// stores this itself.
type PlayerSnapshot struct {
	PlayerID int64
	Mu       float64
	Sigma    float64
	Perfs    []float64
	Weights  []float64
	History  []PlayerHistoryEntry
}

// standing is one participant's position in the tie-ranked ordering of
// a single contest.
type standing struct {
	playerID int64
	score    int64
	lo, hi   int
}

// perfDatum is the (delta, muPi) pair the diffusion pass emits for one
// player, aligned positionally with the standings slice.
type perfDatum struct {
	delta float64
	muPi  float64
}
