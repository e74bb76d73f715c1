package ratings

import (
	"math"
	"sort"
	"sync"
)

// Engine is the top-level rating system: five hyperparameters plus two
// concurrent maps (player id -> player, contest id -> ContestDetail).
// It is safe for concurrent read-query calls, but Submit calls must be
// externally serialized: submit is not safe to call concurrently with
// itself.
type Engine struct {
	hp Hyperparameters

	players  *shardedPlayers
	contests sync.Map // int64 -> ContestDetail
}

// New constructs an engine with the given hyperparameters.
func New(hp Hyperparameters) *Engine {
	return &Engine{
		hp:      hp,
		players: newShardedPlayers(),
	}
}

// NewDefault constructs an engine using this package's documented
// default hyperparameters.
func NewDefault() *Engine {
	return New(DefaultHyperparameters())
}

// Submit drives the full contest state transition: standings, a
// parallel diffusion pass, a parallel performance+rating pass, a
// sequential tie-aware ranking pass, and a contest-detail record. An
// empty scoreboard is a no-op.
func (e *Engine) Submit(contestID int64, scores []ScoreEntry) []RatingEntry {
	if len(scores) == 0 {
		return nil
	}

	standings := computeStandings(scores)

	playerData := e.diffusionPass(standings)
	e.performancePass(contestID, standings, playerData)
	e.rankingPass(standings)

	detail := e.buildContestDetail(contestID, standings)
	e.contests.Store(contestID, detail)

	return e.exportRatingsSortedDesc()
}

// diffusionPass runs diffuse on every participant in parallel and
// collects (delta, muPi) aligned to standings order. This full barrier
// is required: the performance pass below reads every participant's
// post-diffusion state, so it cannot start until every diffuse call
// here has completed.
func (e *Engine) diffusionPass(standings []standing) []perfDatum {
	playerData := make([]perfDatum, len(standings))

	var wg sync.WaitGroup
	wg.Add(len(standings))
	for i, s := range standings {
		go func(i int, s standing) {
			defer wg.Done()
			e.players.getOrInsert(s.playerID, func() *player {
				return newPlayer(e.hp.MuInit, e.hp.SigmaInit)
			})
			e.players.withLock(s.playerID, func(p *player) {
				p.diffuse(e.hp.Rho, e.hp.Gamma)
				p.muPi = p.mu
				p.delta = math.Hypot(p.sigma, e.hp.Beta)
				playerData[i] = perfDatum{delta: p.delta, muPi: p.muPi}
			})
		}(i, s)
	}
	wg.Wait()

	return playerData
}

// performancePass solves each participant's performance and rating
// equations in parallel and appends a history entry for the contest.
// player_data[k] must refer to standings position k+1, so playerData
// is passed through unmodified and indexed by the standing's own
// (lo, hi), preserving that positional correspondence.
func (e *Engine) performancePass(contestID int64, standings []standing, playerData []perfDatum) {
	var wg sync.WaitGroup
	wg.Add(len(standings))
	for _, s := range standings {
		go func(s standing) {
			defer wg.Done()
			e.players.withLock(s.playerID, func(p *player) {
				p.update(e.hp.Beta, playerData, s.lo, s.hi)
				p.history = append(p.history, PlayerHistoryEntry{
					ContestID:   contestID,
					Perf:        p.lastPerf(),
					Rating:      p.mu,
					ContestRank: s.lo,
					RatingRank:  0,
				})
			})
		}(s)
	}
	wg.Wait()
}

// rankingPass recomputes global tie-aware rating ranks (tied ratings
// share the lowest 1-based position, and the next rank skips past the
// tie group) and
// backfills the placeholder on the last history entry of every
// contest participant. It is intentionally sequential: it needs a
// global snapshot of every player's current mu.
func (e *Engine) rankingPass(standings []standing) {
	snapshot := e.exportRatingsSortedDesc()

	rankByPlayer := make(map[int64]int, len(snapshot))
	rankApp, rankInt := 0, 0
	for i, entry := range snapshot {
		rankInt++
		if i == 0 || entry.Rating != snapshot[i-1].Rating {
			rankApp = rankInt
		}
		rankByPlayer[entry.PlayerID] = rankApp
	}

	for _, s := range standings {
		e.players.withLock(s.playerID, func(p *player) {
			last := &p.history[len(p.history)-1]
			if last.RatingRank == 0 {
				last.RatingRank = rankByPlayer[s.playerID]
			}
		})
	}
}

func (e *Engine) buildContestDetail(contestID int64, standings []standing) ContestDetail {
	rows := make([]ContestDetailRow, len(standings))
	for i, s := range standings {
		e.players.withLock(s.playerID, func(p *player) {
			rows[i] = ContestDetailRow{
				PlayerID:   s.playerID,
				Score:      s.score,
				Perf:       p.lastPerf(),
				Rating:     p.mu,
				RatingRank: p.history[len(p.history)-1].RatingRank,
			}
		})
	}
	return ContestDetail{ContestID: contestID, Rows: rows}
}

func (e *Engine) exportRatingsSortedDesc() []RatingEntry {
	out := e.ExportPlayerRatings()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Rating > out[j].Rating
	})
	return out
}

// ExportPlayerRatings returns an unordered snapshot of every known
// player's current rating.
func (e *Engine) ExportPlayerRatings() []RatingEntry {
	var out []RatingEntry
	e.players.forEach(func(id int64, p *player) {
		out = append(out, RatingEntry{PlayerID: id, Rating: p.mu})
	})
	return out
}

// GetRatingOf returns the current rating of id, if known.
func (e *Engine) GetRatingOf(id int64) (float64, bool) {
	p := e.players.get(id)
	if p == nil {
		return 0, false
	}
	return p.mu, true
}

// ExportPlayerHistory returns an unordered snapshot of every known
// player's full history, each a fresh copy.
func (e *Engine) ExportPlayerHistory() map[int64][]PlayerHistoryEntry {
	out := make(map[int64][]PlayerHistoryEntry)
	e.players.forEach(func(id int64, p *player) {
		out[id] = p.historyCopy()
	})
	return out
}

// ExportPlayerHistoryOf returns a copy of id's history, if known. The
// returned slice's first entry is the sentinel (ContestID ==
// SentinelContestID) — callers that aggregate history must filter it.
func (e *Engine) ExportPlayerHistoryOf(id int64) ([]PlayerHistoryEntry, bool) {
	p := e.players.get(id)
	if p == nil {
		return nil, false
	}
	return p.historyCopy(), true
}

// ExportContestDetails returns an unordered snapshot of every
// submitted contest's detail record.
func (e *Engine) ExportContestDetails() map[int64]ContestDetail {
	out := make(map[int64]ContestDetail)
	e.contests.Range(func(key, value any) bool {
		out[key.(int64)] = value.(ContestDetail)
		return true
	})
	return out
}

// ExportContestDetailOf returns the detail record for contestID, if
// one has been submitted.
func (e *Engine) ExportContestDetailOf(contestID int64) (ContestDetail, bool) {
	v, ok := e.contests.Load(contestID)
	if !ok {
		return ContestDetail{}, false
	}
	return v.(ContestDetail), true
}

// SnapshotPlayer is the host-facing accessor for a player's full
// mixture state (mu, sigma, perfs, weights, history), named per the
// persistence boundary: the engine itself never serializes this, but
// exposes it so a host can.
func (e *Engine) SnapshotPlayer(id int64) (PlayerSnapshot, bool) {
	p := e.players.get(id)
	if p == nil {
		return PlayerSnapshot{}, false
	}
	snap := PlayerSnapshot{PlayerID: id, History: p.historyCopy()}
	e.players.withLock(id, func(p *player) {
		snap.Mu = p.mu
		snap.Sigma = p.sigma
		snap.Perfs = append([]float64(nil), p.perfs...)
		snap.Weights = append([]float64(nil), p.weights...)
	})
	return snap, true
}

// SnapshotContest is the host-facing accessor for a contest's detail
// vector. It is identical to ExportContestDetailOf; both names exist
// because one reads as an export query and the other as a persistence
// hook, matching how this engine's callers refer to each use.
func (e *Engine) SnapshotContest(contestID int64) (ContestDetail, bool) {
	return e.ExportContestDetailOf(contestID)
}

// RestorePlayer installs a previously snapshotted player's mixture
// state directly, bypassing diffuse/update. A host uses this to warm a
// fresh Engine from persisted rows instead of replaying every contest
// the player ever took part in.
func (e *Engine) RestorePlayer(snap PlayerSnapshot) {
	e.players.getOrInsert(snap.PlayerID, func() *player {
		return newPlayer(e.hp.MuInit, e.hp.SigmaInit)
	})
	e.players.withLock(snap.PlayerID, func(p *player) {
		p.mu = snap.Mu
		p.sigma = snap.Sigma
		p.perfs = append([]float64(nil), snap.Perfs...)
		p.weights = append([]float64(nil), snap.Weights...)
		p.history = append([]PlayerHistoryEntry(nil), snap.History...)
	})
}

// RestoreContest installs a previously snapshotted contest's detail
// record directly, without re-running Submit.
func (e *Engine) RestoreContest(detail ContestDetail) {
	e.contests.Store(detail.ContestID, detail)
}
