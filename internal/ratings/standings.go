package ratings

import "sort"

// computeStandings sorts entries by score descending and assigns each
// a (lo, hi) 1-based rank range: lo is the best position at which its
// score appears, hi is the worst. Ties share identical (lo, hi).
//
// entries must be non-empty; callers (Engine.Submit) already guard
// the empty case as a documented no-op.
func computeStandings(entries []ScoreEntry) []standing {
	sorted := make([]ScoreEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	n := len(sorted)
	out := make([]standing, n)
	for i, e := range sorted {
		out[i] = standing{playerID: e.PlayerID, score: e.Score}
	}

	rankApp, rankInt := 1, 1
	out[0].lo = 1
	for i := 1; i < n; i++ {
		rankInt++
		if sorted[i].Score != sorted[i-1].Score {
			rankApp = rankInt
		}
		out[i].lo = rankApp
	}
	rankApp = rankInt
	out[n-1].hi = rankApp

	for i := n - 2; i >= 0; i-- {
		rankInt--
		if sorted[i].Score != sorted[i+1].Score {
			rankApp = rankInt
		}
		out[i].hi = rankApp
	}

	return out
}
