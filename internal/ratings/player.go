package ratings

import "math"

// coeff is pi/sqrt(3), the logistic-to-normal scale constant used in
// both performance and rating root-finding.
const coeff = 1.8137993642342178

// solveBoundLo and solveBoundHi bound every ITP call in update: human
// ratings stay well inside +-10000 for the hyperparameter ranges this
// engine is designed for.
const (
	solveBoundLo = -10000.0
	solveBoundHi = 10000.0
)

// player is the mutable per-player posterior. It is never exposed
// directly — callers only ever see snapshots copied out of it under
// the owning shard's lock.
type player struct {
	mu, sigma float64

	// muPi and delta are scratch fields recomputed by Submit's diffusion
	// pass, right after diffuse, at the start of every contest this
	// player appears in.
	muPi, delta float64

	perfs   []float64
	weights []float64

	history []PlayerHistoryEntry
}

func newPlayer(muInit, sigmaInit float64) *player {
	return &player{
		mu:      muInit,
		sigma:   sigmaInit,
		perfs:   []float64{muInit},
		weights: []float64{1 / (sigmaInit * sigmaInit)},
		history: []PlayerHistoryEntry{{
			ContestID:   SentinelContestID,
			Perf:        muInit,
			Rating:      muInit,
			ContestRank: 0,
			RatingRank:  0,
		}},
	}
}

// diffuse inflates sigma and rebalances the mixture weights to decay
// the certainty of older performances.
func (p *player) diffuse(rho, gamma float64) {
	kappa := 1 / (1 + (gamma*gamma)/(p.sigma*p.sigma))
	kappaRho := math.Pow(kappa, rho)

	var weightSum float64
	for _, w := range p.weights {
		weightSum += w
	}

	wg := kappaRho * p.weights[0]
	wl := (1 - kappaRho) * weightSum

	p.perfs[0] = (wg*p.perfs[0] + wl*p.mu) / (wg + wl)
	p.weights[0] = kappa * (wg + wl)

	// The accumulated factor kappaRho*kappa, not kappaRho alone, is
	// applied to older weights.
	kappaRho *= kappa
	for k := 1; k < len(p.weights); k++ {
		p.weights[k] *= kappaRho
	}

	p.sigma /= math.Sqrt(kappa)
}

// update folds one contest's outcome into the player's mixture: it
// solves for this contest's performance (first ITP pass), appends it
// to the mixture, then re-solves for the new point rating (second ITP
// pass). playerData is every participant's post-diffusion (delta,
// muPi) in standings order; lo/hi is this player's rank range.
func (p *player) update(beta float64, playerData []perfDatum, lo, hi int) {
	f1 := func(x float64) float64 {
		var result float64
		for _, d := range playerData[lo-1:] {
			result += (1 / d.delta) * (math.Tanh(coeff*(x-d.muPi)/(2*d.delta)) - 1)
		}
		for _, d := range playerData[:hi] {
			result += (1 / d.delta) * (math.Tanh(coeff*(x-d.muPi)/(2*d.delta)) + 1)
		}
		return result
	}
	perf := solveITP(solveBoundLo, solveBoundHi, f1)

	p.perfs = append(p.perfs, perf)
	p.weights = append(p.weights, 1/(beta*beta))

	f2 := func(x float64) float64 {
		result := p.weights[0] * (x - p.perfs[0])
		for k := 1; k < len(p.perfs); k++ {
			result += (coeff * beta * p.weights[k]) * math.Tanh(coeff*(x-p.perfs[k])/(2*beta))
		}
		return result
	}
	p.mu = solveITP(solveBoundLo, solveBoundHi, f2)
}

// lastPerf returns the most recently appended performance.
func (p *player) lastPerf() float64 {
	return p.perfs[len(p.perfs)-1]
}

// historyCopy returns an owned copy of the player's history slice.
func (p *player) historyCopy() []PlayerHistoryEntry {
	out := make([]PlayerHistoryEntry, len(p.history))
	copy(out, p.history)
	return out
}
