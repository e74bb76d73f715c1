package ratings

import "math"

// itpEpsilon is the target accuracy: solveITP returns x with |f(x)| <
// itpEpsilon or a final bracket no wider than 2*itpEpsilon.
const itpEpsilon = 1e-10

// itpN0 is the minimum number of extra bisection-equivalent iterations
// the ITP method budgets beyond the theoretical bisection count.
const itpN0 = 1

// debugAssertBrackets gates the "not bracketing a zero" / "not
// y_a<=y_b" panics used while developing new performance/rating
// equations. Production callers leave it false: a non-bracketing call
// is a precondition violation whose release behavior is a
// possibly-inaccurate midpoint, not a crash.
var debugAssertBrackets = false

// solveITP finds x in [a, b] with f(x) == 0 using the
// Interpolation-Truncation-Projection bracketing method. f must be
// continuous and monotone non-decreasing on [a, b]; a must be less
// than b.
//
// If f(a) and f(b) have the same sign, the root is not bracketed and
// the result is the midpoint of whatever interval the loop converges
// to — explicitly permitted to be inaccurate by the contract this
// implements.
func solveITP(a, b float64, f func(float64) float64) float64 {
	if a >= b {
		panic("ratings: solveITP requires a < b")
	}

	ya, yb := f(a), f(b)

	if math.Abs(ya) < itpEpsilon {
		return a
	}
	if math.Abs(yb) < itpEpsilon {
		return b
	}

	if debugAssertBrackets {
		if ya*yb > 0 {
			panic("ratings: solveITP: not bracketing a zero point")
		}
		if ya > yb {
			panic("ratings: solveITP: f is not monotone non-decreasing on [a, b]")
		}
	}

	nHalf := math.Max(0, math.Ceil(math.Log2((b-a)/itpEpsilon))-1)
	nMax := nHalf + itpN0
	k1 := 0.2 / (b - a)
	scaledEpsilon := itpEpsilon * math.Pow(2, nMax)

	for b-a > 2*itpEpsilon {
		xHalf := 0.5 * (a + b)
		r := scaledEpsilon - 0.5*(b-a)

		xf := (yb*a - ya*b) / (yb - ya)
		sigma := xHalf - xf
		delta := k1 * (b - a) * (b - a)

		var xt float64
		if delta <= math.Abs(sigma) {
			xt = xf + math.Copysign(delta, sigma)
		} else {
			xt = xHalf
		}

		var xitp float64
		if math.Abs(xt-xHalf) <= r {
			xitp = xt
		} else {
			xitp = xHalf - math.Copysign(r, sigma)
		}

		y := f(xitp)
		switch {
		case y > 0:
			b, yb = xitp, y
		case y < 0:
			a, ya = xitp, y
		default:
			return xitp
		}

		scaledEpsilon *= 0.5
	}

	return 0.5 * (a + b)
}
