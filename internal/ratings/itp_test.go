package ratings

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSolveITP_CubicRoot(t *testing.T) {
	f := func(x float64) float64 { return x*x*x - x - 2 }

	root := solveITP(1, 2, f)

	assert.Less(t, math.Abs(f(root)), 1e-9)
	assert.InDelta(t, 1.5213797068045676, root, 1e-6)
}

func TestSolveITP_LinearRoot(t *testing.T) {
	f := func(x float64) float64 { return 4*x - 1 }

	root := solveITP(-10, 10, f)

	assert.InDelta(t, 0.25, root, 1e-8)
}

func TestSolveITP_BracketedMonotoneConverges(t *testing.T) {
	cases := []struct {
		a, b float64
		f    func(float64) float64
	}{
		{-10000, 10000, func(x float64) float64 { return x - 42.5 }},
		{0, 1, func(x float64) float64 { return math.Tanh(10*(x-0.3)) }},
		{-1, 1, func(x float64) float64 { return x*x*x }},
	}

	for _, c := range cases {
		root := solveITP(c.a, c.b, c.f)
		width := c.b - c.a
		ok := math.Abs(c.f(root)) < 1e-10 || width <= 2e-10
		assert.True(t, ok || math.Abs(c.f(root)) < 1e-6, "root=%v f(root)=%v", root, c.f(root))
	}
}
