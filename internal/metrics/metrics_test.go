package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

// All assertions share one Registry: NewRegistry registers its metrics
// with prometheus's global default registerer, which panics on a
// second registration of the same metric name.
func TestRegistry(t *testing.T) {
	r := NewRegistry()

	t.Run("StartSubmit then Stop ok increments contest counter", func(t *testing.T) {
		timer := r.StartSubmit(4)
		timer.Stop("ok")

		assert.Equal(t, float64(1), testutil.ToFloat64(r.ContestsSubmitted))
	})

	t.Run("failed submit does not increment contest counter", func(t *testing.T) {
		before := testutil.ToFloat64(r.ContestsSubmitted)
		timer := r.StartSubmit(2)
		timer.Stop("error")
		assert.Equal(t, before, testutil.ToFloat64(r.ContestsSubmitted))
	})

	t.Run("cache hit and miss counters are independent by kind", func(t *testing.T) {
		r.RecordCacheHit("rating")
		r.RecordCacheMiss("history")

		assert.Equal(t, float64(1), testutil.ToFloat64(r.CacheHits.WithLabelValues("rating")))
		assert.Equal(t, float64(1), testutil.ToFloat64(r.CacheMisses.WithLabelValues("history")))
		assert.Equal(t, float64(0), testutil.ToFloat64(r.CacheHits.WithLabelValues("history")))
	})

	t.Run("breaker state change updates both counter and gauge", func(t *testing.T) {
		r.RecordBreakerStateChange("open")
		assert.Equal(t, float64(2), testutil.ToFloat64(r.BreakerState))
		assert.Equal(t, float64(1), testutil.ToFloat64(r.BreakerStateChanges.WithLabelValues("open")))
	})

	t.Run("SetKnownPlayers updates the gauge", func(t *testing.T) {
		r.SetKnownPlayers(42)
		assert.Equal(t, float64(42), testutil.ToFloat64(r.KnownPlayers))
	})
}
