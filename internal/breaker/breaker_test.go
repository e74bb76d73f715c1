package breaker

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreaker_ExecutePassesThroughSuccess(t *testing.T) {
	b := New("test-success", nil)
	result, err := b.Execute(func() (any, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, "closed", b.State())
}

func TestBreaker_TripsAfterConsecutiveFailures(t *testing.T) {
	var states []string
	b := New("test-trip", func(toState string) { states = append(states, toState) })

	failing := func() (any, error) { return nil, errors.New("down") }

	for i := 0; i < 3; i++ {
		_, _ = b.Execute(failing)
	}

	assert.Equal(t, "open", b.State())
	require.NotEmpty(t, states)
	assert.Equal(t, "open", states[len(states)-1])
}

func TestBreaker_OpenBreakerShortCircuits(t *testing.T) {
	b := New("test-shortcircuit", nil)
	failing := func() (any, error) { return nil, errors.New("down") }

	for i := 0; i < 3; i++ {
		_, _ = b.Execute(failing)
	}
	require.Equal(t, "open", b.State())

	called := false
	_, err := b.Execute(func() (any, error) {
		called = true
		return nil, nil
	})

	assert.Error(t, err)
	assert.False(t, called)
}
