package pool

import (
	"testing"

	"goblin/internal/config"

	"github.com/stretchr/testify/assert"
)

func TestRecordFailureOpensCircuitAtThreshold(t *testing.T) {
	b := newBackend(config.ServerSpec{Name: "s1"})
	b.setState(StateReady)

	for i := 0; i < 4; i++ {
		opened := b.recordFailure(5)
		assert.False(t, opened)
	}
	opened := b.recordFailure(5)
	assert.True(t, opened)

	state, streak := b.snapshot()
	assert.Equal(t, StateDegraded, state)
	assert.Equal(t, 5, streak)
}

func TestRecordSuccessResetsStreak(t *testing.T) {
	b := newBackend(config.ServerSpec{Name: "s1"})
	b.recordFailure(5)
	b.recordFailure(5)
	b.recordSuccess()

	state, streak := b.snapshot()
	assert.Equal(t, StateReady, state)
	assert.Equal(t, 0, streak)
}

func TestRecordSuccessDoesNotResurrectEvicted(t *testing.T) {
	b := newBackend(config.ServerSpec{Name: "s1"})
	b.setState(StateEvicted)
	b.recordSuccess()

	state, _ := b.snapshot()
	assert.Equal(t, StateEvicted, state)
}
