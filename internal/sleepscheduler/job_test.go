package sleepscheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobValidTransitionSequence(t *testing.T) {
	j := NewConsolidationJob("job-1")
	require.NoError(t, j.transition(StateFetching))
	require.NoError(t, j.transition(StateAnnealing))
	require.NoError(t, j.transition(StateCommitting))
	require.NoError(t, j.transition(StateCompleted))
	assert.True(t, j.Snapshot().State.IsTerminal())
}

func TestJobRejectsInvalidTransition(t *testing.T) {
	j := NewConsolidationJob("job-1")
	err := j.transition(StateCommitting)
	assert.Error(t, err)
}

func TestJobRejectsTransitionFromTerminalState(t *testing.T) {
	j := NewConsolidationJob("job-1")
	require.NoError(t, j.transition(StateFetching))
	require.NoError(t, j.transition(StateAnnealing))
	require.NoError(t, j.transition(StateCommitting))
	require.NoError(t, j.transition(StateCompleted))

	err := j.transition(StateFetching)
	assert.Error(t, err)
}

func TestJobCancelRequested(t *testing.T) {
	j := NewConsolidationJob("job-1")
	assert.False(t, j.cancelled())
	j.RequestCancel()
	assert.True(t, j.cancelled())
}
