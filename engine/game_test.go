package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/playground/engine/core"
)

func TestStateMachineApply(t *testing.T) {
	var log []string
	first := &recordingState{name: "first", log: &log}
	second := &recordingState{name: "second", log: &log}
	third := &recordingState{name: "third", log: &log}

	sm := NewStateMachine(first)
	assert.Nil(t, sm.Current())

	require.NoError(t, sm.apply(nil))
	assert.Equal(t, first, sm.Current())

	// nothing pending
	require.NoError(t, sm.apply(nil))
	assert.Equal(t, []string{"first.enter"}, log)

	sm.Transition(second)
	sm.Transition(third)
	assert.Equal(t, first, sm.Current())

	require.NoError(t, sm.apply(nil))
	assert.Equal(t, third, sm.Current())
	assert.Equal(t, []string{"first.enter", "first.exit", "third.enter"}, log)

	require.NoError(t, sm.shutdown(nil))
	assert.Nil(t, sm.Current())
	assert.Equal(t, []string{"first.enter", "first.exit", "third.enter", "third.exit"}, log)
}

func TestStateMachineRejectsNilState(t *testing.T) {
	sm := NewStateMachine(nil)
	require.NoError(t, sm.apply(nil))
	require.NoError(t, sm.shutdown(nil))

	assert.PanicsWithError(t, "transition to a nil state: "+core.ErrInvalidOperation.Error(), func() {
		sm.Transition(nil)
	})
}
