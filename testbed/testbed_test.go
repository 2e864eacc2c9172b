package testbed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/playground/engine"
	"github.com/spaghettifunk/playground/engine/core"
	"github.com/spaghettifunk/playground/engine/renderer/headless"
)

func newHeadlessEngine(t *testing.T) *engine.Engine {
	t.Helper()
	cfg := engine.DefaultConfig()
	cfg.Application.Headless = true
	cfg.Assets.Path = "../assets"
	cfg.Assets.Watch = false
	cfg.Jobs.Workers = 2
	cfg.Log.Level = "warn"

	e, err := engine.New(cfg, NewGame())
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = e.Shutdown()
	})
	require.NoError(t, e.Initialize())
	return e
}

// frameUntil runs frames of dt seconds until cond holds or two seconds passed.
func frameUntil(t *testing.T, e *engine.Engine, dt float64, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		require.True(t, time.Now().Before(deadline), "condition not reached in time")
		require.NoError(t, e.Frame(dt))
		time.Sleep(time.Millisecond)
	}
}

func TestLoadingThenPlay(t *testing.T) {
	e := newHeadlessEngine(t)

	frameUntil(t, e, 0, func() bool {
		current := e.States().Current()
		return current != nil && current.Name() == "play"
	})
	play, ok := e.States().Current().(*PlayState)
	require.True(t, ok)

	// One frame for the transition to apply, one to render the models.
	require.NoError(t, e.Frame(1.0/60.0))
	backend := e.Backend().(*headless.Backend)
	frames := backend.Frames()
	last := frames[len(frames)-1]
	assert.Len(t, last.Commands, 1+orbitCount+cubeCount)
	assert.Len(t, play.crates, cubeCount)
	assert.Len(t, e.Physics().Objects(), cubeCount)
}

func TestCratesFallAndReset(t *testing.T) {
	e := newHeadlessEngine(t)
	frameUntil(t, e, 0, func() bool {
		_, ok := e.States().Current().(*PlayState)
		return ok
	})
	play := e.States().Current().(*PlayState)
	crate := play.crates[0].Node()
	start := e.Graph().WorldPosition(crate)

	for i := 0; i < 30; i++ {
		require.NoError(t, e.Frame(1.0/60.0))
	}
	fallen := e.Graph().WorldPosition(crate)
	assert.Less(t, fallen.Y(), start.Y())

	e.Input().ProcessKey(core.KEY_R, true)
	require.NoError(t, e.Frame(0))
	assert.InDelta(t, play.crateAt[0].Y(), e.Graph().WorldPosition(crate).Y(), 1e-4)
}

func TestPlayExitReleasesNodes(t *testing.T) {
	e := newHeadlessEngine(t)
	frameUntil(t, e, 0, func() bool {
		_, ok := e.States().Current().(*PlayState)
		return ok
	})

	e.States().Transition(NewLoadingState())
	require.NoError(t, e.Frame(0))
	assert.Zero(t, e.Graph().Len())
	assert.Empty(t, e.Physics().Objects())
}
