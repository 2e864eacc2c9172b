package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/playground/engine/core"
	"github.com/spaghettifunk/playground/engine/renderer/headless"
	"github.com/spaghettifunk/playground/engine/renderer/metadata"
)

// recordingState appends every callback it receives to a shared log.
type recordingState struct {
	name     string
	log      *[]string
	onUpdate func(e *Engine, frame int)
	frames   int
}

func (s *recordingState) Name() string {
	return s.name
}

func (s *recordingState) Enter(e *Engine) error {
	*s.log = append(*s.log, s.name+".enter")
	return nil
}

func (s *recordingState) Update(e *Engine, deltaTime float64) error {
	s.frames++
	*s.log = append(*s.log, fmt.Sprintf("%s.update", s.name))
	if s.onUpdate != nil {
		s.onUpdate(e, s.frames)
	}
	return nil
}

func (s *recordingState) Render(e *Engine, packet *metadata.RenderPacket) error {
	*s.log = append(*s.log, s.name+".render")
	return nil
}

func (s *recordingState) Exit(e *Engine) error {
	*s.log = append(*s.log, s.name+".exit")
	return nil
}

func testConfig(t *testing.T) *EngineConfig {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Application.Headless = true
	cfg.Assets.Path = t.TempDir()
	cfg.Assets.Watch = false
	cfg.Jobs.Workers = 2
	cfg.Log.Level = "warn"
	return cfg
}

func newTestEngine(t *testing.T, initial State) *Engine {
	t.Helper()
	e, err := New(testConfig(t), initial)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = e.Shutdown()
	})
	require.NoError(t, e.Initialize())
	return e
}

func TestSingleEngineInstance(t *testing.T) {
	var log []string
	e, err := New(testConfig(t), &recordingState{name: "a", log: &log})
	require.NoError(t, err)

	assert.PanicsWithError(t, "func engine.New: "+core.ErrEngineExists.Error(), func() {
		_, _ = New(testConfig(t), &recordingState{name: "b", log: &log})
	})

	require.NoError(t, e.Shutdown())
	again, err := New(testConfig(t), &recordingState{name: "c", log: &log})
	require.NoError(t, err)
	require.NoError(t, again.Shutdown())
}

func TestInitializeFailsWithoutAssetRoot(t *testing.T) {
	var log []string
	cfg := testConfig(t)
	cfg.Assets.Path = cfg.Assets.Path + "/missing"
	e, err := New(cfg, &recordingState{name: "a", log: &log})
	require.NoError(t, err)
	assert.Error(t, e.Initialize())
	assert.NoError(t, e.Shutdown())
	assert.Equal(t, EngineStageShutDown, e.Stage())
}

func TestUnknownRendererBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.Application.Headless = false
	cfg.Renderer.Backend = "software"
	_, err := New(cfg, nil)
	assert.ErrorIs(t, err, core.ErrUnsupportedFormat)

	// The failed construction does not hold on to the instance.
	var log []string
	e, err := New(testConfig(t), &recordingState{name: "a", log: &log})
	require.NoError(t, err)
	require.NoError(t, e.Shutdown())
}

func TestStateTransitionAtFrameBoundary(t *testing.T) {
	var log []string
	b := &recordingState{name: "b", log: &log}
	a := &recordingState{name: "a", log: &log}
	a.onUpdate = func(e *Engine, frame int) {
		e.States().Transition(b)
	}
	e := newTestEngine(t, a)

	require.NoError(t, e.Frame(1.0/60.0))
	assert.Equal(t, []string{"a.enter", "a.update", "a.render"}, log)
	assert.Same(t, a, e.States().Current())

	log = log[:0]
	require.NoError(t, e.Frame(1.0/60.0))
	assert.Equal(t, []string{"a.exit", "b.enter", "b.update", "b.render"}, log)
	assert.Same(t, b, e.States().Current())

	log = log[:0]
	require.NoError(t, e.Shutdown())
	assert.Equal(t, []string{"b.exit"}, log)
}

func TestFrameSubmitsToBackend(t *testing.T) {
	var log []string
	e := newTestEngine(t, &recordingState{name: "a", log: &log})

	for i := 0; i < 3; i++ {
		require.NoError(t, e.Frame(1.0/60.0))
	}
	backend, ok := e.Backend().(*headless.Backend)
	require.True(t, ok)
	frames := backend.Frames()
	require.Len(t, frames, 3)
	assert.Equal(t, []uint32{0, 1, 0}, []uint32{frames[0].Index, frames[1].Index, frames[2].Index})
	assert.Equal(t, uint64(3), e.Systems().Renderer().FrameNumber())
}

func TestJobsCompleteOnTheMainThread(t *testing.T) {
	var log []string
	e := newTestEngine(t, &recordingState{name: "a", log: &log})

	var ranOnMain bool
	e.Jobs().QueueWork(metadata.Work{
		Name: "probe",
		Background: func(payload interface{}) error {
			return nil
		},
		MainThread: func(payload interface{}) {
			ranOnMain = true
		},
	})
	deadline := time.Now().Add(2 * time.Second)
	for !ranOnMain && time.Now().Before(deadline) {
		require.NoError(t, e.Frame(0))
		time.Sleep(time.Millisecond)
	}
	assert.True(t, ranOnMain)
}

func TestRunStopsOnQuit(t *testing.T) {
	var log []string
	a := &recordingState{name: "a", log: &log}
	a.onUpdate = func(e *Engine, frame int) {
		if frame == 3 {
			e.Quit()
		}
	}
	e := newTestEngine(t, a)

	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, 3, a.frames)
}

func TestEscapeQuits(t *testing.T) {
	var log []string
	a := &recordingState{name: "a", log: &log}
	a.onUpdate = func(e *Engine, frame int) {
		if frame == 2 {
			e.Input().ProcessKey(core.KEY_ESCAPE, true)
		}
	}
	e := newTestEngine(t, a)

	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, 2, a.frames)
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	var log []string
	a := &recordingState{name: "a", log: &log}
	e := newTestEngine(t, a)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, e.Run(ctx))
	assert.Zero(t, a.frames)
}

func TestRunReturnsStateErrors(t *testing.T) {
	e := newTestEngine(t, &failingState{})
	err := e.Run(context.Background())
	assert.ErrorIs(t, err, errUpdate)
}

func TestResizeEvents(t *testing.T) {
	var log []string
	e := newTestEngine(t, &recordingState{name: "a", log: &log})

	e.Events().Fire(core.EventContext{
		Type: core.EVENT_CODE_RESIZED,
		Data: &core.SystemEvent{WindowWidth: 800, WindowHeight: 600},
	})
	w, h := e.GetFramebufferSize()
	assert.Equal(t, uint32(800), w)
	assert.Equal(t, uint32(600), h)
	assert.True(t, e.Systems().Renderer().Resizing)

	e.Events().Fire(core.EventContext{
		Type: core.EVENT_CODE_RESIZED,
		Data: &core.SystemEvent{WindowWidth: 0, WindowHeight: 0},
	})
	assert.True(t, e.isSuspended)

	e.Events().Fire(core.EventContext{
		Type: core.EVENT_CODE_RESIZED,
		Data: &core.SystemEvent{WindowWidth: 640, WindowHeight: 480},
	})
	assert.False(t, e.isSuspended)
}

var errUpdate = errors.New("update failed")

type failingState struct{}

func (failingState) Name() string {
	return "failing"
}

func (failingState) Enter(e *Engine) error {
	return nil
}

func (failingState) Update(e *Engine, deltaTime float64) error {
	return errUpdate
}

func (failingState) Render(e *Engine, packet *metadata.RenderPacket) error {
	return nil
}

func (failingState) Exit(e *Engine) error {
	return nil
}
