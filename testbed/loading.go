package testbed

import (
	"github.com/spaghettifunk/playground/engine"
	"github.com/spaghettifunk/playground/engine/core"
	"github.com/spaghettifunk/playground/engine/renderer/metadata"
)

// Seconds to wait for assets before playing with whatever loaded.
const loadTimeout = 10.0

// LoadingState queues the testbed's meshes and moves on to PlayState once every one
// of them loaded.
type LoadingState struct {
	names   []string
	meshes  map[string]*metadata.Mesh
	elapsed float64
}

func NewLoadingState(meshes ...string) *LoadingState {
	return &LoadingState{names: meshes}
}

func (s *LoadingState) Name() string {
	return "loading"
}

func (s *LoadingState) Enter(e *engine.Engine) error {
	s.elapsed = 0
	s.meshes = make(map[string]*metadata.Mesh, len(s.names))
	for _, name := range s.names {
		s.meshes[name] = e.Systems().Resources().AcquireMesh(name)
	}
	return nil
}

func (s *LoadingState) Update(e *engine.Engine, deltaTime float64) error {
	s.elapsed += deltaTime
	loaded := 0
	for _, m := range s.meshes {
		if m.HasLoaded() {
			loaded++
		}
	}
	switch {
	case loaded == len(s.meshes):
		core.LogInfo("All %d meshes loaded in %.2fs", loaded, s.elapsed)
	case s.elapsed > loadTimeout:
		core.LogWarn("Only %d of %d meshes loaded after %.0fs, continuing", loaded, len(s.meshes), loadTimeout)
	default:
		return nil
	}
	e.States().Transition(NewPlayState(s.meshes))
	return nil
}

// Render draws nothing while loading.
func (s *LoadingState) Render(e *engine.Engine, packet *metadata.RenderPacket) error {
	return nil
}

func (s *LoadingState) Exit(e *engine.Engine) error {
	return nil
}
