package engine

import (
	"github.com/spaghettifunk/playground/engine/core"
	"github.com/spaghettifunk/playground/engine/renderer/metadata"
)

// State is one mode of the application: loading screen, gameplay, menu. The engine
// drives exactly one state at a time.
type State interface {
	Name() string
	Enter(e *Engine) error
	Update(e *Engine, deltaTime float64) error
	// Render adds the state's models to a packet that already holds the camera.
	Render(e *Engine, packet *metadata.RenderPacket) error
	Exit(e *Engine) error
}

// StateMachine holds the current state and the one requested next. A transition
// takes effect at the next frame boundary, never in the middle of a frame.
type StateMachine struct {
	current State
	pending State
}

func NewStateMachine(initial State) *StateMachine {
	return &StateMachine{pending: initial}
}

func (sm *StateMachine) Current() State {
	return sm.current
}

// Transition requests next. Requesting twice in one frame keeps the last request.
func (sm *StateMachine) Transition(next State) {
	core.Assertf(next != nil, core.ErrInvalidOperation, "transition to a nil state")
	sm.pending = next
}

// apply exits the current state and enters the pending one, if any.
func (sm *StateMachine) apply(e *Engine) error {
	if sm.pending == nil {
		return nil
	}
	next := sm.pending
	sm.pending = nil
	if sm.current != nil {
		core.LogInfo("Leaving state %s", sm.current.Name())
		if err := sm.current.Exit(e); err != nil {
			return err
		}
	}
	core.LogInfo("Entering state %s", next.Name())
	sm.current = next
	return next.Enter(e)
}

// shutdown exits the current state without entering another.
func (sm *StateMachine) shutdown(e *Engine) error {
	sm.pending = nil
	if sm.current == nil {
		return nil
	}
	current := sm.current
	sm.current = nil
	return current.Exit(e)
}
