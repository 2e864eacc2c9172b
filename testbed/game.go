// Package testbed is a small application exercising the engine: it loads a few
// assets, then spins a node hierarchy and drops physics cubes onto the ground.
package testbed

import (
	"github.com/spaghettifunk/playground/engine"
)

const (
	cubeMesh  = "cube"
	crateMesh = "crate"
)

// NewGame returns the state the testbed starts in.
func NewGame() engine.State {
	return NewLoadingState(cubeMesh, crateMesh)
}
