package metadata

import "github.com/spaghettifunk/playground/engine/scene"

/** @brief A mesh placed in the world through a scene node. */
type Model struct {
	Name string
	Node scene.NodeID
	Mesh *Mesh
}
