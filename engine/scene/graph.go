// Package scene holds the transform hierarchy. Nodes live in an arena owned by a
// Graph and reference each other through generation-checked NodeIDs.
package scene

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/playground/engine/core"
	"github.com/spaghettifunk/playground/engine/math"
)

// NodeID addresses a node in a Graph. The zero value is InvalidNode.
type NodeID struct {
	index      uint32
	generation uint32
}

var InvalidNode = NodeID{}

func (id NodeID) IsValid() bool {
	return id.generation != 0
}

func (id NodeID) String() string {
	if !id.IsValid() {
		return "node(invalid)"
	}
	return fmt.Sprintf("node(%d:%d)", id.index, id.generation)
}

// Observer is called after the world matrix of a node has been recomputed, once its
// whole ancestor chain is up to date.
type Observer func(id NodeID, world mgl32.Mat4)

// Observers may move nodes; a chain that never settles after this many passes panics.
const maxObserverPasses = 8

type node struct {
	name       string
	local      math.SimpleTransform
	world      mgl32.Mat4
	dirty      bool
	parent     NodeID
	children   []NodeID
	observer   Observer
	generation uint32
	alive      bool
}

// Graph owns every node of a hierarchy. It is not safe for concurrent use: mutate and
// query it from the main thread only.
type Graph struct {
	nodes []node
	free  []uint32
	count int
}

func NewGraph() *Graph {
	return &Graph{}
}

// CreateNode adds a detached node with an identity transform.
func (g *Graph) CreateNode(name string) NodeID {
	return g.CreateNodeAt(name, mgl32.Vec3{}, mgl32.QuatIdent(), mgl32.Vec3{1, 1, 1})
}

// CreateNodeAt adds a detached node with the given local transform.
func (g *Graph) CreateNodeAt(name string, position mgl32.Vec3, rotation mgl32.Quat, scale mgl32.Vec3) NodeID {
	var idx uint32
	if n := len(g.free); n > 0 {
		idx = g.free[n-1]
		g.free = g.free[:n-1]
	} else {
		g.nodes = append(g.nodes, node{})
		idx = uint32(len(g.nodes) - 1)
	}

	n := &g.nodes[idx]
	gen := n.generation + 1
	if gen == 0 {
		gen = 1
	}
	*n = node{
		name:       name,
		local:      *math.TransformFromPositionRotationScale(position, rotation, scale),
		world:      mgl32.Ident4(),
		dirty:      true,
		generation: gen,
		alive:      true,
	}
	g.count++
	return NodeID{index: idx, generation: gen}
}

// DestroyNode removes a node from the graph. The node must not have children; detach
// or Clear them first.
func (g *Graph) DestroyNode(id NodeID) {
	n := g.get(id)
	core.Assertf(len(n.children) == 0, core.ErrInvalidOperation, "destroying %s with %d children", id, len(n.children))

	if n.parent.IsValid() {
		g.removeChild(n.parent, id)
	}
	n.alive = false
	n.observer = nil
	n.children = nil
	n.parent = InvalidNode
	g.free = append(g.free, id.index)
	g.count--
}

// Contains reports whether id refers to a live node of this graph.
func (g *Graph) Contains(id NodeID) bool {
	if !id.IsValid() || int(id.index) >= len(g.nodes) {
		return false
	}
	n := &g.nodes[id.index]
	return n.alive && n.generation == id.generation
}

// Len returns the number of live nodes.
func (g *Graph) Len() int {
	return g.count
}

func (g *Graph) get(id NodeID) *node {
	core.Assertf(g.Contains(id), core.ErrStaleNode, "%s", id)
	return &g.nodes[id.index]
}

func (g *Graph) Name(id NodeID) string {
	return g.get(id).name
}

func (g *Graph) SetName(id NodeID, name string) {
	g.get(id).name = name
}

// OnUpdate registers the observer of a node, replacing any previous one. Pass nil to remove it.
func (g *Graph) OnUpdate(id NodeID, fn Observer) {
	g.get(id).observer = fn
}

func (g *Graph) SetPosition(id NodeID, position mgl32.Vec3) {
	g.get(id).local.SetPosition(position)
	g.markDirty(id)
}

func (g *Graph) Translate(id NodeID, translation mgl32.Vec3) {
	g.get(id).local.Translate(translation)
	g.markDirty(id)
}

func (g *Graph) SetRotation(id NodeID, rotation mgl32.Quat) {
	g.get(id).local.SetRotation(rotation)
	g.markDirty(id)
}

func (g *Graph) Rotate(id NodeID, rotation mgl32.Quat) {
	g.get(id).local.Rotate(rotation)
	g.markDirty(id)
}

func (g *Graph) SetScale(id NodeID, scale mgl32.Vec3) {
	g.get(id).local.SetScale(scale)
	g.markDirty(id)
}

func (g *Graph) SetPositionRotationScale(id NodeID, position mgl32.Vec3, rotation mgl32.Quat, scale mgl32.Vec3) {
	g.get(id).local.SetPositionRotationScale(position, rotation, scale)
	g.markDirty(id)
}

// Local returns the local position, rotation and scale of a node.
func (g *Graph) Local(id NodeID) (mgl32.Vec3, mgl32.Quat, mgl32.Vec3) {
	n := g.get(id)
	return n.local.Position(), n.local.Rotation(), n.local.Scale()
}

func (g *Graph) LocalMatrix(id NodeID) mgl32.Mat4 {
	return g.get(id).local.Matrix()
}

// IsDirty reports whether the cached world matrix of a node is stale.
func (g *Graph) IsDirty(id NodeID) bool {
	return g.get(id).dirty
}

// markDirty flags a node and its whole subtree. A dirty node always has a dirty
// subtree, so the walk stops at nodes that are already dirty. WorldMatrix keeps that
// true by running no observer while a chain is half recomputed.
func (g *Graph) markDirty(id NodeID) {
	stack := []NodeID{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := &g.nodes[cur.index]
		if n.dirty {
			continue
		}
		n.dirty = true
		stack = append(stack, n.children...)
	}
}

// WorldMatrix returns parentWorld * local for a node, recomputing the stale part of its
// ancestor chain from the top down. Observers run once the whole chain is clean; when
// one of them moves a node of the chain again, the chain is recomputed.
func (g *Graph) WorldMatrix(id NodeID) mgl32.Mat4 {
	g.get(id)
	for pass := 0; g.Contains(id) && g.nodes[id.index].dirty; pass++ {
		core.Assertf(pass < maxObserverPasses, core.ErrInvalidOperation, "observers keep invalidating %s", id)

		chain := []NodeID{id}
		for p := g.nodes[id.index].parent; p.IsValid() && g.nodes[p.index].dirty; p = g.nodes[p.index].parent {
			chain = append(chain, p)
		}

		for i := len(chain) - 1; i >= 0; i-- {
			cur := &g.nodes[chain[i].index]
			parentWorld := mgl32.Ident4()
			if cur.parent.IsValid() {
				parentWorld = g.nodes[cur.parent.index].world
			}
			cur.world = parentWorld.Mul4(cur.local.Matrix())
			cur.dirty = false
		}

		for i := len(chain) - 1; i >= 0; i-- {
			cur := g.nodes[chain[i].index]
			// an earlier observer moved it, the next pass notifies it
			if cur.observer == nil || cur.dirty || !g.Contains(chain[i]) {
				continue
			}
			cur.observer(chain[i], cur.world)
		}
	}
	return g.nodes[id.index].world
}

func (g *Graph) WorldPosition(id NodeID) mgl32.Vec3 {
	return g.WorldMatrix(id).Col(3).Vec3()
}

func (g *Graph) WorldRotation(id NodeID) mgl32.Quat {
	_, r, _ := math.Decompose(g.WorldMatrix(id))
	return r
}

func (g *Graph) WorldScale(id NodeID) mgl32.Vec3 {
	_, _, s := math.Decompose(g.WorldMatrix(id))
	return s
}

// Parent returns the parent of a node, or InvalidNode for roots.
func (g *Graph) Parent(id NodeID) NodeID {
	return g.get(id).parent
}

// Children returns a copy of the ordered child list of a node.
func (g *Graph) Children(id NodeID) []NodeID {
	n := g.get(id)
	out := make([]NodeID, len(n.children))
	copy(out, n.children)
	return out
}

// Roots returns every live node without a parent.
func (g *Graph) Roots() []NodeID {
	var roots []NodeID
	for i := range g.nodes {
		n := &g.nodes[i]
		if n.alive && !n.parent.IsValid() {
			roots = append(roots, NodeID{index: uint32(i), generation: n.generation})
		}
	}
	return roots
}

// Walk visits id and its descendants depth first, parents before children.
// Returning false from fn skips the subtree of that node.
func (g *Graph) Walk(id NodeID, fn func(id NodeID) bool) {
	if !fn(id) {
		return
	}
	for _, c := range g.get(id).children {
		g.Walk(c, fn)
	}
}

// SetParent moves child under parent, or detaches it when parent is InvalidNode. The
// local transform is kept, so the world transform of the subtree changes. Parenting a
// node to itself or to one of its descendants fails with core.ErrInvalidOperation.
func (g *Graph) SetParent(child NodeID, parent NodeID) error {
	c := g.get(child)
	if c.parent == parent {
		return nil
	}

	if parent.IsValid() {
		g.get(parent)
		for p := parent; p.IsValid(); p = g.nodes[p.index].parent {
			if p == child {
				return fmt.Errorf("parenting %s to %s would create a cycle: %w", child, parent, core.ErrInvalidOperation)
			}
		}
	}

	if c.parent.IsValid() {
		g.removeChild(c.parent, child)
	}
	c.parent = parent
	if parent.IsValid() {
		p := &g.nodes[parent.index]
		p.children = append(p.children, child)
	}
	g.markDirty(child)
	return nil
}

// Clear disconnects a node from the hierarchy without destroying anything. Its
// children are either handed to the node's former parent or become roots. Every
// affected node is left dirty.
func (g *Graph) Clear(id NodeID, reparentChildrenToGrandparent bool) {
	n := g.get(id)
	grandparent := n.parent
	children := n.children
	n.children = nil

	for _, c := range children {
		cn := &g.nodes[c.index]
		if reparentChildrenToGrandparent && grandparent.IsValid() {
			cn.parent = grandparent
			gp := &g.nodes[grandparent.index]
			gp.children = append(gp.children, c)
		} else {
			cn.parent = InvalidNode
		}
		g.markDirty(c)
	}

	if grandparent.IsValid() {
		g.removeChild(grandparent, id)
	}
	n.parent = InvalidNode
	g.markDirty(id)
}

func (g *Graph) removeChild(parent NodeID, child NodeID) {
	p := &g.nodes[parent.index]
	for i, c := range p.children {
		if c == child {
			p.children = append(p.children[:i], p.children[i+1:]...)
			return
		}
	}
}
