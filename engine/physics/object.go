// Package physics links scene nodes to rigid bodies. Kinematic objects push the
// transform of their node into the simulation, dynamic objects pull the simulated
// transform back into the scene graph.
package physics

import (
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/playground/engine/core"
	"github.com/spaghettifunk/playground/engine/math"
	"github.com/spaghettifunk/playground/engine/scene"
)

const scaleEpsilon float32 = 1e-5

// PhysicsObject binds exactly one scene node to exactly one rigid body. Each side can
// be attached once. Apart from SetWorldTransform, methods must be called from the main
// thread.
type PhysicsObject struct {
	motionType MotionType
	graph      *scene.Graph
	node       scene.NodeID
	body       RigidBody
	lastScale  mgl32.Vec3

	mu        sync.Mutex
	reported  bool
	reportPos mgl32.Vec3
	reportRot mgl32.Quat
}

func NewPhysicsObject(motionType MotionType) *PhysicsObject {
	return &PhysicsObject{
		motionType: motionType,
		lastScale:  mgl32.Vec3{1, 1, 1},
	}
}

func (p *PhysicsObject) MotionType() MotionType {
	return p.motionType
}

func (p *PhysicsObject) Node() scene.NodeID {
	return p.node
}

func (p *PhysicsObject) Body() RigidBody {
	return p.body
}

// AttachTransform links the object to a scene node.
func (p *PhysicsObject) AttachTransform(graph *scene.Graph, node scene.NodeID) {
	core.Assertf(p.graph == nil, core.ErrAlreadyAttached, "physics object transform")
	core.Assertf(graph != nil && graph.Contains(node), core.ErrStaleNode, "attaching physics object to %s", node)
	p.graph = graph
	p.node = node
	if p.body != nil {
		p.pushTransform()
	}
}

// AttachRigidBody links the object to a body with the same motion type and installs
// the object as the body's motion state.
func (p *PhysicsObject) AttachRigidBody(body RigidBody) {
	core.Assertf(p.body == nil, core.ErrAlreadyAttached, "physics object rigid body")
	core.Assertf(body != nil, core.ErrInvalidOperation, "attaching a nil rigid body")
	core.Assertf(body.MotionType() == p.motionType, core.ErrInvalidOperation,
		"attaching a %s body to a %s physics object", body.MotionType(), p.motionType)
	p.body = body
	body.SetMotionState(p)
	if p.graph != nil {
		p.pushTransform()
	}
}

// IsAttached reports whether both sides are linked.
func (p *PhysicsObject) IsAttached() bool {
	return p.graph != nil && p.body != nil
}

// UpdateToPhysics copies the world transform of the node into a kinematic body.
func (p *PhysicsObject) UpdateToPhysics() {
	p.assertAttached()
	p.syncScale()
	if p.motionType != Kinematic {
		return
	}
	pos, rot := p.GetWorldTransform()
	p.body.SetWorldTransform(pos, rot)
	p.body.Activate()
}

// UpdateFromPhysics copies the simulated transform of a dynamic body into the node.
// A transform reported through SetWorldTransform takes precedence over the body's
// current one.
func (p *PhysicsObject) UpdateFromPhysics() {
	p.assertAttached()
	if p.motionType != Dynamic {
		return
	}

	p.mu.Lock()
	pos, rot := p.body.Position(), p.body.Rotation()
	if p.reported {
		pos, rot = p.reportPos, p.reportRot
		p.reported = false
	}
	p.mu.Unlock()

	p.applyWorldTransform(pos, rot)
	p.syncScale()
}

// ResetPhysics clears velocities and forces and moves the body back onto the node.
func (p *PhysicsObject) ResetPhysics() {
	p.assertAttached()
	p.mu.Lock()
	p.reported = false
	p.mu.Unlock()

	p.body.SetLinearVelocity(mgl32.Vec3{})
	p.body.SetAngularVelocity(mgl32.Vec3{})
	p.body.ClearForces()
	p.pushTransform()
	p.body.Activate()
}

// GetWorldTransform implements MotionState.
func (p *PhysicsObject) GetWorldTransform() (mgl32.Vec3, mgl32.Quat) {
	world := p.graph.WorldMatrix(p.node)
	pos, rot, _ := math.Decompose(world)
	return pos, rot
}

// SetWorldTransform implements MotionState. It may be called from any goroutine; the
// transform reaches the scene graph on the next UpdateFromPhysics.
func (p *PhysicsObject) SetWorldTransform(position mgl32.Vec3, rotation mgl32.Quat) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reported = true
	p.reportPos = position
	p.reportRot = rotation
}

func (p *PhysicsObject) pushTransform() {
	pos, rot := p.GetWorldTransform()
	p.body.SetWorldTransform(pos, rot)
	p.syncScale()
}

// applyWorldTransform expresses a world position and rotation in the space of the
// node's parent. The local scale is left untouched.
func (p *PhysicsObject) applyWorldTransform(position mgl32.Vec3, rotation mgl32.Quat) {
	parent := p.graph.Parent(p.node)
	if !parent.IsValid() {
		_, _, scale := p.graph.Local(p.node)
		p.graph.SetPositionRotationScale(p.node, position, rotation, scale)
		return
	}

	parentWorld := p.graph.WorldMatrix(parent)
	localPos := parentWorld.Inv().Mul4x1(position.Vec4(1)).Vec3()
	_, parentRot, _ := math.Decompose(parentWorld)
	localRot := parentRot.Inverse().Mul(rotation)
	_, _, scale := p.graph.Local(p.node)
	p.graph.SetPositionRotationScale(p.node, localPos, localRot, scale)
}

// syncScale re-applies the node's world scale to the body's shape when it changed.
func (p *PhysicsObject) syncScale() {
	scale := p.graph.WorldScale(p.node)
	if math.ApproxEqualVec3(scale, p.lastScale, scaleEpsilon) {
		return
	}
	p.body.Shape().SetScale(scale)
	p.lastScale = scale
}

func (p *PhysicsObject) assertAttached() {
	core.Assertf(p.IsAttached(), core.ErrNotAttached, "physics object needs a transform and a rigid body")
}
