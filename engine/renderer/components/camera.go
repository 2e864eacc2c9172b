package components

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/playground/engine/core"
	"github.com/spaghettifunk/playground/engine/math"
	"github.com/spaghettifunk/playground/engine/scene"
)

/** @brief The name of the default camera. */
const DEFAULT_CAMERA_NAME string = "default"

const (
	defaultFov  float32 = 45.0
	defaultNear float32 = 0.1
	defaultFar  float32 = 1000.0
	// 89 degrees, to avoid gimbal lock.
	pitchLimit float32 = 1.55334306
)

/**
 * @brief Represents a camera that can be used for
 * a variety of things, especially rendering. Control schemes
 * are implementations of this interface.
 */
type Camera interface {
	/** @brief Applies per-frame control. */
	Update(deltaTime float64)
	View() mgl32.Mat4
	Projection() mgl32.Mat4
	Position() mgl32.Vec3
	SetAspect(aspect float32)
	Reset()
}

type lens struct {
	fov    float32
	aspect float32
	near   float32
	far    float32
}

func defaultLens() lens {
	return lens{fov: defaultFov, aspect: 16.0 / 9.0, near: defaultNear, far: defaultFar}
}

func (l *lens) projection() mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(l.fov), l.aspect, l.near, l.far)
}

/**
 * @brief A free flying camera driven by yaw and pitch. When an input
 * state is attached, WASD moves, QE moves vertically and the arrow
 * keys look around.
 */
type FreeCamera struct {
	transform *math.SimpleTransform
	yaw       float32
	pitch     float32
	view      mgl32.Mat4
	lens      lens

	input     *core.Input
	MoveSpeed float32
	TurnSpeed float32
}

func NewFreeCamera(position mgl32.Vec3) *FreeCamera {
	c := &FreeCamera{
		lens:      defaultLens(),
		MoveSpeed: 5.0,
		TurnSpeed: 1.5,
	}
	c.transform = math.TransformFromPosition(position)
	c.transform.OnUpdate(func(local mgl32.Mat4) {
		c.view = local.Inv()
	})
	return c
}

// AttachInput lets Update drive the camera from keyboard state. nil detaches.
func (c *FreeCamera) AttachInput(input *core.Input) {
	c.input = input
}

func (c *FreeCamera) Reset() {
	c.yaw = 0
	c.pitch = 0
	c.transform.SetPositionRotationScale(mgl32.Vec3{}, mgl32.QuatIdent(), mgl32.Vec3{1, 1, 1})
}

func (c *FreeCamera) Position() mgl32.Vec3 {
	return c.transform.Position()
}

func (c *FreeCamera) SetPosition(position mgl32.Vec3) {
	c.transform.SetPosition(position)
}

func (c *FreeCamera) SetAspect(aspect float32) {
	if aspect > 0 {
		c.lens.aspect = aspect
	}
}

func (c *FreeCamera) View() mgl32.Mat4 {
	// Rebuilding the matrix fires the observer, which refreshes the view.
	c.transform.Matrix()
	return c.view
}

func (c *FreeCamera) Projection() mgl32.Mat4 {
	return c.lens.projection()
}

func (c *FreeCamera) Forward() mgl32.Vec3 {
	return c.transform.Rotation().Rotate(mgl32.Vec3{0, 0, -1})
}

func (c *FreeCamera) Right() mgl32.Vec3 {
	return c.transform.Rotation().Rotate(mgl32.Vec3{1, 0, 0})
}

func (c *FreeCamera) MoveForward(amount float32) {
	c.transform.Translate(c.Forward().Mul(amount))
}

func (c *FreeCamera) MoveBackward(amount float32) {
	c.transform.Translate(c.Forward().Mul(-amount))
}

func (c *FreeCamera) MoveLeft(amount float32) {
	c.transform.Translate(c.Right().Mul(-amount))
}

func (c *FreeCamera) MoveRight(amount float32) {
	c.transform.Translate(c.Right().Mul(amount))
}

func (c *FreeCamera) MoveUp(amount float32) {
	c.transform.Translate(mgl32.Vec3{0, amount, 0})
}

func (c *FreeCamera) MoveDown(amount float32) {
	c.transform.Translate(mgl32.Vec3{0, -amount, 0})
}

func (c *FreeCamera) Yaw(amount float32) {
	c.yaw = math32.Mod(c.yaw+amount, 2*math32.Pi)
	c.applyRotation()
}

func (c *FreeCamera) Pitch(amount float32) {
	// Clamp to avoid Gimbal lock.
	c.pitch = math.Clamp(c.pitch+amount, -pitchLimit, pitchLimit)
	c.applyRotation()
}

func (c *FreeCamera) applyRotation() {
	yaw := mgl32.QuatRotate(c.yaw, mgl32.Vec3{0, 1, 0})
	pitch := mgl32.QuatRotate(c.pitch, mgl32.Vec3{1, 0, 0})
	c.transform.SetRotation(yaw.Mul(pitch))
}

func (c *FreeCamera) Update(deltaTime float64) {
	if c.input == nil {
		return
	}
	step := c.MoveSpeed * float32(deltaTime)
	turn := c.TurnSpeed * float32(deltaTime)

	if c.input.IsKeyDown(core.KEY_W) {
		c.MoveForward(step)
	}
	if c.input.IsKeyDown(core.KEY_S) {
		c.MoveBackward(step)
	}
	if c.input.IsKeyDown(core.KEY_A) {
		c.MoveLeft(step)
	}
	if c.input.IsKeyDown(core.KEY_D) {
		c.MoveRight(step)
	}
	if c.input.IsKeyDown(core.KEY_E) {
		c.MoveUp(step)
	}
	if c.input.IsKeyDown(core.KEY_Q) {
		c.MoveDown(step)
	}
	if c.input.IsKeyDown(core.KEY_LEFT) {
		c.Yaw(turn)
	}
	if c.input.IsKeyDown(core.KEY_RIGHT) {
		c.Yaw(-turn)
	}
	if c.input.IsKeyDown(core.KEY_UP) {
		c.Pitch(turn)
	}
	if c.input.IsKeyDown(core.KEY_DOWN) {
		c.Pitch(-turn)
	}
}

/**
 * @brief A camera looking through a scene node, e.g. one
 * parented to a moving object. It takes over the node's graph
 * observer to keep its view matrix current.
 */
type NodeCamera struct {
	graph *scene.Graph
	node  scene.NodeID
	lens  lens
	view  mgl32.Mat4
}

func NewNodeCamera(graph *scene.Graph, node scene.NodeID) *NodeCamera {
	core.Assertf(graph.Contains(node), core.ErrStaleNode, "camera node %s", node)
	c := &NodeCamera{
		graph: graph,
		node:  node,
		lens:  defaultLens(),
	}
	graph.OnUpdate(node, c.onMoved)
	c.view = graph.WorldMatrix(node).Inv()
	return c
}

func (c *NodeCamera) onMoved(id scene.NodeID, world mgl32.Mat4) {
	c.view = world.Inv()
}

func (c *NodeCamera) Node() scene.NodeID {
	return c.node
}

func (c *NodeCamera) Update(deltaTime float64) {}

func (c *NodeCamera) Reset() {
	c.graph.SetPositionRotationScale(c.node, mgl32.Vec3{}, mgl32.QuatIdent(), mgl32.Vec3{1, 1, 1})
}

func (c *NodeCamera) View() mgl32.Mat4 {
	// refreshes c.view through onMoved when the node moved
	c.graph.WorldMatrix(c.node)
	return c.view
}

func (c *NodeCamera) Projection() mgl32.Mat4 {
	return c.lens.projection()
}

func (c *NodeCamera) Position() mgl32.Vec3 {
	return c.graph.WorldPosition(c.node)
}

func (c *NodeCamera) SetAspect(aspect float32) {
	if aspect > 0 {
		c.lens.aspect = aspect
	}
}
