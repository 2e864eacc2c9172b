package physics

import (
	"github.com/go-gl/mathgl/mgl32"
)

// MotionType decides which side owns the transform of a physics object.
type MotionType int

const (
	// Kinematic bodies follow their scene node.
	Kinematic MotionType = iota
	// Dynamic bodies are simulated and drive their scene node.
	Dynamic
)

func (m MotionType) String() string {
	if m == Kinematic {
		return "kinematic"
	}
	return "dynamic"
}

// MotionState is how a simulation exchanges transforms with the engine. The simulation
// reads kinematic bodies through GetWorldTransform and reports dynamic bodies through
// SetWorldTransform, possibly from its own goroutine.
type MotionState interface {
	GetWorldTransform() (mgl32.Vec3, mgl32.Quat)
	SetWorldTransform(position mgl32.Vec3, rotation mgl32.Quat)
}

// RigidBody is the view the engine has of a body living in a physics world.
type RigidBody interface {
	Shape() *Shape
	MotionType() MotionType
	Position() mgl32.Vec3
	Rotation() mgl32.Quat
	// SetWorldTransform teleports the body.
	SetWorldTransform(position mgl32.Vec3, rotation mgl32.Quat)
	LinearVelocity() mgl32.Vec3
	SetLinearVelocity(v mgl32.Vec3)
	AngularVelocity() mgl32.Vec3
	SetAngularVelocity(v mgl32.Vec3)
	ClearForces()
	SetMotionState(ms MotionState)
	Activate()
}

type BodyConfig struct {
	Shape          *Shape
	MotionType     MotionType
	Mass           float32
	GravityScale   float32
	LinearDamping  float32
	AngularDamping float32
	Restitution    float32
	Friction       float32
	Position       mgl32.Vec3
	Rotation       mgl32.Quat
}

// Body is the rigid body simulated by SimpleWorld.
type Body struct {
	shape           *Shape
	motionType      MotionType
	mass            float32
	gravityScale    float32
	linearDamping   float32
	angularDamping  float32
	restitution     float32
	friction        float32
	position        mgl32.Vec3
	rotation        mgl32.Quat
	linearVelocity  mgl32.Vec3
	angularVelocity mgl32.Vec3
	force           mgl32.Vec3
	torque          mgl32.Vec3
	motionState     MotionState
	sleeping        bool
	idleTime        float32
}

func NewBody(config BodyConfig) *Body {
	rot := config.Rotation
	if rot == (mgl32.Quat{}) {
		rot = mgl32.QuatIdent()
	}
	return &Body{
		shape:          config.Shape,
		motionType:     config.MotionType,
		mass:           config.Mass,
		gravityScale:   config.GravityScale,
		linearDamping:  config.LinearDamping,
		angularDamping: config.AngularDamping,
		restitution:    config.Restitution,
		friction:       config.Friction,
		position:       config.Position,
		rotation:       rot.Normalize(),
	}
}

func (b *Body) Shape() *Shape {
	return b.shape
}

func (b *Body) MotionType() MotionType {
	return b.motionType
}

func (b *Body) Position() mgl32.Vec3 {
	return b.position
}

func (b *Body) Rotation() mgl32.Quat {
	return b.rotation
}

func (b *Body) LinearVelocity() mgl32.Vec3 {
	return b.linearVelocity
}

func (b *Body) AngularVelocity() mgl32.Vec3 {
	return b.angularVelocity
}

func (b *Body) IsSleeping() bool {
	return b.sleeping
}

func (b *Body) SetWorldTransform(position mgl32.Vec3, rotation mgl32.Quat) {
	b.position = position
	b.rotation = rotation.Normalize()
}

func (b *Body) SetLinearVelocity(v mgl32.Vec3) {
	b.linearVelocity = v
}

func (b *Body) SetAngularVelocity(v mgl32.Vec3) {
	b.angularVelocity = v
}

func (b *Body) ClearForces() {
	b.force = mgl32.Vec3{}
	b.torque = mgl32.Vec3{}
}

func (b *Body) SetMotionState(ms MotionState) {
	b.motionState = ms
}

func (b *Body) Activate() {
	b.sleeping = false
	b.idleTime = 0
}

func (b *Body) ApplyForce(force mgl32.Vec3) {
	b.Activate()
	b.force = b.force.Add(force)
}

func (b *Body) ApplyTorque(torque mgl32.Vec3) {
	b.Activate()
	b.torque = b.torque.Add(torque)
}

func (b *Body) ApplyImpulse(impulse mgl32.Vec3) {
	b.Activate()
	if b.mass > 0 {
		b.linearVelocity = b.linearVelocity.Add(impulse.Mul(1.0 / b.mass))
	} else {
		b.linearVelocity = b.linearVelocity.Add(impulse)
	}
}
