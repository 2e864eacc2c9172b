package physics

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/playground/engine/core"
)

// World is a physics simulation bodies can be added to.
type World interface {
	AddBody(body RigidBody)
	RemoveBody(body RigidBody)
	Step(dt float32)
}

type WorldConfig struct {
	Gravity        mgl32.Vec3
	GroundPlane    bool
	GroundY        float32
	SleepThreshold float32
	SleepTime      float32
}

func DefaultWorldConfig() WorldConfig {
	return WorldConfig{
		Gravity:        mgl32.Vec3{0, -9.81, 0},
		GroundPlane:    true,
		SleepThreshold: 0.05,
		SleepTime:      1.0,
	}
}

// SimpleWorld integrates bodies under gravity and an optional ground plane. It does
// not resolve contacts between bodies.
type SimpleWorld struct {
	config WorldConfig
	bodies []*Body
}

func NewSimpleWorld(config WorldConfig) *SimpleWorld {
	return &SimpleWorld{config: config}
}

func (w *SimpleWorld) AddBody(body RigidBody) {
	b, ok := body.(*Body)
	core.Assertf(ok, core.ErrUnsupportedFormat, "simple world cannot simulate %T", body)
	for _, existing := range w.bodies {
		core.Assertf(existing != b, core.ErrInvalidOperation, "body added twice")
	}
	w.bodies = append(w.bodies, b)
}

func (w *SimpleWorld) RemoveBody(body RigidBody) {
	for i, b := range w.bodies {
		if RigidBody(b) == body {
			w.bodies = append(w.bodies[:i], w.bodies[i+1:]...)
			return
		}
	}
}

func (w *SimpleWorld) Bodies() int {
	return len(w.bodies)
}

func (w *SimpleWorld) Step(dt float32) {
	if dt <= 0 || dt > 1.0 {
		return
	}
	for _, b := range w.bodies {
		if b.motionType == Kinematic {
			if b.motionState != nil {
				b.position, b.rotation = b.motionState.GetWorldTransform()
			}
			continue
		}
		if b.sleeping {
			continue
		}
		w.integrate(b, dt)
		if b.motionState != nil {
			b.motionState.SetWorldTransform(b.position, b.rotation)
		}
	}
}

func (w *SimpleWorld) integrate(b *Body, dt float32) {
	accel := w.config.Gravity.Mul(b.gravityScale)
	if b.mass > 0 {
		accel = accel.Add(b.force.Mul(1 / b.mass))
		b.angularVelocity = b.angularVelocity.Add(b.torque.Mul(dt / b.mass))
	}
	b.linearVelocity = b.linearVelocity.Add(accel.Mul(dt)).Mul(math32.Max(0, 1-b.linearDamping*dt))
	b.angularVelocity = b.angularVelocity.Mul(math32.Max(0, 1-b.angularDamping*dt))

	displacement := b.linearVelocity.Mul(dt)
	if l := displacement.Len(); math32.IsNaN(l) || math32.IsInf(l, 0) {
		b.linearVelocity = mgl32.Vec3{}
		b.ClearForces()
		return
	}
	b.position = b.position.Add(displacement)

	if wl := b.angularVelocity.Len(); wl > 0 {
		spin := mgl32.QuatRotate(wl*dt, b.angularVelocity.Mul(1/wl))
		b.rotation = spin.Mul(b.rotation).Normalize()
	}

	if w.config.GroundPlane {
		bottom := b.position.Y() - b.shape.Bounds().Y()
		if bottom < w.config.GroundY {
			b.position[1] += w.config.GroundY - bottom
			if b.linearVelocity.Y() < 0 {
				b.linearVelocity[1] = -b.linearVelocity.Y() * b.restitution
			}
			damp := math32.Max(0, 1-b.friction*dt)
			b.linearVelocity[0] *= damp
			b.linearVelocity[2] *= damp
		}
	}
	b.ClearForces()

	if b.linearVelocity.Len() < w.config.SleepThreshold && b.angularVelocity.Len() < w.config.SleepThreshold {
		b.idleTime += dt
		if w.config.SleepTime > 0 && b.idleTime > w.config.SleepTime {
			b.sleeping = true
			b.linearVelocity = mgl32.Vec3{}
			b.angularVelocity = mgl32.Vec3{}
		}
	} else {
		b.idleTime = 0
	}
}
