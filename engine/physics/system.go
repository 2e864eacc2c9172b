package physics

import (
	"github.com/spaghettifunk/playground/engine/core"
)

// System owns the physics objects of a world and keeps both sides in sync once per
// frame: kinematic objects are pushed, the world is stepped, dynamic objects are
// pulled. It runs on the main thread, which is the only writer of the scene graph.
type System struct {
	world   World
	objects []*PhysicsObject
}

func NewSystem(world World) *System {
	return &System{world: world}
}

func (s *System) World() World {
	return s.world
}

// Add registers a fully attached object and adds its body to the world.
func (s *System) Add(obj *PhysicsObject) {
	core.Assertf(obj.IsAttached(), core.ErrNotAttached, "adding physics object to the system")
	s.objects = append(s.objects, obj)
	s.world.AddBody(obj.Body())
}

// Remove takes the object and its body out of the simulation.
func (s *System) Remove(obj *PhysicsObject) {
	for i, o := range s.objects {
		if o == obj {
			s.objects = append(s.objects[:i], s.objects[i+1:]...)
			s.world.RemoveBody(obj.Body())
			return
		}
	}
}

func (s *System) Objects() []*PhysicsObject {
	return s.objects
}

// Step advances the simulation by deltaTime seconds.
func (s *System) Step(deltaTime float64) {
	for _, o := range s.objects {
		if o.MotionType() == Kinematic {
			o.UpdateToPhysics()
		}
	}
	s.world.Step(float32(deltaTime))
	for _, o := range s.objects {
		if o.MotionType() == Dynamic {
			o.UpdateFromPhysics()
		}
	}
}

// Shutdown removes every body from the world.
func (s *System) Shutdown() error {
	for _, o := range s.objects {
		s.world.RemoveBody(o.Body())
	}
	s.objects = nil
	return nil
}
