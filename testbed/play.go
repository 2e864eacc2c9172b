package testbed

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/playground/engine"
	"github.com/spaghettifunk/playground/engine/core"
	"github.com/spaghettifunk/playground/engine/physics"
	"github.com/spaghettifunk/playground/engine/renderer/metadata"
	"github.com/spaghettifunk/playground/engine/scene"
)

const (
	orbitCount    = 3
	cubeCount     = 4
	dropHeight    = 6.0
	spinPerSecond = 0.5
)

// PlayState spins a root node with orbiting children and simulates falling crates.
// Pressing R lifts the crates back up.
type PlayState struct {
	meshes map[string]*metadata.Mesh

	root    scene.NodeID
	nodes   []scene.NodeID
	models  []*metadata.Model
	crates  []*physics.PhysicsObject
	crateAt []mgl32.Vec3
}

func NewPlayState(meshes map[string]*metadata.Mesh) *PlayState {
	return &PlayState{meshes: meshes}
}

func (s *PlayState) Name() string {
	return "play"
}

func (s *PlayState) Enter(e *engine.Engine) error {
	graph := e.Graph()

	s.root = graph.CreateNode("root")
	s.addModel("root", s.root, s.meshes[cubeMesh])
	parent := s.root
	for i := 0; i < orbitCount; i++ {
		// Each orbit hangs off the previous one, halving in size.
		node := graph.CreateNodeAt(fmt.Sprintf("orbit-%d", i), mgl32.Vec3{4, 0, 0}, mgl32.QuatIdent(), mgl32.Vec3{0.5, 0.5, 0.5})
		if err := graph.SetParent(node, parent); err != nil {
			return err
		}
		s.nodes = append(s.nodes, node)
		s.addModel(graph.Name(node), node, s.meshes[cubeMesh])
		parent = node
	}

	for i := 0; i < cubeCount; i++ {
		at := mgl32.Vec3{float32(i)*1.5 - 2.25, dropHeight + float32(i), -4}
		node := graph.CreateNodeAt(fmt.Sprintf("crate-%d", i), at, mgl32.QuatIdent(), mgl32.Vec3{1, 1, 1})
		obj := physics.NewPhysicsObject(physics.Dynamic)
		obj.AttachTransform(graph, node)
		obj.AttachRigidBody(physics.NewBody(physics.BodyConfig{
			Shape:         physics.NewBoxShape(mgl32.Vec3{0.5, 0.5, 0.5}),
			MotionType:    physics.Dynamic,
			Mass:          1,
			GravityScale:  1,
			LinearDamping: 0.05,
			Restitution:   0.3,
			Friction:      0.6,
			Position:      at,
		}))
		e.Physics().Add(obj)
		s.nodes = append(s.nodes, node)
		s.crates = append(s.crates, obj)
		s.crateAt = append(s.crateAt, at)
		s.addModel(graph.Name(node), node, s.meshes[crateMesh])
	}
	core.LogInfo("Play state ready: %d models, %d physics objects", len(s.models), len(s.crates))
	return nil
}

func (s *PlayState) addModel(name string, node scene.NodeID, mesh *metadata.Mesh) {
	if mesh == nil {
		return
	}
	s.models = append(s.models, &metadata.Model{Name: name, Node: node, Mesh: mesh})
}

func (s *PlayState) Update(e *engine.Engine, deltaTime float64) error {
	spin := mgl32.QuatRotate(float32(spinPerSecond*deltaTime), mgl32.Vec3{0, 1, 0})
	e.Graph().Rotate(s.root, spin)
	for _, node := range s.nodes[:orbitCount] {
		e.Graph().Rotate(node, spin)
	}

	input := e.Input()
	if input.IsKeyDown(core.KEY_R) && input.WasKeyUp(core.KEY_R) {
		for i, obj := range s.crates {
			e.Graph().SetPositionRotationScale(obj.Node(), s.crateAt[i], mgl32.QuatIdent(), mgl32.Vec3{1, 1, 1})
			obj.ResetPhysics()
		}
	}
	return nil
}

func (s *PlayState) Render(e *engine.Engine, packet *metadata.RenderPacket) error {
	packet.Models = append(packet.Models, s.models...)
	return nil
}

func (s *PlayState) Exit(e *engine.Engine) error {
	for _, obj := range s.crates {
		e.Physics().Remove(obj)
	}
	graph := e.Graph()
	// Children first, the orbit chain is nested.
	for i := len(s.nodes) - 1; i >= 0; i-- {
		graph.DestroyNode(s.nodes[i])
	}
	graph.DestroyNode(s.root)
	s.nodes, s.models, s.crates, s.crateAt = nil, nil, nil, nil
	return nil
}
