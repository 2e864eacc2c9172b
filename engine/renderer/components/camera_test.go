package components

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/playground/engine/core"
	"github.com/spaghettifunk/playground/engine/scene"
)

func near(a, b mgl32.Vec3) bool {
	return a.Sub(b).Len() < 1e-4
}

func TestFreeCameraView(t *testing.T) {
	c := NewFreeCamera(mgl32.Vec3{0, 0, 5})
	origin := c.View().Mul4x1(mgl32.Vec4{0, 0, 0, 1}).Vec3()
	assert.True(t, near(origin, mgl32.Vec3{0, 0, -5}), "got %v", origin)

	c.Yaw(mgl32.DegToRad(90))
	assert.True(t, near(c.Forward(), mgl32.Vec3{-1, 0, 0}), "got %v", c.Forward())

	// the view follows the rotation without an explicit refresh
	ahead := c.View().Mul4x1(mgl32.Vec4{-1, 0, 5, 1}).Vec3()
	assert.True(t, near(ahead, mgl32.Vec3{0, 0, -1}), "got %v", ahead)
}

func TestFreeCameraPitchIsClamped(t *testing.T) {
	c := NewFreeCamera(mgl32.Vec3{})
	c.Pitch(10)
	assert.InDelta(t, pitchLimit, c.pitch, 1e-6)
	c.Pitch(-20)
	assert.InDelta(t, -pitchLimit, c.pitch, 1e-6)

	c.Reset()
	assert.Equal(t, float32(0), c.pitch)
	assert.Equal(t, mgl32.Vec3{}, c.Position())
}

func TestFreeCameraFollowsInput(t *testing.T) {
	input := core.NewInput(core.NewEventBus())
	c := NewFreeCamera(mgl32.Vec3{})
	c.AttachInput(input)

	input.ProcessKey(core.KEY_W, true)
	c.Update(1.0)
	assert.True(t, near(c.Position(), mgl32.Vec3{0, 0, -c.MoveSpeed}), "got %v", c.Position())

	input.ProcessKey(core.KEY_W, false)
	input.ProcessKey(core.KEY_E, true)
	c.Update(0.5)
	assert.InDelta(t, c.MoveSpeed*0.5, c.Position().Y(), 1e-5)
}

func TestNodeCamera(t *testing.T) {
	g := scene.NewGraph()
	rig := g.CreateNodeAt("rig", mgl32.Vec3{10, 0, 0}, mgl32.QuatIdent(), mgl32.Vec3{1, 1, 1})
	eye := g.CreateNodeAt("eye", mgl32.Vec3{0, 2, 0}, mgl32.QuatIdent(), mgl32.Vec3{1, 1, 1})
	require.NoError(t, g.SetParent(eye, rig))

	c := NewNodeCamera(g, eye)
	assert.True(t, near(c.Position(), mgl32.Vec3{10, 2, 0}))

	g.Translate(rig, mgl32.Vec3{0, 0, 1})
	origin := c.View().Mul4x1(mgl32.Vec4{10, 2, 1, 1}).Vec3()
	assert.True(t, near(origin, mgl32.Vec3{}), "got %v", origin)

	c.SetAspect(2)
	assert.Equal(t, mgl32.Perspective(mgl32.DegToRad(defaultFov), 2, defaultNear, defaultFar), c.Projection())

	g.DestroyNode(eye)
	assert.Panics(t, func() { NewNodeCamera(g, eye) })
}

func TestNodeCameraFollowsGraphRecompute(t *testing.T) {
	g := scene.NewGraph()
	rig := g.CreateNode("rig")
	eye := g.CreateNodeAt("eye", mgl32.Vec3{0, 0, 5}, mgl32.QuatIdent(), mgl32.Vec3{1, 1, 1})
	require.NoError(t, g.SetParent(eye, rig))

	c := NewNodeCamera(g, eye)
	assert.True(t, c.view.ApproxEqual(g.WorldMatrix(eye).Inv()))

	// another reader recomputes the node first
	g.SetPosition(rig, mgl32.Vec3{3, 0, 0})
	assert.True(t, near(g.WorldPosition(eye), mgl32.Vec3{3, 0, 5}))
	assert.True(t, c.view.ApproxEqual(g.WorldMatrix(eye).Inv()))
	assert.Equal(t, c.view, c.View())
}
