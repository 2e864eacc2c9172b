package systems

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/playground/engine/core"
	"github.com/spaghettifunk/playground/engine/renderer/components"
	"github.com/spaghettifunk/playground/engine/scene"
)

func TestCameraSystemRequiresCapacity(t *testing.T) {
	_, err := NewCameraSystem(CameraSystemConfig{})
	assert.ErrorIs(t, err, core.ErrInvalidOperation)
}

func TestCameraAcquireRelease(t *testing.T) {
	cs, err := NewCameraSystem(CameraSystemConfig{MaxCameraCount: 2})
	require.NoError(t, err)

	def, err := cs.Acquire(components.DEFAULT_CAMERA_NAME)
	require.NoError(t, err)
	assert.Same(t, cs.GetDefault(), def)
	assert.Equal(t, mgl32.Vec3{0, 0, 10}, def.Position())

	a, err := cs.Acquire("world")
	require.NoError(t, err)
	again, err := cs.Acquire("world")
	require.NoError(t, err)
	assert.Same(t, a, again)
	assert.Equal(t, 1, cs.Len())

	require.NoError(t, cs.SetActive("world"))
	assert.Same(t, a, cs.Active())

	// two references are held
	cs.Release("world")
	assert.Equal(t, 1, cs.Len())
	cs.Release("world")
	assert.Equal(t, 0, cs.Len())
	assert.Same(t, cs.GetDefault(), cs.Active())

	assert.ErrorIs(t, cs.SetActive("world"), core.ErrInvalidOperation)
}

func TestCameraRegisterLimits(t *testing.T) {
	cs, err := NewCameraSystem(CameraSystemConfig{MaxCameraCount: 1})
	require.NoError(t, err)

	graph := scene.NewGraph()
	node := graph.CreateNodeAt("eye", mgl32.Vec3{0, 2, 0}, mgl32.QuatIdent(), mgl32.Vec3{1, 1, 1})
	_, err = cs.Register("eye", components.NewNodeCamera(graph, node))
	require.NoError(t, err)

	_, err = cs.Register("eye", components.NewFreeCamera(mgl32.Vec3{}))
	assert.ErrorIs(t, err, core.ErrInvalidOperation)
	_, err = cs.Register(components.DEFAULT_CAMERA_NAME, components.NewFreeCamera(mgl32.Vec3{}))
	assert.ErrorIs(t, err, core.ErrInvalidOperation)
	_, err = cs.Acquire("other")
	assert.ErrorIs(t, err, core.ErrResourceExhausted)

	require.NoError(t, cs.SetActive("eye"))
	graph.Translate(node, mgl32.Vec3{1, 0, 0})
	assert.Equal(t, mgl32.Vec3{1, 2, 0}, cs.Active().Position())
}

func TestCameraSetAspectReachesEveryCamera(t *testing.T) {
	cs, err := NewCameraSystem(CameraSystemConfig{MaxCameraCount: 4})
	require.NoError(t, err)
	cam, err := cs.Acquire("side")
	require.NoError(t, err)

	before := cam.Projection()
	cs.SetAspect(2)
	assert.NotEqual(t, before, cam.Projection())
	assert.Equal(t, cam.Projection(), cs.GetDefault().Projection())
}
