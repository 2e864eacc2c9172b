package math

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestSimpleTransformLazyMatrix(t *testing.T) {
	tr := NewSimpleTransform()
	updates := 0
	tr.OnUpdate(func(mgl32.Mat4) { updates++ })

	assert.True(t, tr.IsDirty())
	assert.True(t, tr.Matrix().ApproxEqual(mgl32.Ident4()))
	assert.Equal(t, 1, updates)

	// cached: no rebuild, no observer call
	tr.Matrix()
	assert.Equal(t, 1, updates)
	assert.False(t, tr.IsDirty())

	tr.SetPosition(mgl32.Vec3{1, 2, 3})
	assert.True(t, tr.IsDirty())
	m := tr.Matrix()
	assert.Equal(t, 2, updates)
	assert.True(t, m.Col(3).Vec3().ApproxEqual(mgl32.Vec3{1, 2, 3}))
}

func TestSimpleTransformOrder(t *testing.T) {
	// scale first, then rotate, then translate
	rot := mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 0, 1})
	tr := TransformFromPositionRotationScale(mgl32.Vec3{10, 0, 0}, rot, mgl32.Vec3{2, 2, 2})

	p := tr.Matrix().Mul4x1(mgl32.Vec4{1, 0, 0, 1}).Vec3()
	assert.True(t, ApproxEqualVec3(p, mgl32.Vec3{10, 2, 0}, 1e-4), "got %v", p)
}

func TestComposeDecomposeRoundTrip(t *testing.T) {
	pos := mgl32.Vec3{1, -2, 3}
	rot := mgl32.QuatRotate(0.7, mgl32.Vec3{1, 1, 0}.Normalize())
	scale := mgl32.Vec3{2, 0.5, 3}

	p, r, s := Decompose(Compose(pos, rot, scale))
	assert.True(t, ApproxEqualVec3(p, pos, 1e-4))
	assert.True(t, ApproxEqualVec3(s, scale, 1e-4))
	assert.InDelta(t, 1.0, float64(mgl32.Abs(r.Dot(rot))), 1e-4)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 1, Clamp(5, -1, 1))
	assert.Equal(t, float32(-1), Clamp(float32(-3), -1, 1))
	assert.Equal(t, 0.5, Clamp(0.5, 0, 1))
}
