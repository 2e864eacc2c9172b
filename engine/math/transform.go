package math

import "github.com/go-gl/mathgl/mgl32"

// SimpleTransform is a position/rotation/scale triple with a lazily rebuilt local
// matrix. It has no notion of a parent; hierarchies live in the scene graph.
type SimpleTransform struct {
	position mgl32.Vec3
	rotation mgl32.Quat
	scale    mgl32.Vec3
	local    mgl32.Mat4
	dirty    bool
	onUpdate func(local mgl32.Mat4)
}

func NewSimpleTransform() *SimpleTransform {
	return TransformFromPositionRotationScale(mgl32.Vec3{}, mgl32.QuatIdent(), mgl32.Vec3{1, 1, 1})
}

func TransformFromPosition(position mgl32.Vec3) *SimpleTransform {
	return TransformFromPositionRotationScale(position, mgl32.QuatIdent(), mgl32.Vec3{1, 1, 1})
}

func TransformFromPositionRotationScale(position mgl32.Vec3, rotation mgl32.Quat, scale mgl32.Vec3) *SimpleTransform {
	t := &SimpleTransform{local: mgl32.Ident4()}
	t.SetPositionRotationScale(position, rotation, scale)
	return t
}

// OnUpdate registers fn to be called with the new local matrix every time it is rebuilt.
func (t *SimpleTransform) OnUpdate(fn func(local mgl32.Mat4)) {
	t.onUpdate = fn
}

func (t *SimpleTransform) Position() mgl32.Vec3 { return t.position }
func (t *SimpleTransform) Rotation() mgl32.Quat { return t.rotation }
func (t *SimpleTransform) Scale() mgl32.Vec3 { return t.scale }
func (t *SimpleTransform) IsDirty() bool { return t.dirty }

func (t *SimpleTransform) SetPosition(position mgl32.Vec3) {
	t.position = position
	t.dirty = true
}

func (t *SimpleTransform) Translate(translation mgl32.Vec3) {
	t.position = t.position.Add(translation)
	t.dirty = true
}

func (t *SimpleTransform) SetRotation(rotation mgl32.Quat) {
	t.rotation = rotation.Normalize()
	t.dirty = true
}

// Rotate applies rotation in local space.
func (t *SimpleTransform) Rotate(rotation mgl32.Quat) {
	t.rotation = t.rotation.Mul(rotation).Normalize()
	t.dirty = true
}

func (t *SimpleTransform) SetScale(scale mgl32.Vec3) {
	t.scale = scale
	t.dirty = true
}

func (t *SimpleTransform) SetPositionRotationScale(position mgl32.Vec3, rotation mgl32.Quat, scale mgl32.Vec3) {
	t.position = position
	t.rotation = rotation.Normalize()
	t.scale = scale
	t.dirty = true
}

// Matrix returns the local matrix (translation * rotation * scale), rebuilding it if
// any component changed since the last call.
func (t *SimpleTransform) Matrix() mgl32.Mat4 {
	if t.dirty {
		t.local = Compose(t.position, t.rotation, t.scale)
		t.dirty = false
		if t.onUpdate != nil {
			t.onUpdate(t.local)
		}
	}
	return t.local
}
