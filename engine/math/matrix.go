package math

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

const K_FLOAT_EPSILON float32 = 1.192092896e-07

// Compose builds translation * rotation * scale.
func Compose(position mgl32.Vec3, rotation mgl32.Quat, scale mgl32.Vec3) mgl32.Mat4 {
	t := mgl32.Translate3D(position.X(), position.Y(), position.Z())
	r := rotation.Mat4()
	s := mgl32.Scale3D(scale.X(), scale.Y(), scale.Z())
	return t.Mul4(r).Mul4(s)
}

// Decompose splits an affine matrix built by Compose back into its parts. A negative
// determinant is folded into the x scale.
func Decompose(m mgl32.Mat4) (position mgl32.Vec3, rotation mgl32.Quat, scale mgl32.Vec3) {
	position = m.Col(3).Vec3()

	c0, c1, c2 := m.Col(0).Vec3(), m.Col(1).Vec3(), m.Col(2).Vec3()
	scale = mgl32.Vec3{c0.Len(), c1.Len(), c2.Len()}
	if c0.Dot(c1.Cross(c2)) < 0 {
		scale[0] = -scale[0]
	}

	rm := mgl32.Ident4()
	cols := [3]mgl32.Vec3{c0, c1, c2}
	for i := 0; i < 3; i++ {
		if math32.Abs(scale[i]) < K_FLOAT_EPSILON {
			continue
		}
		rm.SetCol(i, cols[i].Mul(1/scale[i]).Vec4(0))
	}
	rotation = mgl32.Mat4ToQuat(rm).Normalize()
	return position, rotation, scale
}

// MaxComponent returns the largest absolute component of v.
func MaxComponent(v mgl32.Vec3) float32 {
	return math32.Max(math32.Abs(v.X()), math32.Max(math32.Abs(v.Y()), math32.Abs(v.Z())))
}

// ApproxEqualVec3 compares component wise within epsilon.
func ApproxEqualVec3(a, b mgl32.Vec3, epsilon float32) bool {
	return a.Sub(b).Len() <= epsilon
}

func DegToRad(degrees float32) float32 {
	return degrees * (math32.Pi / 180.0)
}

func RadToDeg(radians float32) float32 {
	return radians * (180.0 / math32.Pi)
}
