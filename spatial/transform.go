// Package spatial holds the rigid transforms and axis-aligned boxes shared by
// the polytope engine and its consumers.
package spatial

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Transform represents a rigid pose in 3D space: a rotation followed by a translation.
type Transform struct {
	Position mgl64.Vec3
	Rotation mgl64.Quat
}

// NewTransform creates an identity transform
func NewTransform() Transform {
	return Transform{
		Position: mgl64.Vec3{0, 0, 0},
		Rotation: mgl64.QuatIdent(),
	}
}

// NewTransformFromAxisAngle builds a transform rotating by angle (radians) around axis,
// then translating by position.
func NewTransformFromAxisAngle(position, axis mgl64.Vec3, angle float64) Transform {
	if axis.LenSqr() < 1e-16 {
		return Transform{Position: position, Rotation: mgl64.QuatIdent()}
	}
	return Transform{
		Position: position,
		Rotation: mgl64.QuatRotate(angle, axis.Normalize()),
	}
}

// FromMat4 extracts the rigid part of a homogeneous matrix.
// Scale and shear are discarded by the quaternion conversion.
func FromMat4(m mgl64.Mat4) Transform {
	return Transform{
		Position: m.Col(3).Vec3(),
		Rotation: mgl64.Mat4ToQuat(m).Normalize(),
	}
}

// Mat4 returns the homogeneous matrix of the transform.
func (t Transform) Mat4() mgl64.Mat4 {
	return mgl64.Translate3D(t.Position.X(), t.Position.Y(), t.Position.Z()).Mul4(t.rotation().Mat4())
}

// Apply maps a point from local to world space.
func (t Transform) Apply(p mgl64.Vec3) mgl64.Vec3 {
	return t.rotation().Rotate(p).Add(t.Position)
}

// ApplyInverse maps a point from world to local space.
func (t Transform) ApplyInverse(p mgl64.Vec3) mgl64.Vec3 {
	return t.rotation().Conjugate().Rotate(p.Sub(t.Position))
}

// ApplyVector rotates a direction; translation does not apply to directions.
func (t Transform) ApplyVector(v mgl64.Vec3) mgl64.Vec3 {
	return t.rotation().Rotate(v)
}

// ApplyInverseVector rotates a direction back into local space.
func (t Transform) ApplyInverseVector(v mgl64.Vec3) mgl64.Vec3 {
	return t.rotation().Conjugate().Rotate(v)
}

// Inverse returns the transform undoing t.
func (t Transform) Inverse() Transform {
	inv := t.rotation().Conjugate()
	return Transform{
		Position: inv.Rotate(t.Position).Mul(-1),
		Rotation: inv,
	}
}

// Compose returns the transform applying other first, then t.
func (t Transform) Compose(other Transform) Transform {
	return Transform{
		Position: t.Apply(other.Position),
		Rotation: t.rotation().Mul(other.rotation()).Normalize(),
	}
}

// IsFinite reports whether every component of the transform is a finite number.
func (t Transform) IsFinite() bool {
	values := [7]float64{
		t.Position[0], t.Position[1], t.Position[2],
		t.Rotation.W, t.Rotation.V[0], t.Rotation.V[1], t.Rotation.V[2],
	}
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// rotation treats the zero quaternion (zero-value Transform) as identity.
func (t Transform) rotation() mgl64.Quat {
	if t.Rotation.W == 0 && t.Rotation.V.LenSqr() == 0 {
		return mgl64.QuatIdent()
	}
	return t.Rotation
}
