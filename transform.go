package rig

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Transform is a node's position, rotation (Euler XYZ, radians) and scale.
type Transform struct {
	Position Vec3
	Rotation Vec3
	Scale    Vec3
}

// IdentityTransform returns the transform with zero position and rotation
// and unit scale.
func IdentityTransform() Transform {
	return Transform{Scale: Vec3{1, 1, 1}}
}

// NewTransform builds a transform from its three channels.
func NewTransform(pos, rot, scale Vec3) Transform {
	return Transform{Position: pos, Rotation: rot, Scale: scale}
}

// Channel returns the value of one channel.
func (t Transform) Channel(c Channel) Vec3 {
	switch c {
	case ChannelRotation:
		return t.Rotation
	case ChannelScale:
		return t.Scale
	default:
		return t.Position
	}
}

// SetChannel overwrites one channel.
func (t *Transform) SetChannel(c Channel, v Vec3) {
	switch c {
	case ChannelRotation:
		t.Rotation = v
	case ChannelScale:
		t.Scale = v
	default:
		t.Position = v
	}
}

// IsFinite reports whether every component is neither NaN nor infinite.
func (t Transform) IsFinite() bool {
	return finiteVec(t.Position) && finiteVec(t.Rotation) && finiteVec(t.Scale)
}

// ApproxEqual compares every component within eps.
func (t Transform) ApproxEqual(o Transform, eps float64) bool {
	return t.Position.ApproxEqualThreshold(o.Position, eps) &&
		t.Rotation.ApproxEqualThreshold(o.Rotation, eps) &&
		t.Scale.ApproxEqualThreshold(o.Scale, eps)
}

// Quat returns the rotation as a quaternion.
func (t Transform) Quat() mgl64.Quat {
	return eulerToQuat(t.Rotation)
}

// Matrix returns the local matrix T * Rx * Ry * Rz * S.
func (t Transform) Matrix() mgl64.Mat4 {
	m := mgl64.Translate3D(t.Position[0], t.Position[1], t.Position[2])
	m = m.Mul4(rotationMatrix(t.Rotation))
	return m.Mul4(mgl64.Scale3D(t.Scale[0], t.Scale[1], t.Scale[2]))
}

func finiteVec(v Vec3) bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

func rotationMatrix(euler Vec3) mgl64.Mat4 {
	return mgl64.HomogRotate3DX(euler[0]).
		Mul4(mgl64.HomogRotate3DY(euler[1])).
		Mul4(mgl64.HomogRotate3DZ(euler[2]))
}

// eulerToQuat composes qx * qy * qz so it agrees with rotationMatrix.
func eulerToQuat(euler Vec3) mgl64.Quat {
	qx := mgl64.QuatRotate(euler[0], Vec3{1, 0, 0})
	qy := mgl64.QuatRotate(euler[1], Vec3{0, 1, 0})
	qz := mgl64.QuatRotate(euler[2], Vec3{0, 0, 1})
	return qx.Mul(qy).Mul(qz)
}

// quatToEuler extracts XYZ Euler angles from a quaternion.
func quatToEuler(q mgl64.Quat) Vec3 {
	return matrixToEuler(q.Normalize().Mat4())
}

// matrixToEuler extracts XYZ Euler angles from a pure rotation matrix
// (R = Rx * Ry * Rz).
func matrixToEuler(r mgl64.Mat4) Vec3 {
	m11, m12, m13 := r.At(0, 0), r.At(0, 1), r.At(0, 2)
	m22, m23 := r.At(1, 1), r.At(1, 2)
	m32, m33 := r.At(2, 1), r.At(2, 2)

	y := math.Asin(mgl64.Clamp(m13, -1, 1))
	if math.Abs(m13) < 0.9999999 {
		return Vec3{math.Atan2(-m23, m33), y, math.Atan2(-m12, m11)}
	}
	// Gimbal lock: fold the whole X/Z rotation into X.
	return Vec3{math.Atan2(m32, m22), y, 0}
}

// decomposeMatrix splits an affine matrix into position, XYZ Euler rotation
// and scale. Shear is discarded.
func decomposeMatrix(m mgl64.Mat4) Transform {
	pos := Vec3{m.At(0, 3), m.At(1, 3), m.At(2, 3)}

	cx := Vec3{m.At(0, 0), m.At(1, 0), m.At(2, 0)}
	cy := Vec3{m.At(0, 1), m.At(1, 1), m.At(2, 1)}
	cz := Vec3{m.At(0, 2), m.At(1, 2), m.At(2, 2)}

	sx, sy, sz := cx.Len(), cy.Len(), cz.Len()
	// A negative determinant means one axis is mirrored; put it on X.
	if m.Det() < 0 {
		sx = -sx
	}

	var rot mgl64.Mat4
	if sx != 0 && sy != 0 && sz != 0 {
		rot = mgl64.Mat4{
			cx[0] / sx, cx[1] / sx, cx[2] / sx, 0,
			cy[0] / sy, cy[1] / sy, cy[2] / sy, 0,
			cz[0] / sz, cz[1] / sz, cz[2] / sz, 0,
			0, 0, 0, 1,
		}
	} else {
		rot = mgl64.Ident4()
	}

	return Transform{
		Position: pos,
		Rotation: matrixToEuler(rot),
		Scale:    Vec3{sx, sy, sz},
	}
}

// invertMatrix inverts m, returning the identity for singular matrices.
func invertMatrix(m mgl64.Mat4) mgl64.Mat4 {
	det := m.Det()
	if det > -1e-12 && det < 1e-12 {
		return mgl64.Ident4()
	}
	return m.Inv()
}
