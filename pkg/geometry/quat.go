package geometry

import (
	"encoding/json"
	"fmt"
	"math"
)

// Quat is a rotation quaternion. The zero value is not a valid rotation and
// marks an orientation that was never recorded.
type Quat struct {
	X, Y, Z, W float64
}

// Identity returns the no-op rotation.
func Identity() Quat { return Quat{W: 1} }

// IsZero reports whether q is the absent (all-zero) quaternion.
func (q Quat) IsZero() bool { return q == Quat{} }

// YawQuat returns a rotation of rad radians about the vertical axis.
func YawQuat(rad float64) Quat {
	return Quat{Y: math.Sin(rad / 2), W: math.Cos(rad / 2)}
}

// FromTangent returns the rotation that carries Forward onto t, composed as
// a yaw about +Y applied after a pitch about +X. Roll is always zero.
func FromTangent(t Vec3) Quat {
	t = t.Normalize()
	if t.Length() == 0 {
		return Identity()
	}
	yaw := math.Atan2(t.X, t.Z)
	pitch := math.Asin(clamp(t.Y, -1, 1))

	sy, cy := math.Sin(yaw/2), math.Cos(yaw/2)
	sx, cx := math.Sin(-pitch/2), math.Cos(-pitch/2)
	return Quat{
		X: cy * sx,
		Y: sy * cx,
		Z: -sy * sx,
		W: cy * cx,
	}
}

// Rotate applies q to v.
func (q Quat) Rotate(v Vec3) Vec3 {
	u := Vec3{q.X, q.Y, q.Z}
	t := u.Cross(v).Scale(2)
	return v.Add(t.Scale(q.W)).Add(u.Cross(t))
}

// MarshalJSON encodes q as [x, y, z, w].
func (q Quat) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]float64{q.X, q.Y, q.Z, q.W})
}

// UnmarshalJSON decodes [x, y, z, w].
func (q *Quat) UnmarshalJSON(data []byte) error {
	var a []float64
	if err := json.Unmarshal(data, &a); err != nil {
		return fmt.Errorf("quat: %w", err)
	}
	if len(a) != 4 {
		return fmt.Errorf("quat: expected 4 components, got %d", len(a))
	}
	*q = Quat{a[0], a[1], a[2], a[3]}
	return nil
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}
