// Package geometry holds the value types and pure functions used to grow a
// track: vectors, orientations, poses, and the generator that turns a
// directional command into the next curved segment.
package geometry

import (
	"encoding/json"
	"fmt"
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Vec3 is a point or direction in world space. Y is up.
// It encodes to JSON as a three-element array.
type Vec3 struct {
	X, Y, Z float64
}

// WorldUp is the world vertical axis.
var WorldUp = Vec3{0, 1, 0}

// Forward is the heading of an unrotated ride.
var Forward = Vec3{0, 0, 1}

func (v Vec3) sdf() v3.Vec { return v3.Vec(v) }

func fromSDF(v v3.Vec) Vec3 { return Vec3(v) }

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 { return fromSDF(v.sdf().Add(o.sdf())) }

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 { return fromSDF(v.sdf().Sub(o.sdf())) }

// Scale returns v * k.
func (v Vec3) Scale(k float64) Vec3 { return fromSDF(v.sdf().MulScalar(k)) }

// Neg returns -v.
func (v Vec3) Neg() Vec3 { return fromSDF(v.sdf().MulScalar(-1)) }

// Dot returns the dot product.
func (v Vec3) Dot(o Vec3) float64 { return v.sdf().Dot(o.sdf()) }

// Cross returns the right-handed cross product v × o.
func (v Vec3) Cross(o Vec3) Vec3 { return fromSDF(v.sdf().Cross(o.sdf())) }

// Length returns the Euclidean norm.
func (v Vec3) Length() float64 { return v.sdf().Length() }

// Normalize returns v scaled to unit length. The zero vector is returned
// unchanged.
func (v Vec3) Normalize() Vec3 {
	if v.Length() == 0 {
		return v
	}
	return fromSDF(v.sdf().Normalize())
}

// Dist returns the distance between two points.
func (v Vec3) Dist(o Vec3) float64 { return v.Sub(o).Length() }

// Horizontal drops the vertical component.
func (v Vec3) Horizontal() Vec3 { return Vec3{v.X, 0, v.Z} }

// ApproxEqual reports whether every component differs by at most tol.
func (v Vec3) ApproxEqual(o Vec3, tol float64) bool {
	return math.Abs(v.X-o.X) <= tol && math.Abs(v.Y-o.Y) <= tol && math.Abs(v.Z-o.Z) <= tol
}

func (v Vec3) String() string {
	return fmt.Sprintf("(%.3f, %.3f, %.3f)", v.X, v.Y, v.Z)
}

// MarshalJSON encodes v as [x, y, z].
func (v Vec3) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]float64{v.X, v.Y, v.Z})
}

// UnmarshalJSON decodes [x, y, z].
func (v *Vec3) UnmarshalJSON(data []byte) error {
	var a []float64
	if err := json.Unmarshal(data, &a); err != nil {
		return fmt.Errorf("vec3: %w", err)
	}
	if len(a) != 3 {
		return fmt.Errorf("vec3: expected 3 components, got %d", len(a))
	}
	*v = Vec3{a[0], a[1], a[2]}
	return nil
}
