// Package kernel defines the solid-modeling interface used to turn track
// centerlines into rail geometry. Implementations live in subpackages so the
// rest of the module never touches a concrete CAD library.
package kernel

import "github.com/chazu/coaster/pkg/geometry"

// Solid is an opaque handle to a kernel solid.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max geometry.Vec3)
}

// Kernel builds solids and meshes them.
type Kernel interface {
	// Primitives, centered on the origin.
	Sphere(radius float64) Solid
	Cylinder(height, radius float64) Solid // axis along +Z

	Union(solids ...Solid) Solid

	Translate(s Solid, by geometry.Vec3) Solid
	// Orient turns s so that its +Z axis points along dir.
	Orient(s Solid, dir geometry.Vec3) Solid

	ToMesh(s Solid) (*Mesh, error)
}
