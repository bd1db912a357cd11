package kernel

import (
	"math"

	"github.com/chazu/coaster/pkg/geometry"
)

// Mesh is a triangle mesh for an external renderer.
// All arrays are flat: vertices has 3 floats per vertex (x,y,z),
// normals has 3 floats per vertex, indices has 3 uint32s per triangle.
type Mesh struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	Name     string    `json:"name"` // segment the mesh was built from
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0
}

// Bounds returns the axis-aligned box around every vertex. An empty mesh
// returns two zero vectors.
func (m *Mesh) Bounds() (min, max geometry.Vec3) {
	if m.IsEmpty() {
		return min, max
	}
	min = geometry.Vec3{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)}
	max = geometry.Vec3{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)}
	for i := 0; i+2 < len(m.Vertices); i += 3 {
		x, y, z := float64(m.Vertices[i]), float64(m.Vertices[i+1]), float64(m.Vertices[i+2])
		min = geometry.Vec3{X: math.Min(min.X, x), Y: math.Min(min.Y, y), Z: math.Min(min.Z, z)}
		max = geometry.Vec3{X: math.Max(max.X, x), Y: math.Max(max.Y, y), Z: math.Max(max.Z, z)}
	}
	return min, max
}
