// Package sdfx implements kernel.Kernel with the github.com/deadsy/sdfx
// SDF-based CAD library.
package sdfx

import (
	"fmt"
	"math"

	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/coaster/pkg/geometry"
	"github.com/chazu/coaster/pkg/kernel"
)

var _ kernel.Kernel = (*Kernel)(nil)

// DefaultCells is the marching-cubes resolution along the longest axis of a
// solid's bounding box.
const DefaultCells = 128

type solid struct {
	s sdf.SDF3
}

func (s *solid) BoundingBox() (min, max geometry.Vec3) {
	bb := s.s.BoundingBox()
	return geometry.Vec3(bb.Min), geometry.Vec3(bb.Max)
}

// Kernel implements kernel.Kernel using sdfx.
type Kernel struct {
	cells int
}

// New returns a kernel meshing at the given resolution. Non-positive cells
// selects DefaultCells.
func New(cells int) *Kernel {
	if cells <= 0 {
		cells = DefaultCells
	}
	return &Kernel{cells: cells}
}

// Cells returns the marching-cubes resolution.
func (k *Kernel) Cells() int { return k.cells }

func unwrap(s kernel.Solid) sdf.SDF3 {
	return s.(*solid).s
}

func wrap(s sdf.SDF3) kernel.Solid {
	return &solid{s: s}
}

// Sphere creates a sphere centered on the origin.
func (k *Kernel) Sphere(radius float64) kernel.Solid {
	s, err := sdf.Sphere3D(radius)
	if err != nil {
		panic(fmt.Sprintf("sdfx.Sphere3D: %v", err))
	}
	return wrap(s)
}

// Cylinder creates a cylinder centered on the origin with its axis along Z.
func (k *Kernel) Cylinder(height, radius float64) kernel.Solid {
	s, err := sdf.Cylinder3D(height, radius, 0)
	if err != nil {
		panic(fmt.Sprintf("sdfx.Cylinder3D: %v", err))
	}
	return wrap(s)
}

// Union returns the union of all solids.
func (k *Kernel) Union(solids ...kernel.Solid) kernel.Solid {
	parts := make([]sdf.SDF3, len(solids))
	for i, s := range solids {
		parts[i] = unwrap(s)
	}
	return wrap(sdf.Union3D(parts...))
}

// Translate moves a solid.
func (k *Kernel) Translate(s kernel.Solid, by geometry.Vec3) kernel.Solid {
	return wrap(sdf.Transform3D(unwrap(s), sdf.Translate3d(v3.Vec(by))))
}

// Orient rotates a solid about the origin so that +Z maps onto dir.
func (k *Kernel) Orient(s kernel.Solid, dir geometry.Vec3) kernel.Solid {
	d := dir.Normalize()
	axis := geometry.Forward.Cross(d)
	cos := math.Max(-1, math.Min(1, geometry.Forward.Dot(d)))
	if axis.Length() < 1e-12 {
		if cos > 0 {
			return s
		}
		axis = geometry.Vec3{X: 1}
	}
	m := sdf.Rotate3d(v3.Vec(axis.Normalize()), math.Acos(cos))
	return wrap(sdf.Transform3D(unwrap(s), m))
}

// ToMesh converts a solid to a triangle mesh using marching cubes.
func (k *Kernel) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	renderer := render.NewMarchingCubesUniform(k.cells)
	triangles := render.ToTriangles(unwrap(s), renderer)
	if len(triangles) == 0 {
		return nil, fmt.Errorf("sdfx: marching cubes produced no triangles at %d cells", k.cells)
	}

	numVerts := len(triangles) * 3
	vertices := make([]float32, 0, numVerts*3)
	normals := make([]float32, 0, numVerts*3)
	indices := make([]uint32, 0, numVerts)

	for i, tri := range triangles {
		n := tri.Normal()
		nx, ny, nz := float32(n.X), float32(n.Y), float32(n.Z)
		for j := 0; j < 3; j++ {
			v := tri[j]
			vertices = append(vertices, float32(v.X), float32(v.Y), float32(v.Z))
			normals = append(normals, nx, ny, nz)
			indices = append(indices, uint32(i*3+j))
		}
	}

	return &kernel.Mesh{
		Vertices: vertices,
		Normals:  normals,
		Indices:  indices,
	}, nil
}
