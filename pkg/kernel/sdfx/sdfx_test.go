package sdfx

import (
	"math"
	"testing"

	"github.com/chazu/coaster/pkg/geometry"
)

const testCells = 32

func near(t *testing.T, what string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s = %f, want %f (±%g)", what, got, want, tol)
	}
}

func TestNewDefaultsCells(t *testing.T) {
	if got := New(0).Cells(); got != DefaultCells {
		t.Errorf("New(0).Cells() = %d, want %d", got, DefaultCells)
	}
	if got := New(16).Cells(); got != 16 {
		t.Errorf("New(16).Cells() = %d, want 16", got)
	}
}

func TestSphereMesh(t *testing.T) {
	k := New(testCells)
	mesh, err := k.ToMesh(k.Sphere(1))
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if mesh.IsEmpty() {
		t.Fatal("mesh is empty")
	}
	if len(mesh.Vertices) != len(mesh.Normals) {
		t.Fatalf("vertices length %d != normals length %d", len(mesh.Vertices), len(mesh.Normals))
	}
	if len(mesh.Indices) != mesh.TriangleCount()*3 {
		t.Fatalf("indices length %d != triangles*3 %d", len(mesh.Indices), mesh.TriangleCount()*3)
	}
	min, max := mesh.Bounds()
	for _, v := range []float64{min.X, min.Y, min.Z} {
		if v < -1.1 || v > -0.8 {
			t.Errorf("min component %f outside sphere surface band", v)
		}
	}
	for _, v := range []float64{max.X, max.Y, max.Z} {
		if v > 1.1 || v < 0.8 {
			t.Errorf("max component %f outside sphere surface band", v)
		}
	}
}

func TestCylinderBoundingBox(t *testing.T) {
	k := New(testCells)
	min, max := k.Cylinder(10, 1).BoundingBox()
	near(t, "min.Z", min.Z, -5, 1e-9)
	near(t, "max.Z", max.Z, 5, 1e-9)
	near(t, "max.X", max.X, 1, 1e-9)
}

func TestTranslate(t *testing.T) {
	k := New(testCells)
	min, max := k.Translate(k.Sphere(2), geometry.Vec3{X: 100, Y: 200, Z: 300}).BoundingBox()
	const tol = 1e-9
	near(t, "min.X", min.X, 98, tol)
	near(t, "min.Y", min.Y, 198, tol)
	near(t, "min.Z", min.Z, 298, tol)
	near(t, "max.X", max.X, 102, tol)
	near(t, "max.Y", max.Y, 202, tol)
	near(t, "max.Z", max.Z, 302, tol)
}

func TestOrient(t *testing.T) {
	k := New(testCells)
	tests := []struct {
		name    string
		dir     geometry.Vec3
		extents geometry.Vec3
	}{
		{"along z", geometry.Vec3{Z: 1}, geometry.Vec3{X: 2, Y: 2, Z: 10}},
		{"against z", geometry.Vec3{Z: -3}, geometry.Vec3{X: 2, Y: 2, Z: 10}},
		{"along x", geometry.Vec3{X: 1}, geometry.Vec3{X: 10, Y: 2, Z: 2}},
		{"along y", geometry.Vec3{Y: -1}, geometry.Vec3{X: 2, Y: 10, Z: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			min, max := k.Orient(k.Cylinder(10, 1), tt.dir).BoundingBox()
			size := max.Sub(min)
			const tol = 1e-6
			near(t, "x extent", size.X, tt.extents.X, tol)
			near(t, "y extent", size.Y, tt.extents.Y, tol)
			near(t, "z extent", size.Z, tt.extents.Z, tol)
		})
	}
}

func TestUnionMesh(t *testing.T) {
	k := New(testCells)
	u := k.Union(k.Sphere(1), k.Translate(k.Sphere(1), geometry.Vec3{X: 3}))
	min, max := u.BoundingBox()
	near(t, "min.X", min.X, -1, 1e-9)
	near(t, "max.X", max.X, 4, 1e-9)

	mesh, err := k.ToMesh(u)
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if mesh.IsEmpty() {
		t.Fatal("union mesh is empty")
	}
	t.Logf("union triangle count: %d", mesh.TriangleCount())
}
