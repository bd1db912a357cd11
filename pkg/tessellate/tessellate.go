// Package tessellate turns committed track into rail meshes using a geometry
// kernel. One mesh is produced per segment; the tessellator never mutates the
// ride it reads.
package tessellate

import (
	"errors"
	"fmt"

	"github.com/chazu/coaster/pkg/geometry"
	"github.com/chazu/coaster/pkg/graph"
	"github.com/chazu/coaster/pkg/kernel"
)

const (
	DefaultRailRadius = 0.25
	DefaultSamples    = 12
)

// Options controls the rail tube.
type Options struct {
	RailRadius float64 // tube radius
	Samples    int     // straight pieces per segment
}

// DefaultOptions returns the standard rail settings.
func DefaultOptions() Options {
	return Options{RailRadius: DefaultRailRadius, Samples: DefaultSamples}
}

// Validate reports options no kernel can mesh.
func (o Options) Validate() error {
	var errs []error
	if !(o.RailRadius > 0) {
		errs = append(errs, fmt.Errorf("rail radius %g must be positive", o.RailRadius))
	}
	if o.Samples < 1 {
		errs = append(errs, fmt.Errorf("samples %d must be at least 1", o.Samples))
	}
	return errors.Join(errs...)
}

// Ride builds one tube mesh per committed segment of r, in creation order.
// Each mesh is named by its segment id.
func Ride(r *graph.Ride, k kernel.Kernel, opts Options) ([]*kernel.Mesh, error) {
	if r == nil {
		return nil, nil
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("tessellate: %w", err)
	}
	var meshes []*kernel.Mesh
	for _, seg := range r.Segments() {
		mesh, err := Segment(seg, k, opts)
		if err != nil {
			return nil, fmt.Errorf("tessellate: ride %s: %w", r.ID(), err)
		}
		meshes = append(meshes, mesh)
	}
	return meshes, nil
}

// Park tessellates every ride in park order. Mesh names are prefixed with
// the ride id, as in "ride-1/s0.1".
func Park(p *graph.Park, k kernel.Kernel, opts Options) ([]*kernel.Mesh, error) {
	var meshes []*kernel.Mesh
	for _, r := range p.Rides() {
		collected, err := Ride(r, k, opts)
		if err != nil {
			return nil, err
		}
		for _, m := range collected {
			m.Name = string(r.ID()) + "/" + m.Name
		}
		meshes = append(meshes, collected...)
	}
	return meshes, nil
}

// Segment builds the tube for a single segment.
func Segment(seg graph.Segment, k kernel.Kernel, opts Options) (*kernel.Mesh, error) {
	solid := tube(k, seg.ControlPoints.Sample(opts.Samples), opts.RailRadius)
	mesh, err := k.ToMesh(solid)
	if err != nil {
		return nil, fmt.Errorf("segment %s: %w", seg.ID, err)
	}
	mesh.Name = seg.ID.String()
	return mesh, nil
}

// tube chains capsules through pts: a sphere at every point and a cylinder
// along every non-degenerate piece between neighbours.
func tube(k kernel.Kernel, pts []geometry.Vec3, radius float64) kernel.Solid {
	parts := make([]kernel.Solid, 0, 2*len(pts))
	for i, p := range pts {
		parts = append(parts, k.Translate(k.Sphere(radius), p))
		if i == 0 {
			continue
		}
		a := pts[i-1]
		d := p.Sub(a)
		l := d.Length()
		if l < 1e-9 {
			continue
		}
		c := k.Orient(k.Cylinder(l, radius), d)
		parts = append(parts, k.Translate(c, a.Add(p).Scale(0.5)))
	}
	return k.Union(parts...)
}
