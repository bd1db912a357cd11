package geometry

import "math"

// Cubic is a cubic Bezier control polygon [P0, P1, P2, P3].
type Cubic [4]Vec3

// Fit builds a cubic from p0 to p3 whose handles follow the unit tangents t0
// and t3, each scaled to factor times the chord length.
func Fit(p0, t0, p3, t3 Vec3, factor float64) Cubic {
	k := factor * p0.Dist(p3)
	return Cubic{
		p0,
		p0.Add(t0.Scale(k)),
		p3.Sub(t3.Scale(k)),
		p3,
	}
}

// Start returns P0.
func (c Cubic) Start() Vec3 { return c[0] }

// End returns P3.
func (c Cubic) End() Vec3 { return c[3] }

// Point evaluates the curve at t in [0, 1].
func (c Cubic) Point(t float64) Vec3 {
	u := 1 - t
	b0 := u * u * u
	b1 := 3 * u * u * t
	b2 := 3 * u * t * t
	b3 := t * t * t
	return c[0].Scale(b0).Add(c[1].Scale(b1)).Add(c[2].Scale(b2)).Add(c[3].Scale(b3))
}

// EndTangent returns the unit direction from P2 to P3.
func (c Cubic) EndTangent() Vec3 {
	return c[3].Sub(c[2]).Normalize()
}

// Sample returns n+1 evenly spaced points in parameter space, endpoints
// included.
func (c Cubic) Sample(n int) []Vec3 {
	if n < 1 {
		n = 1
	}
	pts := make([]Vec3, n+1)
	for i := 0; i <= n; i++ {
		pts[i] = c.Point(float64(i) / float64(n))
	}
	return pts
}

// ControlDistance returns the smallest distance between any control point of
// c and any control point of o.
func (c Cubic) ControlDistance(o Cubic) float64 {
	best := math.Inf(1)
	for _, a := range c {
		for _, b := range o {
			if d := a.Dist(b); d < best {
				best = d
			}
		}
	}
	return best
}
