package graph

import "github.com/chazu/coaster/pkg/geometry"

// Segment is one cubic Bezier piece of track between two nodes of the same
// ride. ControlPoints[0] sits on Start and ControlPoints[3] on End.
type Segment struct {
	ID            SegmentID          `json:"id"`
	Start         NodeID             `json:"startNodeId"`
	End           NodeID             `json:"endNodeId"`
	ControlPoints geometry.Cubic     `json:"controlPoints"`
	Length        float64            `json:"length"`
	Direction     geometry.Direction `json:"direction"`
	Slope         geometry.Slope     `json:"slope"`
}

// SegmentSpec carries the geometric payload of a segment before it is linked
// into a ride.
type SegmentSpec struct {
	Curve     geometry.Cubic
	Length    float64
	Direction geometry.Direction
	Slope     geometry.Slope
}

// SpecFrom wraps a generator result for linking.
func SpecFrom(r geometry.Result, dir geometry.Direction, slope geometry.Slope) SegmentSpec {
	return SegmentSpec{Curve: r.Curve, Length: r.Length, Direction: dir, Slope: slope}
}

// Adjacent reports whether the segment touches node id.
func (s Segment) Adjacent(id NodeID) bool {
	return s.Start == id || s.End == id
}
