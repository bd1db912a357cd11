// Package snap computes the preview segment for the next build step: the
// ideal curve, an optional merge onto a nearby open node, and a clearance
// check against every committed segment in the park.
package snap

import (
	"errors"
	"fmt"

	"github.com/samber/lo"

	"github.com/chazu/coaster/pkg/geometry"
	"github.com/chazu/coaster/pkg/graph"
)

// Default validator constants.
const (
	DefaultSnapRadius   = 10.0
	DefaultMinClearance = 2.5
	DefaultMinSegments  = 3
)

// Params tunes snapping and collision detection.
type Params struct {
	SnapRadius   float64 // merge when the ideal end lands closer than this
	MinClearance float64 // control points closer than this collide
	MinSegments  int     // committed segments required before snapping
}

// DefaultParams returns the standard validator settings.
func DefaultParams() Params {
	return Params{
		SnapRadius:   DefaultSnapRadius,
		MinClearance: DefaultMinClearance,
		MinSegments:  DefaultMinSegments,
	}
}

var ErrUnknownCursor = errors.New("snap: cursor node does not exist")

// CollisionError reports the first committed segment the proposed curve
// comes too close to.
type CollisionError struct {
	Ride     graph.RideID
	Segment  graph.SegmentID
	Distance float64
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("collision with %s segment %s: clearance %.3f", e.Ride, e.Segment, e.Distance)
}

// Preview is the uncommitted segment for the next build step. Segment has no
// id and belongs to no ride. SnapTarget is set when the segment merges onto
// an existing node instead of ending at a new one.
type Preview struct {
	Segment    graph.Segment
	EndPose    geometry.Pose
	SnapTarget graph.NodeID
	Err        error
}

// Merging reports whether committing the preview merges onto SnapTarget.
func (p Preview) Merging() bool { return !p.SnapTarget.IsZero() }

// Blocked reports whether the preview may not be committed.
func (p Preview) Blocked() bool { return p.Err != nil }

// Spec returns the segment payload for linking.
func (p Preview) Spec() graph.SegmentSpec {
	return graph.SegmentSpec{
		Curve:     p.Segment.ControlPoints,
		Length:    p.Segment.Length,
		Direction: p.Segment.Direction,
		Slope:     p.Segment.Slope,
	}
}

// Evaluate computes the preview for extending ride from cursor. The returned
// error is reserved for an unknown ride or cursor; a collision is reported in
// Preview.Err.
func Evaluate(park *graph.Park, rideID graph.RideID, cursor graph.NodeID,
	dir geometry.Direction, slope geometry.Slope, gp geometry.Params, sp Params) (Preview, error) {

	ride, ok := park.Ride(rideID)
	if !ok {
		return Preview{}, fmt.Errorf("%w: %s", graph.ErrUnknownRide, rideID)
	}
	from, ok := ride.Node(cursor)
	if !ok {
		return Preview{}, fmt.Errorf("%w: %s in %s", ErrUnknownCursor, cursor, rideID)
	}

	ideal := geometry.Next(from.Pose(), dir, slope, gp)
	p := Preview{
		Segment: graph.Segment{
			Start:         cursor,
			ControlPoints: ideal.Curve,
			Length:        ideal.Length,
			Direction:     dir,
			Slope:         slope,
		},
		EndPose: ideal.End,
	}

	if target, ok := FindTarget(ride, cursor, ideal.End.Position, sp); ok {
		p.SnapTarget = target.ID
		p.Segment.End = target.ID
		p.Segment.ControlPoints = geometry.Fit(from.Position, from.Tangent.Normalize(),
			target.Position, target.Tangent.Normalize(), gp.HandleFactor)
		p.Segment.Length = from.Position.Dist(target.Position)
		p.EndPose = target.Pose()
	}

	exclude := []graph.SegmentID{from.Incoming, from.Outgoing}
	if p.Merging() {
		target, _ := ride.Node(p.SnapTarget)
		exclude = append(exclude, target.Outgoing)
	}
	if err := Collide(park, rideID, exclude, p.Segment.ControlPoints, sp.MinClearance); err != nil {
		p.Err = err
	}
	return p, nil
}

// FindTarget returns the first node of ride, in creation order, that has no
// incoming segment, is not the cursor, and lies strictly within SnapRadius
// of end. The head of the cursor's own run of track is only a target when it
// is the origin; merging onto any other would close a loop that skips the
// station. Snapping is disabled until the ride has MinSegments segments.
func FindTarget(ride *graph.Ride, cursor graph.NodeID, end geometry.Vec3, sp Params) (graph.Node, bool) {
	if ride.SegmentCount() < sp.MinSegments {
		return graph.Node{}, false
	}
	own := runHead(ride, cursor)
	for _, open := range ride.OpenNodes() {
		if !open.Head || open.Node.ID == cursor {
			continue
		}
		if open.Node.ID == own && own != ride.Origin() {
			continue
		}
		if open.Node.Position.Dist(end) < sp.SnapRadius {
			return open.Node, true
		}
	}
	return graph.Node{}, false
}

// runHead follows incoming segments back from id and returns the first node
// without one. The walk stops after visiting every node once.
func runHead(ride *graph.Ride, id graph.NodeID) graph.NodeID {
	for range ride.NodeCount() {
		n, ok := ride.Node(id)
		if !ok || n.Incoming.IsZero() {
			return id
		}
		s, ok := ride.Segment(n.Incoming)
		if !ok {
			return id
		}
		id = s.Start
	}
	return id
}

// Collide tests curve against every committed segment in the park, skipping
// the listed segments of ride. Control points strictly closer than clearance
// collide.
func Collide(park *graph.Park, ride graph.RideID, exclude []graph.SegmentID, curve geometry.Cubic, clearance float64) error {
	for _, r := range park.Rides() {
		for _, s := range r.Segments() {
			if r.ID() == ride && lo.Contains(exclude, s.ID) {
				continue
			}
			if d := curve.ControlDistance(s.ControlPoints); d < clearance {
				return &CollisionError{Ride: r.ID(), Segment: s.ID, Distance: d}
			}
		}
	}
	return nil
}
