package graph

import (
	"fmt"
	"math"

	"github.com/chazu/coaster/pkg/geometry"
)

// PinTolerance is how far a curve endpoint may drift from its node.
const PinTolerance = 1e-6

// validateGeometry runs the numeric checks: curve endpoints must sit on their
// nodes and every coordinate must be finite. Non-unit tangents, rotations
// that do not face the tangent and non-positive lengths are only warnings.
func validateGeometry(r *Ride) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validatePinned(r)...)
	errs = append(errs, validateFinite(r)...)
	errs = append(errs, validateTangents(r)...)
	errs = append(errs, validateRotations(r)...)
	errs = append(errs, validateLengths(r)...)
	return errs
}

func validatePinned(r *Ride) []ValidationError {
	var errs []ValidationError
	for _, s := range r.Segments() {
		if start, ok := r.Node(s.Start); ok && !s.ControlPoints.Start().ApproxEqual(start.Position, PinTolerance) {
			errs = append(errs, ValidationError{
				Ride:     r.id,
				Segment:  s.ID,
				Message:  fmt.Sprintf("P0 %v is not at start node position %v", s.ControlPoints.Start(), start.Position),
				Severity: SeverityError,
			})
		}
		if end, ok := r.Node(s.End); ok && !s.ControlPoints.End().ApproxEqual(end.Position, PinTolerance) {
			errs = append(errs, ValidationError{
				Ride:     r.id,
				Segment:  s.ID,
				Message:  fmt.Sprintf("P3 %v is not at end node position %v", s.ControlPoints.End(), end.Position),
				Severity: SeverityError,
			})
		}
	}
	return errs
}

func finite(vs ...geometry.Vec3) bool {
	for _, v := range vs {
		for _, c := range []float64{v.X, v.Y, v.Z} {
			if math.IsNaN(c) || math.IsInf(c, 0) {
				return false
			}
		}
	}
	return true
}

func validateFinite(r *Ride) []ValidationError {
	var errs []ValidationError
	for _, n := range r.Nodes() {
		if !finite(n.Position, n.Tangent) {
			errs = append(errs, ValidationError{
				Ride:     r.id,
				NodeID:   n.ID,
				Message:  "position or tangent is not finite",
				Severity: SeverityError,
			})
		}
	}
	for _, s := range r.Segments() {
		if !finite(s.ControlPoints[:]...) || math.IsNaN(s.Length) || math.IsInf(s.Length, 0) {
			errs = append(errs, ValidationError{
				Ride:     r.id,
				Segment:  s.ID,
				Message:  "control points or length are not finite",
				Severity: SeverityError,
			})
		}
	}
	return errs
}

func validateTangents(r *Ride) []ValidationError {
	var errs []ValidationError
	for _, n := range r.Nodes() {
		if l := n.Tangent.Length(); math.Abs(l-1) > 1e-6 {
			errs = append(errs, ValidationError{
				Ride:     r.id,
				NodeID:   n.ID,
				Message:  fmt.Sprintf("tangent length is %.6f, want 1", l),
				Severity: SeverityWarning,
			})
		}
	}
	return errs
}

// RotationTolerance is how far the rotated forward axis may stray from a
// node's unit tangent.
const RotationTolerance = 1e-6

func validateRotations(r *Ride) []ValidationError {
	var errs []ValidationError
	for _, n := range r.Nodes() {
		if n.Rotation.IsZero() || n.Tangent.Length() == 0 {
			continue
		}
		if got := n.Rotation.Rotate(geometry.Forward); !got.ApproxEqual(n.Tangent.Normalize(), RotationTolerance) {
			errs = append(errs, ValidationError{
				Ride:     r.id,
				NodeID:   n.ID,
				Message:  fmt.Sprintf("rotation faces %v, tangent is %v", got, n.Tangent),
				Severity: SeverityWarning,
			})
		}
	}
	return errs
}

func validateLengths(r *Ride) []ValidationError {
	var errs []ValidationError
	for _, s := range r.Segments() {
		if s.Length <= 0 {
			errs = append(errs, ValidationError{
				Ride:     r.id,
				Segment:  s.ID,
				Message:  fmt.Sprintf("length %.3f is not positive", s.Length),
				Severity: SeverityWarning,
			})
		}
	}
	return errs
}
