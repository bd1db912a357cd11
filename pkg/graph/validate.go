package graph

import "fmt"

// ValidationSeverity indicates whether a validation finding makes a ride
// unusable or is merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // ride is malformed
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	Ride     RideID
	NodeID   NodeID    // zero unless the finding is about a node
	Segment  SegmentID // zero unless the finding is about a segment
	Message  string
	Severity ValidationSeverity
}

func (e ValidationError) Error() string {
	switch {
	case !e.Segment.IsZero():
		return fmt.Sprintf("[%s] %s segment %s: %s", e.Severity, e.Ride, e.Segment, e.Message)
	case !e.NodeID.IsZero():
		return fmt.Sprintf("[%s] %s node %s: %s", e.Severity, e.Ride, e.NodeID, e.Message)
	default:
		return fmt.Sprintf("[%s] %s: %s", e.Severity, e.Ride, e.Message)
	}
}

// Errors filters findings down to those with SeverityError.
func Errors(findings []ValidationError) []ValidationError {
	var out []ValidationError
	for _, f := range findings {
		if f.Severity == SeverityError {
			out = append(out, f)
		}
	}
	return out
}

// Validate runs every structural and geometric check on a ride. It never
// modifies the ride. An empty result means the ride is well formed.
func Validate(r *Ride) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateEdges(r)...)
	errs = append(errs, validateIsolated(r)...)
	errs = append(errs, validateOrigin(r)...)
	errs = append(errs, validateCycle(r)...)
	errs = append(errs, validateGeometry(r)...)
	return errs
}

// validateEdges checks that every segment endpoint resolves and that nodes
// and segments agree with each other about which edges exist.
func validateEdges(r *Ride) []ValidationError {
	var errs []ValidationError
	fail := func(n NodeID, s SegmentID, format string, args ...any) {
		errs = append(errs, ValidationError{
			Ride:     r.id,
			NodeID:   n,
			Segment:  s,
			Message:  fmt.Sprintf(format, args...),
			Severity: SeverityError,
		})
	}

	for _, s := range r.Segments() {
		start, ok := r.Node(s.Start)
		if !ok {
			fail(NodeID{}, s.ID, "start node %s does not exist", s.Start)
		} else if start.Outgoing != s.ID {
			fail(NodeID{}, s.ID, "start node %s does not list it as outgoing", s.Start)
		}
		end, ok := r.Node(s.End)
		if !ok {
			fail(NodeID{}, s.ID, "end node %s does not exist", s.End)
		} else if end.Incoming != s.ID {
			fail(NodeID{}, s.ID, "end node %s does not list it as incoming", s.End)
		}
	}

	for _, n := range r.Nodes() {
		if !n.Incoming.IsZero() {
			if s, ok := r.Segment(n.Incoming); !ok {
				fail(n.ID, SegmentID{}, "incoming segment %s does not exist", n.Incoming)
			} else if s.End != n.ID {
				fail(n.ID, SegmentID{}, "incoming segment %s ends at %s", n.Incoming, s.End)
			}
		}
		if !n.Outgoing.IsZero() {
			if s, ok := r.Segment(n.Outgoing); !ok {
				fail(n.ID, SegmentID{}, "outgoing segment %s does not exist", n.Outgoing)
			} else if s.Start != n.ID {
				fail(n.ID, SegmentID{}, "outgoing segment %s starts at %s", n.Outgoing, s.Start)
			}
		}
	}
	return errs
}

// validateIsolated rejects nodes without any edge, except the lone origin of
// a ride that has no segments yet.
func validateIsolated(r *Ride) []ValidationError {
	var errs []ValidationError
	for _, n := range r.Nodes() {
		if !n.Isolated() {
			continue
		}
		if n.ID == r.origin && r.SegmentCount() == 0 && r.NodeCount() == 1 {
			continue
		}
		errs = append(errs, ValidationError{
			Ride:     r.id,
			NodeID:   n.ID,
			Message:  "node is isolated",
			Severity: SeverityError,
		})
	}
	return errs
}

func validateOrigin(r *Ride) []ValidationError {
	if r.NodeCount() == 0 {
		return []ValidationError{{
			Ride:     r.id,
			Message:  "ride has no nodes",
			Severity: SeverityError,
		}}
	}
	n, ok := r.Node(r.origin)
	if !ok {
		return []ValidationError{{
			Ride:     r.id,
			Message:  fmt.Sprintf("origin %s does not exist", r.origin),
			Severity: SeverityError,
		}}
	}
	if n.Kind != NodeStart {
		return []ValidationError{{
			Ride:     r.id,
			NodeID:   n.ID,
			Message:  fmt.Sprintf("origin has kind %s, want %s", n.Kind, NodeStart),
			Severity: SeverityError,
		}}
	}
	return nil
}

// validateCycle walks outgoing edges from every node. A cycle is allowed only
// when it passes through the origin, and Complete must agree with it.
func validateCycle(r *Ride) []ValidationError {
	var errs []ValidationError
	limit := r.SegmentCount()

	for _, start := range r.Nodes() {
		cur, viaOrigin := start, start.ID == r.origin
		for steps := 0; steps <= limit; steps++ {
			s, ok := r.Segment(cur.Outgoing)
			if !ok {
				break
			}
			if s.End == start.ID {
				if !viaOrigin {
					errs = append(errs, ValidationError{
						Ride:     r.id,
						NodeID:   start.ID,
						Message:  "node is part of a cycle that does not pass through the origin",
						Severity: SeverityError,
					})
				}
				break
			}
			if cur, ok = r.Node(s.End); !ok {
				break
			}
			viaOrigin = viaOrigin || cur.ID == r.origin
		}
		if len(errs) > 0 {
			// One cycle finding is sufficient.
			break
		}
	}

	if closes := r.ClosesLoop(); closes != r.complete {
		errs = append(errs, ValidationError{
			Ride:     r.id,
			Message:  fmt.Sprintf("complete flag is %t but loop closure is %t", r.complete, closes),
			Severity: SeverityError,
		})
	}
	return errs
}
