package graph

import (
	"cmp"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/chazu/coaster/pkg/geometry"
)

// Snapshot is the self-contained, serializable form of a park: every ride
// keyed by id. Nothing in it is derived or cached.
type Snapshot map[RideID]RideRecord

// RideRecord is the serializable form of one ride. Nodes and segments are
// listed in creation order and carry their handles.
type RideRecord struct {
	ID       RideID    `json:"id"`
	Name     string    `json:"name"`
	Origin   NodeID    `json:"originNodeId"`
	Complete bool      `json:"isComplete"`
	Nodes    []Node    `json:"nodes"`
	Segments []Segment `json:"segments"`
}

// ImportError reports a snapshot that cannot be turned back into rides.
type ImportError struct {
	Ride     RideID // empty when the whole document is unreadable
	Findings []ValidationError
	Err      error
}

func (e *ImportError) Error() string {
	var b strings.Builder
	b.WriteString("import")
	if e.Ride != "" {
		fmt.Fprintf(&b, " ride %s", e.Ride)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	for _, f := range e.Findings {
		fmt.Fprintf(&b, "; %v", f)
	}
	return b.String()
}

func (e *ImportError) Unwrap() error { return e.Err }

// Record returns the serializable form of the ride.
func (r *Ride) Record() RideRecord {
	return RideRecord{
		ID:       r.id,
		Name:     r.name,
		Origin:   r.origin,
		Complete: r.complete,
		Nodes:    r.Nodes(),
		Segments: r.Segments(),
	}
}

// Snapshot returns the serializable form of every ride in the park.
func (p *Park) Snapshot() Snapshot {
	s := make(Snapshot, p.Len())
	for _, r := range p.Rides() {
		s[r.ID()] = r.Record()
	}
	return s
}

// FromRecord rebuilds a ride from its record, keeping every handle. A node
// without a rotation gets the identity. The rebuilt ride must pass Validate
// without errors.
func FromRecord(rec RideRecord) (*Ride, error) {
	r := &Ride{
		id:       rec.ID,
		name:     rec.Name,
		origin:   rec.Origin,
		complete: rec.Complete,
	}
	for _, n := range rec.Nodes {
		if n.Rotation.IsZero() {
			n.Rotation = geometry.Identity()
		}
		if err := r.nodes.place(Handle(n.ID), n); err != nil {
			return nil, &ImportError{Ride: rec.ID, Err: fmt.Errorf("node %s: %w", n.ID, err)}
		}
	}
	for _, s := range rec.Segments {
		if err := r.segments.place(Handle(s.ID), s); err != nil {
			return nil, &ImportError{Ride: rec.ID, Err: fmt.Errorf("segment %s: %w", s.ID, err)}
		}
	}
	r.nodes.seal()
	r.segments.seal()

	if errs := Errors(Validate(r)); len(errs) > 0 {
		return nil, &ImportError{Ride: rec.ID, Findings: errs}
	}
	return r, nil
}

// compareRideIDs orders ride-2 before ride-10.
func compareRideIDs(a, b RideID) int {
	return cmp.Or(cmp.Compare(len(a), len(b)), strings.Compare(string(a), string(b)))
}

// Restore rebuilds a park from a snapshot. It either succeeds for every ride
// or returns an *ImportError and no park.
func Restore(s Snapshot) (*Park, error) {
	ids := make([]RideID, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, compareRideIDs)

	p := NewPark()
	for _, id := range ids {
		rec := s[id]
		if rec.ID == "" {
			rec.ID = id
		}
		if rec.ID != id {
			return nil, &ImportError{Ride: id, Err: fmt.Errorf("record id %q does not match key", rec.ID)}
		}
		r, err := FromRecord(rec)
		if err != nil {
			return nil, err
		}
		p.order = append(p.order, id)
		p.rides[id] = r
	}
	return p, nil
}

// EncodeSnapshot renders a snapshot as indented JSON.
func EncodeSnapshot(s Snapshot) ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// DecodeSnapshot parses JSON produced by EncodeSnapshot. Syntax errors are
// returned as *ImportError.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, &ImportError{Err: err}
	}
	if s == nil {
		return nil, &ImportError{Err: fmt.Errorf("snapshot is not an object")}
	}
	return s, nil
}
