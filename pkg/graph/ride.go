package graph

import (
	"errors"
	"fmt"

	"github.com/samber/lo"

	"github.com/chazu/coaster/pkg/geometry"
)

var (
	ErrUnknownNode    = errors.New("graph: unknown node")
	ErrUnknownSegment = errors.New("graph: unknown segment")
	ErrSlotOccupied   = errors.New("graph: edge slot already occupied")
	ErrSelfLink       = errors.New("graph: segment cannot start and end on the same node")
)

// Ride is one connected track: a simple path from its origin, or a single
// loop back to it. A Ride is never modified in place; every operation returns
// a new Ride and leaves the receiver untouched.
type Ride struct {
	id       RideID
	name     string
	nodes    arena[Node]
	segments arena[Segment]
	origin   NodeID
	complete bool
}

// NewRide creates a ride holding a single Start node at the origin pose.
func NewRide(id RideID, name string, origin geometry.Pose) *Ride {
	r := &Ride{id: id, name: name}
	h := r.nodes.alloc()
	n := newNode(origin, NodeStart)
	n.ID = NodeID(h)
	r.nodes.set(h, n)
	r.origin = n.ID
	return r
}

func (r *Ride) clone() *Ride {
	return &Ride{
		id:       r.id,
		name:     r.name,
		nodes:    r.nodes.clone(),
		segments: r.segments.clone(),
		origin:   r.origin,
		complete: r.complete,
	}
}

func (r *Ride) ID() RideID        { return r.id }
func (r *Ride) Name() string      { return r.name }
func (r *Ride) Origin() NodeID    { return r.origin }
func (r *Ride) Complete() bool    { return r.complete }
func (r *Ride) NodeCount() int    { return r.nodes.len() }
func (r *Ride) SegmentCount() int { return r.segments.len() }

// Empty reports whether the ride has no nodes left.
func (r *Ride) Empty() bool { return r.nodes.len() == 0 }

// Node returns the node with the given id.
func (r *Ride) Node(id NodeID) (Node, bool) { return r.nodes.get(Handle(id)) }

// Segment returns the segment with the given id.
func (r *Ride) Segment(id SegmentID) (Segment, bool) { return r.segments.get(Handle(id)) }

// Nodes returns every node in creation order.
func (r *Ride) Nodes() []Node { return r.nodes.values() }

// Segments returns every segment in creation order.
func (r *Ride) Segments() []Segment { return r.segments.values() }

// Rename returns a copy of the ride with a new display name.
func (r *Ride) Rename(name string) *Ride {
	next := r.clone()
	next.name = name
	return next
}

func (r *Ride) addNode(pose geometry.Pose, kind NodeKind) NodeID {
	h := r.nodes.alloc()
	n := newNode(pose, kind)
	n.ID = NodeID(h)
	r.nodes.set(h, n)
	return n.ID
}

// Link connects from to to with a new segment. It fails with ErrSlotOccupied
// if from already has an outgoing segment or to already has an incoming one.
// The curve endpoints are pinned to the node positions.
func (r *Ride) Link(from NodeID, spec SegmentSpec, to NodeID) (*Ride, SegmentID, error) {
	next := r.clone()
	id, err := next.link(from, spec, to)
	if err != nil {
		return r, SegmentID{}, err
	}
	return next, id, nil
}

func (r *Ride) link(from NodeID, spec SegmentSpec, to NodeID) (SegmentID, error) {
	a, ok := r.Node(from)
	if !ok {
		return SegmentID{}, fmt.Errorf("%w: %s", ErrUnknownNode, from)
	}
	b, ok := r.Node(to)
	if !ok {
		return SegmentID{}, fmt.Errorf("%w: %s", ErrUnknownNode, to)
	}
	if from == to {
		return SegmentID{}, ErrSelfLink
	}
	if !a.Outgoing.IsZero() {
		return SegmentID{}, fmt.Errorf("%w: %s outgoing", ErrSlotOccupied, from)
	}
	if !b.Incoming.IsZero() {
		return SegmentID{}, fmt.Errorf("%w: %s incoming", ErrSlotOccupied, to)
	}

	h := r.segments.alloc()
	seg := Segment{
		ID:            SegmentID(h),
		Start:         from,
		End:           to,
		ControlPoints: spec.Curve,
		Length:        spec.Length,
		Direction:     spec.Direction,
		Slope:         spec.Slope,
	}
	seg.ControlPoints[0] = a.Position
	seg.ControlPoints[3] = b.Position
	r.segments.set(h, seg)

	a.Outgoing = seg.ID
	r.nodes.set(Handle(from), a)
	b.Incoming = seg.ID
	r.nodes.set(Handle(to), b)

	r.complete = r.ClosesLoop()
	return seg.ID, nil
}

// Extend appends a new Normal node at end and links it from from in one step.
func (r *Ride) Extend(from NodeID, spec SegmentSpec, end geometry.Pose) (*Ride, NodeID, SegmentID, error) {
	next := r.clone()
	to := next.addNode(end, NodeNormal)
	seg, err := next.link(from, spec, to)
	if err != nil {
		return r, NodeID{}, SegmentID{}, err
	}
	return next, to, seg, nil
}

// Unlink removes a segment, clears both edge slots, and drops endpoints left
// without any edge. If the origin is dropped, the first remaining node without
// an incoming segment becomes the new Start node. The result may be Empty.
func (r *Ride) Unlink(id SegmentID) (*Ride, error) {
	seg, ok := r.Segment(id)
	if !ok {
		return r, fmt.Errorf("%w: %s", ErrUnknownSegment, id)
	}
	next := r.clone()
	next.segments.remove(Handle(id))

	for _, nid := range []NodeID{seg.Start, seg.End} {
		n, ok := next.Node(nid)
		if !ok {
			continue
		}
		if n.Outgoing == id {
			n.Outgoing = SegmentID{}
		}
		if n.Incoming == id {
			n.Incoming = SegmentID{}
		}
		if n.Isolated() {
			next.nodes.remove(Handle(nid))
			continue
		}
		next.nodes.set(Handle(nid), n)
	}

	if _, ok := next.Node(next.origin); !ok {
		next.origin = NodeID{}
		nodes := next.Nodes()
		if len(nodes) > 0 {
			head, found := lo.Find(nodes, func(n Node) bool { return n.Incoming.IsZero() })
			if !found {
				head = nodes[0]
			}
			head.Kind = NodeStart
			next.nodes.set(Handle(head.ID), head)
			next.origin = head.ID
		}
	}

	next.complete = next.ClosesLoop()
	return next, nil
}

// OpenNodes returns the nodes missing an incoming or outgoing segment, in
// creation order.
func (r *Ride) OpenNodes() []OpenNode {
	return lo.FilterMap(r.Nodes(), func(n Node, _ int) (OpenNode, bool) {
		o := OpenNode{Node: n, Head: n.Incoming.IsZero(), Tail: n.Outgoing.IsZero()}
		return o, o.Head || o.Tail
	})
}

// ClosesLoop reports whether following outgoing segments from the origin
// leads back to the origin.
func (r *Ride) ClosesLoop() bool {
	cur, ok := r.Node(r.origin)
	if !ok {
		return false
	}
	for steps := 0; steps <= r.segments.len(); steps++ {
		seg, ok := r.Segment(cur.Outgoing)
		if !ok {
			return false
		}
		if seg.End == r.origin {
			return true
		}
		if cur, ok = r.Node(seg.End); !ok {
			return false
		}
	}
	return false
}
