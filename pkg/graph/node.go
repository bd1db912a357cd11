package graph

import (
	"fmt"

	"github.com/chazu/coaster/pkg/geometry"
)

// NodeKind distinguishes a ride's origin from every other node.
type NodeKind int

const (
	NodeNormal NodeKind = iota
	NodeStart           // the ride's origin
)

func (k NodeKind) String() string {
	switch k {
	case NodeNormal:
		return "NORMAL"
	case NodeStart:
		return "START"
	default:
		return fmt.Sprintf("NodeKind(%d)", int(k))
	}
}

func (k NodeKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *NodeKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "NORMAL", "":
		*k = NodeNormal
	case "START":
		*k = NodeStart
	default:
		return fmt.Errorf("unknown node kind %q", b)
	}
	return nil
}

// Node is a point on the track. It has at most one incoming and one outgoing
// segment; a node with neither is isolated and never survives an edit.
type Node struct {
	ID       NodeID        `json:"id"`
	Position geometry.Vec3 `json:"position"`
	Tangent  geometry.Vec3 `json:"tangent"`
	Rotation geometry.Quat `json:"rotation"`
	Incoming SegmentID     `json:"incomingSegmentId,omitzero"`
	Outgoing SegmentID     `json:"outgoingSegmentId,omitzero"`
	Kind     NodeKind      `json:"kind"`
}

// Pose returns the node's position and tangent.
func (n Node) Pose() geometry.Pose {
	return geometry.Pose{Position: n.Position, Tangent: n.Tangent}
}

// Isolated reports whether the node has no edges at all.
func (n Node) Isolated() bool {
	return n.Incoming.IsZero() && n.Outgoing.IsZero()
}

// OpenNode is a node with at least one free edge slot. Head is set when the
// incoming slot is free, Tail when the outgoing slot is free.
type OpenNode struct {
	Node Node
	Head bool
	Tail bool
}

func newNode(pose geometry.Pose, kind NodeKind) Node {
	return Node{
		Position: pose.Position,
		Tangent:  pose.Tangent,
		Rotation: pose.Rotation(),
		Kind:     kind,
	}
}
