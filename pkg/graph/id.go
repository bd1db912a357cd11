package graph

import (
	"fmt"
	"strings"
)

// Handle addresses a slot in a ride's arena. Gen starts at 1 and is bumped
// every time the slot is freed, so a handle to a removed item never resolves
// to whatever later reuses the slot. The zero Handle addresses nothing.
type Handle struct {
	Index uint32
	Gen   uint32
}

// IsZero reports whether h is the absent handle.
func (h Handle) IsZero() bool { return h.Gen == 0 }

func (h Handle) format(prefix byte) string {
	if h.IsZero() {
		return ""
	}
	return fmt.Sprintf("%c%d.%d", prefix, h.Index, h.Gen)
}

func parseHandle(prefix byte, s string) (Handle, error) {
	if s == "" {
		return Handle{}, nil
	}
	if s[0] != prefix || !strings.Contains(s, ".") {
		return Handle{}, fmt.Errorf("malformed id %q, expected %c<index>.<gen>", s, prefix)
	}
	var h Handle
	if _, err := fmt.Sscanf(s[1:], "%d.%d", &h.Index, &h.Gen); err != nil {
		return Handle{}, fmt.Errorf("malformed id %q: %w", s, err)
	}
	if h.Gen == 0 {
		return Handle{}, fmt.Errorf("malformed id %q: generation must be positive", s)
	}
	return h, nil
}

// NodeID identifies a node within its ride.
type NodeID Handle

// SegmentID identifies a segment within its ride.
type SegmentID Handle

// RideID identifies a ride within a park.
type RideID string

func (id NodeID) IsZero() bool      { return Handle(id).IsZero() }
func (id NodeID) String() string    { return Handle(id).format('n') }
func (id SegmentID) IsZero() bool   { return Handle(id).IsZero() }
func (id SegmentID) String() string { return Handle(id).format('s') }
func (id RideID) String() string    { return string(id) }

func (id NodeID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *NodeID) UnmarshalText(b []byte) error {
	h, err := parseHandle('n', string(b))
	if err != nil {
		return err
	}
	*id = NodeID(h)
	return nil
}

func (id SegmentID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *SegmentID) UnmarshalText(b []byte) error {
	h, err := parseHandle('s', string(b))
	if err != nil {
		return err
	}
	*id = SegmentID(h)
	return nil
}

// ParseNodeID parses the text form produced by NodeID.String.
func ParseNodeID(s string) (NodeID, error) {
	var id NodeID
	err := id.UnmarshalText([]byte(s))
	return id, err
}

// ParseSegmentID parses the text form produced by SegmentID.String.
func ParseSegmentID(s string) (SegmentID, error) {
	var id SegmentID
	err := id.UnmarshalText([]byte(s))
	return id, err
}
