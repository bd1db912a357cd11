// Package editor drives the build/edit state machine. An Editor owns the park
// of rides, the build cursor and the current preview, and applies every
// command as a whole-state replacement: a command either succeeds and swaps
// in a new state, or fails and leaves everything as it was.
package editor

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/chazu/coaster/pkg/ctxlog"
	"github.com/chazu/coaster/pkg/geometry"
	"github.com/chazu/coaster/pkg/graph"
	"github.com/chazu/coaster/pkg/snap"
)

// State is the editor's mode.
type State int

const (
	Inactive State = iota
	PlacementActive
	Building
	SegmentSelected
	RideComplete
)

func (s State) String() string {
	switch s {
	case Inactive:
		return "inactive"
	case PlacementActive:
		return "placement"
	case Building:
		return "building"
	case SegmentSelected:
		return "selected"
	case RideComplete:
		return "complete"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

var (
	ErrInvalidState = errors.New("editor: command not allowed in current state")
	ErrNoCursor     = errors.New("editor: no active build cursor")
	ErrBlocked      = errors.New("editor: preview is blocked")
	ErrNoSelection  = errors.New("editor: no segment selected")
	ErrRideComplete = errors.New("editor: ride is already complete")
	ErrNotOpen      = errors.New("editor: node has no free outgoing slot")
	ErrInvalidTrack = errors.New("editor: merge would leave the ride invalid")
)

// Cursor names the node new segments extend from.
type Cursor struct {
	Ride graph.RideID
	Node graph.NodeID
}

func (c Cursor) IsZero() bool { return c.Ride == "" }

// Selection names the segment the user picked for editing.
type Selection struct {
	Ride    graph.RideID
	Segment graph.SegmentID
}

func (s Selection) IsZero() bool { return s.Ride == "" }

// model is everything a command may change. Commands work on a copy and
// install it only when they succeed.
type model struct {
	state     State
	park      *graph.Park
	cursor    Cursor
	preview   *snap.Preview
	selection Selection
	direction geometry.Direction
	slope     geometry.Slope
	rotation  int          // quarter turns applied to the next placement
	completed graph.RideID // ride shown while in RideComplete
	rides     int          // highest ride number handed out
}

// Editor is the single owner of the park during an editing session. It is not
// safe for concurrent use.
type Editor struct {
	m   model
	gp  geometry.Params
	sp  snap.Params
	log *slog.Logger
}

// Option configures an Editor.
type Option func(*Editor)

// WithParams overrides the generator and validator constants.
func WithParams(gp geometry.Params, sp snap.Params) Option {
	return func(e *Editor) {
		e.gp = gp
		e.sp = sp
	}
}

// WithLogger sets the logger used for command tracing.
func WithLogger(l *slog.Logger) Option {
	return func(e *Editor) {
		if l != nil {
			e.log = l
		}
	}
}

// New returns an Inactive editor with an empty park.
func New(opts ...Option) *Editor {
	e := &Editor{
		m:   model{park: graph.NewPark()},
		gp:  geometry.DefaultParams(),
		sp:  snap.DefaultParams(),
		log: ctxlog.Discard(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Editor) State() State                  { return e.m.state }
func (e *Editor) Park() *graph.Park             { return e.m.park }
func (e *Editor) Direction() geometry.Direction { return e.m.direction }
func (e *Editor) Slope() geometry.Slope         { return e.m.slope }

// Params returns the generator and validator constants in use.
func (e *Editor) Params() (geometry.Params, snap.Params) { return e.gp, e.sp }

// PlacementRotation returns the pending placement rotation in quarter turns,
// 0 through 3.
func (e *Editor) PlacementRotation() int { return e.m.rotation }

// Cursor returns the build cursor while building.
func (e *Editor) Cursor() (Cursor, bool) { return e.m.cursor, !e.m.cursor.IsZero() }

// Preview returns the current preview segment while building.
func (e *Editor) Preview() (snap.Preview, bool) {
	if e.m.preview == nil {
		return snap.Preview{}, false
	}
	return *e.m.preview, true
}

// Selection returns the selected segment.
func (e *Editor) Selection() (Selection, bool) { return e.m.selection, !e.m.selection.IsZero() }

// Completed returns the ride that was just finished while in RideComplete.
func (e *Editor) Completed() (graph.RideID, bool) {
	return e.m.completed, e.m.state == RideComplete
}

// CanResume reports whether building may continue from the end of the
// selected segment: its end node must have a free outgoing slot and the ride
// must not be complete.
func (e *Editor) CanResume() bool {
	_, _, err := e.resumeTarget(e.m)
	return err == nil
}
