package editor

import (
	"fmt"

	"github.com/chazu/coaster/pkg/geometry"
	"github.com/chazu/coaster/pkg/graph"
	"github.com/chazu/coaster/pkg/snap"
)

// apply installs next and logs the transition.
func (e *Editor) apply(cmd string, next model) {
	if next.state != e.m.state {
		e.log.Debug("state change", "cmd", cmd, "from", e.m.state, "to", next.state)
	}
	e.m = next
}

// reject logs a refused command and returns err unchanged.
func (e *Editor) reject(cmd string, err error) error {
	e.log.Debug("command rejected", "cmd", cmd, "state", e.m.state, "err", err)
	return err
}

func (e *Editor) invalid(cmd string) error {
	return e.reject(cmd, fmt.Errorf("%w: %s while %s", ErrInvalidState, cmd, e.m.state))
}

// refresh recomputes the preview for the cursor in next.
func (e *Editor) refresh(next *model) error {
	if next.cursor.IsZero() {
		return ErrNoCursor
	}
	p, err := snap.Evaluate(next.park, next.cursor.Ride, next.cursor.Node, next.direction, next.slope, e.gp, e.sp)
	if err != nil {
		return err
	}
	next.preview = &p
	return nil
}

// endSession clears the cursor and preview. A ride that never got a segment
// is discarded so that its lone origin does not outlive the session.
func endSession(next *model) {
	if !next.cursor.IsZero() {
		if r, ok := next.park.Ride(next.cursor.Ride); ok && r.SegmentCount() == 0 {
			next.park = next.park.Delete(r.ID())
		}
	}
	next.cursor = Cursor{}
	next.preview = nil
}

// StartPlacement begins placing a new ride.
func (e *Editor) StartPlacement() error {
	const cmd = "start-placement"
	switch e.m.state {
	case Inactive, PlacementActive, SegmentSelected:
	default:
		return e.invalid(cmd)
	}
	next := e.m
	next.state = PlacementActive
	next.selection = Selection{}
	e.apply(cmd, next)
	return nil
}

// RotatePlacement turns the pending placement by a quarter turn.
func (e *Editor) RotatePlacement() error {
	const cmd = "rotate-placement"
	if e.m.state != Inactive && e.m.state != PlacementActive {
		return e.invalid(cmd)
	}
	next := e.m
	next.rotation = (next.rotation + 1) % 4
	e.apply(cmd, next)
	return nil
}

// ConfirmPlacement creates a ride with its origin at position, facing the
// pending placement rotation, and starts building from it.
func (e *Editor) ConfirmPlacement(position geometry.Vec3) (graph.RideID, error) {
	const cmd = "confirm-placement"
	if e.m.state != PlacementActive {
		return "", e.invalid(cmd)
	}
	next := e.m
	next.rides++
	id := graph.RideID(fmt.Sprintf("ride-%d", next.rides))
	ride := graph.NewRide(id, fmt.Sprintf("Ride %d", next.rides), geometry.PlacementPose(position, next.rotation))

	next.park = next.park.Put(ride)
	next.cursor = Cursor{Ride: id, Node: ride.Origin()}
	next.rotation = 0
	next.state = Building
	if err := e.refresh(&next); err != nil {
		return "", e.reject(cmd, err)
	}
	e.apply(cmd, next)
	e.log.Info("ride placed", "ride", id, "position", position.String())
	return id, nil
}

// SetDirection sets the pending direction and, while building, recomputes
// the preview.
func (e *Editor) SetDirection(d geometry.Direction) error {
	next := e.m
	next.direction = d
	return e.setPending("set-direction", next)
}

// SetSlope sets the pending slope and, while building, recomputes the
// preview.
func (e *Editor) SetSlope(s geometry.Slope) error {
	next := e.m
	next.slope = s
	return e.setPending("set-slope", next)
}

func (e *Editor) setPending(cmd string, next model) error {
	if next.state == Building {
		if err := e.refresh(&next); err != nil {
			return e.reject(cmd, err)
		}
	}
	e.apply(cmd, next)
	return nil
}

// Commit turns the preview into track. A normal commit appends a node and
// keeps building from it. A merge links onto the snap target without a new
// node and ends the session: in RideComplete if the loop closed back to the
// origin, in Inactive otherwise.
func (e *Editor) Commit() error {
	const cmd = "commit"
	if e.m.state != Building {
		return e.invalid(cmd)
	}
	if e.m.cursor.IsZero() {
		return e.reject(cmd, ErrNoCursor)
	}
	next := e.m
	if next.preview == nil {
		if err := e.refresh(&next); err != nil {
			return e.reject(cmd, err)
		}
	}
	p := *next.preview
	if p.Blocked() {
		return e.reject(cmd, fmt.Errorf("%w: %w", ErrBlocked, p.Err))
	}

	ride, ok := next.park.Ride(next.cursor.Ride)
	if !ok {
		return e.reject(cmd, fmt.Errorf("%w: %s", graph.ErrUnknownRide, next.cursor.Ride))
	}

	if !p.Merging() {
		r, node, seg, err := ride.Extend(next.cursor.Node, p.Spec(), p.EndPose)
		if err != nil {
			return e.reject(cmd, err)
		}
		next.park = next.park.Put(r)
		next.cursor.Node = node
		if err := e.refresh(&next); err != nil {
			return e.reject(cmd, err)
		}
		e.apply(cmd, next)
		e.log.Debug("segment committed", "ride", r.ID(), "segment", seg.String(), "direction", p.Segment.Direction, "slope", p.Segment.Slope)
		return nil
	}

	r, seg, err := ride.Link(next.cursor.Node, p.Spec(), p.SnapTarget)
	if err != nil {
		return e.reject(cmd, err)
	}
	if errs := graph.Errors(graph.Validate(r)); len(errs) > 0 {
		return e.reject(cmd, fmt.Errorf("%w: %v", ErrInvalidTrack, errs[0]))
	}
	next.park = next.park.Put(r)
	next.cursor = Cursor{}
	next.preview = nil
	if r.Complete() {
		next.state = RideComplete
		next.completed = r.ID()
	} else {
		next.state = Inactive
	}
	e.apply(cmd, next)
	e.log.Info("segment merged", "ride", r.ID(), "segment", seg.String(), "target", p.SnapTarget.String(), "complete", r.Complete())
	return nil
}

// Cancel abandons the current activity and returns to Inactive.
func (e *Editor) Cancel() error {
	const cmd = "cancel"
	if e.m.state == Inactive {
		return e.invalid(cmd)
	}
	next := e.m
	endSession(&next)
	next.selection = Selection{}
	next.completed = ""
	next.state = Inactive
	e.apply(cmd, next)
	return nil
}

// SelectSegment selects a committed segment. Selecting while building ends
// the build session.
func (e *Editor) SelectSegment(ride graph.RideID, seg graph.SegmentID) error {
	const cmd = "select-segment"
	switch e.m.state {
	case Inactive, Building, SegmentSelected:
	default:
		return e.invalid(cmd)
	}
	r, ok := e.m.park.Ride(ride)
	if !ok {
		return e.reject(cmd, fmt.Errorf("%w: %s", graph.ErrUnknownRide, ride))
	}
	if _, ok := r.Segment(seg); !ok {
		return e.reject(cmd, fmt.Errorf("%w: %s in %s", graph.ErrUnknownSegment, seg, ride))
	}
	next := e.m
	endSession(&next)
	next.selection = Selection{Ride: ride, Segment: seg}
	next.state = SegmentSelected
	e.apply(cmd, next)
	return nil
}

// ClearSelection drops the selection and returns to Inactive.
func (e *Editor) ClearSelection() error {
	const cmd = "clear-selection"
	if e.m.state != SegmentSelected {
		return e.invalid(cmd)
	}
	next := e.m
	next.selection = Selection{}
	next.state = Inactive
	e.apply(cmd, next)
	return nil
}

// DeleteSelected removes the selected segment and any node it leaves
// isolated. If the ride disappears the editor offers a new placement,
// otherwise it returns to Inactive.
func (e *Editor) DeleteSelected() error {
	const cmd = "delete-selected"
	if e.m.state != SegmentSelected {
		return e.invalid(cmd)
	}
	if e.m.selection.IsZero() {
		return e.reject(cmd, ErrNoSelection)
	}
	next := e.m
	sel := next.selection
	park, deleted, err := next.park.Unlink(sel.Ride, sel.Segment)
	if err != nil {
		return e.reject(cmd, err)
	}
	next.park = park
	next.selection = Selection{}
	if deleted {
		next.state = PlacementActive
	} else {
		next.state = Inactive
	}
	e.apply(cmd, next)
	e.log.Info("segment deleted", "ride", sel.Ride, "segment", sel.Segment.String(), "ride_removed", deleted)
	return nil
}

// resumeTarget resolves the node building would resume from for the current
// selection.
func (e *Editor) resumeTarget(m model) (*graph.Ride, graph.Node, error) {
	if m.state != SegmentSelected || m.selection.IsZero() {
		return nil, graph.Node{}, ErrNoSelection
	}
	r, ok := m.park.Ride(m.selection.Ride)
	if !ok {
		return nil, graph.Node{}, fmt.Errorf("%w: %s", graph.ErrUnknownRide, m.selection.Ride)
	}
	seg, ok := r.Segment(m.selection.Segment)
	if !ok {
		return nil, graph.Node{}, fmt.Errorf("%w: %s", graph.ErrUnknownSegment, m.selection.Segment)
	}
	return checkResume(r, seg.End)
}

func checkResume(r *graph.Ride, id graph.NodeID) (*graph.Ride, graph.Node, error) {
	if r.Complete() {
		return nil, graph.Node{}, ErrRideComplete
	}
	n, ok := r.Node(id)
	if !ok {
		return nil, graph.Node{}, fmt.Errorf("%w: %s", graph.ErrUnknownNode, id)
	}
	if !n.Outgoing.IsZero() {
		return nil, graph.Node{}, fmt.Errorf("%w: %s", ErrNotOpen, id)
	}
	return r, n, nil
}

// ResumeBuilding moves the cursor to node and starts building from it. The
// node must have a free outgoing slot and its ride must be incomplete.
func (e *Editor) ResumeBuilding(ride graph.RideID, node graph.NodeID) error {
	const cmd = "resume"
	if e.m.state != Inactive && e.m.state != SegmentSelected {
		return e.invalid(cmd)
	}
	r, ok := e.m.park.Ride(ride)
	if !ok {
		return e.reject(cmd, fmt.Errorf("%w: %s", graph.ErrUnknownRide, ride))
	}
	if _, _, err := checkResume(r, node); err != nil {
		return e.reject(cmd, err)
	}
	next := e.m
	next.selection = Selection{}
	next.cursor = Cursor{Ride: ride, Node: node}
	next.state = Building
	if err := e.refresh(&next); err != nil {
		return e.reject(cmd, err)
	}
	e.apply(cmd, next)
	return nil
}

// ResumeSelected resumes building from the end of the selected segment.
func (e *Editor) ResumeSelected() error {
	r, n, err := e.resumeTarget(e.m)
	if err != nil {
		return e.reject("resume", err)
	}
	return e.ResumeBuilding(r.ID(), n.ID)
}

// Reset discards every ride and returns to Inactive from any state, leaving
// an empty park whose ride numbering starts over. The pending direction and
// slope are kept.
func (e *Editor) Reset() {
	rides := e.m.park.Len()
	e.apply("reset", model{
		park:      graph.NewPark(),
		direction: e.m.direction,
		slope:     e.m.slope,
	})
	e.log.Info("park reset", "rides_discarded", rides)
}

// Dismiss leaves the RideComplete display.
func (e *Editor) Dismiss() error {
	const cmd = "dismiss"
	if e.m.state != RideComplete {
		return e.invalid(cmd)
	}
	next := e.m
	next.completed = ""
	next.state = Inactive
	e.apply(cmd, next)
	return nil
}

// RenameRide changes a ride's display name.
func (e *Editor) RenameRide(ride graph.RideID, name string) error {
	const cmd = "rename"
	r, ok := e.m.park.Ride(ride)
	if !ok {
		return e.reject(cmd, fmt.Errorf("%w: %s", graph.ErrUnknownRide, ride))
	}
	next := e.m
	next.park = next.park.Put(r.Rename(name))
	e.apply(cmd, next)
	return nil
}
