package editor

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/chazu/coaster/pkg/ctxlog"
	"github.com/chazu/coaster/pkg/geometry"
	"github.com/chazu/coaster/pkg/graph"
	"github.com/chazu/coaster/pkg/snap"
)

var letters = map[rune]geometry.Direction{
	'S': geometry.Straight,
	'L': geometry.Left,
	'R': geometry.Right,
}

// square leaves the cursor at (12,0,-4) facing -X, one straight away from
// closing the loop onto the origin.
const square = "SSSLSSSLSSSLS"

func place(t *testing.T, e *Editor, pos geometry.Vec3, turns int) graph.RideID {
	t.Helper()
	require.NoError(t, e.StartPlacement())
	for i := 0; i < turns; i++ {
		require.NoError(t, e.RotatePlacement())
	}
	id, err := e.ConfirmPlacement(pos)
	require.NoError(t, err)
	return id
}

func commitAll(t *testing.T, e *Editor, cmds string) {
	t.Helper()
	for i, c := range cmds {
		require.NoError(t, e.SetDirection(letters[c]))
		require.NoError(t, e.Commit(), "commit %d (%c)", i, c)
	}
}

func ride(t *testing.T, e *Editor, id graph.RideID) *graph.Ride {
	t.Helper()
	r, ok := e.Park().Ride(id)
	require.True(t, ok, "ride %s missing", id)
	return r
}

// frozen captures everything observable so tests can assert a rejected
// command changed nothing.
type frozen struct {
	State     State
	Snapshot  graph.Snapshot
	Cursor    Cursor
	Selection Selection
	Rotation  int
	Preview   *snap.Preview
}

func freeze(e *Editor) frozen {
	f := frozen{
		State:     e.State(),
		Snapshot:  e.Snapshot(),
		Rotation:  e.PlacementRotation(),
		Cursor:    e.m.cursor,
		Selection: e.m.selection,
	}
	if p, ok := e.Preview(); ok {
		f.Preview = &p
	}
	return f
}

func requireUnchanged(t *testing.T, before frozen, e *Editor) {
	t.Helper()
	opts := cmp.Comparer(func(a, b error) bool { return errors.Is(a, b) || a == b })
	if diff := cmp.Diff(before, freeze(e), opts); diff != "" {
		t.Fatalf("rejected command changed state (-before +after):\n%s", diff)
	}
}

func TestPlacementFlow(t *testing.T) {
	e := New()
	require.Equal(t, Inactive, e.State())

	require.NoError(t, e.RotatePlacement())
	require.NoError(t, e.StartPlacement())
	require.Equal(t, PlacementActive, e.State())
	for i := 0; i < 4; i++ {
		require.NoError(t, e.RotatePlacement())
	}
	require.Equal(t, 1, e.PlacementRotation(), "rotation wraps after four quarter turns")

	id, err := e.ConfirmPlacement(geometry.Vec3{X: 2, Z: -1})
	require.NoError(t, err)
	require.Equal(t, graph.RideID("ride-1"), id)
	require.Equal(t, Building, e.State())
	require.Zero(t, e.PlacementRotation())

	r := ride(t, e, id)
	require.Equal(t, "Ride 1", r.Name())
	origin, _ := r.Node(r.Origin())
	require.Equal(t, graph.NodeStart, origin.Kind)
	require.True(t, origin.Tangent.ApproxEqual(geometry.Vec3{X: 1}, 1e-9), "tangent %v", origin.Tangent)

	c, ok := e.Cursor()
	require.True(t, ok)
	require.Equal(t, Cursor{Ride: id, Node: r.Origin()}, c)

	p, ok := e.Preview()
	require.True(t, ok)
	require.False(t, p.Blocked())
	require.True(t, p.EndPose.Position.ApproxEqual(geometry.Vec3{X: 6, Z: -1}, 1e-9))
}

func TestLeftTurnScenario(t *testing.T) {
	e := New()
	id := place(t, e, geometry.Vec3{}, 0)
	commitAll(t, e, "S")

	c, _ := e.Cursor()
	n, _ := ride(t, e, id).Node(c.Node)
	require.True(t, n.Position.ApproxEqual(geometry.Vec3{Z: 4}, 1e-9))

	require.NoError(t, e.SetDirection(geometry.Left))
	p, _ := e.Preview()
	require.InDelta(t, 2*math.Pi, p.Segment.Length, 1e-9)
	require.True(t, p.EndPose.Tangent.ApproxEqual(geometry.Vec3{X: 1}, 1e-9))
	require.True(t, p.EndPose.Position.ApproxEqual(geometry.Vec3{X: 4, Z: 8}, 1e-9))

	require.NoError(t, e.Commit())
	c, _ = e.Cursor()
	n, _ = ride(t, e, id).Node(c.Node)
	require.True(t, n.Position.ApproxEqual(geometry.Vec3{X: 4, Z: 8}, 1e-9))
	require.True(t, n.Tangent.ApproxEqual(geometry.Vec3{X: 1}, 1e-9))
}

func TestSequentialCommits(t *testing.T) {
	const n = 6
	e := New()
	id := place(t, e, geometry.Vec3{}, 0)
	commitAll(t, e, "SLSRSS")

	r := ride(t, e, id)
	require.Equal(t, n, r.SegmentCount())
	require.Equal(t, n+1, r.NodeCount())

	nodes := r.Nodes()
	require.True(t, nodes[0].Incoming.IsZero())
	for i := 0; i < n; i++ {
		require.False(t, nodes[i].Outgoing.IsZero(), "node %d outgoing", i)
		require.False(t, nodes[i+1].Incoming.IsZero(), "node %d incoming", i+1)
	}
	require.Empty(t, graph.Errors(graph.Validate(r)))

	c, _ := e.Cursor()
	require.Equal(t, nodes[n].ID, c.Node)
}

func TestLoopClosure(t *testing.T) {
	e := New()
	id := place(t, e, geometry.Vec3{}, 0)
	commitAll(t, e, square)
	require.Equal(t, 14, ride(t, e, id).NodeCount())

	require.NoError(t, e.SetDirection(geometry.Straight))
	p, _ := e.Preview()
	require.True(t, p.Merging())

	require.NoError(t, e.Commit())
	require.Equal(t, RideComplete, e.State())
	done, ok := e.Completed()
	require.True(t, ok)
	require.Equal(t, id, done)

	r := ride(t, e, id)
	require.True(t, r.Complete())
	require.Equal(t, 14, r.NodeCount(), "merge must not create a node")
	require.Equal(t, 14, r.SegmentCount())
	origin, _ := r.Node(r.Origin())
	require.False(t, origin.Incoming.IsZero())
	require.False(t, origin.Outgoing.IsZero())

	_, ok = e.Cursor()
	require.False(t, ok)
	_, ok = e.Preview()
	require.False(t, ok)

	require.NoError(t, e.Dismiss())
	require.Equal(t, Inactive, e.State())
}

func TestMergeWithoutClosureEndsSession(t *testing.T) {
	e := New()
	id := place(t, e, geometry.Vec3{}, 0)
	commitAll(t, e, "SSSSSSSS")

	r := ride(t, e, id)
	gap := r.Segments()[5]
	require.NoError(t, e.SelectSegment(id, gap.ID))
	require.NoError(t, e.DeleteSelected())
	require.Equal(t, Inactive, e.State())
	require.Equal(t, 9, ride(t, e, id).NodeCount())

	require.NoError(t, e.ResumeBuilding(id, gap.Start))
	require.NoError(t, e.SetDirection(geometry.Straight))
	p, _ := e.Preview()
	require.True(t, p.Merging())
	require.Equal(t, gap.End, p.SnapTarget)

	require.NoError(t, e.Commit())
	require.Equal(t, Inactive, e.State())
	r = ride(t, e, id)
	require.False(t, r.Complete())
	require.Equal(t, 9, r.NodeCount())
	require.Equal(t, 8, r.SegmentCount())
	require.Empty(t, graph.Errors(graph.Validate(r)))
}

func TestResumedRunDoesNotLoopOntoItself(t *testing.T) {
	e := New()
	id := place(t, e, geometry.Vec3{}, 0)
	commitAll(t, e, "SSSSSLLS")
	segs := ride(t, e, id).Segments()
	tail := segs[len(segs)-1].End

	for _, s := range segs[2:4] {
		require.NoError(t, e.SelectSegment(id, s.ID))
		require.NoError(t, e.DeleteSelected())
	}
	require.NoError(t, e.ResumeBuilding(id, tail))
	p, _ := e.Preview()
	require.False(t, p.Merging(), "preview snaps onto %s", p.SnapTarget)

	require.NoError(t, e.Commit())
	require.Equal(t, Building, e.State())
	r := ride(t, e, id)
	require.Empty(t, graph.Errors(graph.Validate(r)))

	data, err := e.Export()
	require.NoError(t, err)
	require.NoError(t, New().Import(data))
}

func TestBlockedCommitLeavesStateUnchanged(t *testing.T) {
	e := New(WithParams(geometry.DefaultParams(), snap.Params{SnapRadius: 10, MinClearance: 2.5, MinSegments: 1000}))
	place(t, e, geometry.Vec3{}, 0)
	commitAll(t, e, "SLLL")

	require.NoError(t, e.SetDirection(geometry.Straight))
	p, _ := e.Preview()
	require.True(t, p.Blocked())

	before := freeze(e)
	err := e.Commit()
	require.ErrorIs(t, err, ErrBlocked)
	var ce *snap.CollisionError
	require.ErrorAs(t, err, &ce)
	requireUnchanged(t, before, e)
}

func TestCollisionWithAnotherRide(t *testing.T) {
	e := New()
	first := place(t, e, geometry.Vec3{}, 0)
	commitAll(t, e, "S")
	require.NoError(t, e.Cancel())

	place(t, e, geometry.Vec3{X: 2.4}, 0)
	p, _ := e.Preview()
	require.True(t, p.Blocked())
	var ce *snap.CollisionError
	require.ErrorAs(t, p.Err, &ce)
	require.Equal(t, first, ce.Ride)
	require.NoError(t, e.Cancel())

	place(t, e, geometry.Vec3{X: 2.6}, 0)
	p, _ = e.Preview()
	require.False(t, p.Blocked())
}

func TestCancel(t *testing.T) {
	e := New()
	empty := place(t, e, geometry.Vec3{}, 0)
	require.NoError(t, e.Cancel())
	require.Equal(t, Inactive, e.State())
	_, ok := e.Park().Ride(empty)
	require.False(t, ok, "a ride without segments must not survive cancel")

	kept := place(t, e, geometry.Vec3{X: 50}, 0)
	require.Equal(t, graph.RideID("ride-2"), kept, "ride numbers are never reused")
	commitAll(t, e, "SS")
	require.NoError(t, e.Cancel())
	require.Equal(t, 2, ride(t, e, kept).SegmentCount())
	_, ok = e.Cursor()
	require.False(t, ok)
	_, ok = e.Preview()
	require.False(t, ok)

	require.ErrorIs(t, e.Cancel(), ErrInvalidState)
}

func TestDeleteOnlySegmentRemovesRide(t *testing.T) {
	e := New()
	id := place(t, e, geometry.Vec3{}, 0)
	commitAll(t, e, "S")
	seg := ride(t, e, id).Segments()[0]

	require.NoError(t, e.SelectSegment(id, seg.ID))
	require.Equal(t, SegmentSelected, e.State())
	_, ok := e.Cursor()
	require.False(t, ok, "selecting ends the build session")

	require.NoError(t, e.DeleteSelected())
	require.Equal(t, PlacementActive, e.State())
	require.Equal(t, 0, e.Park().Len())
}

func TestDeleteKeepsRide(t *testing.T) {
	e := New()
	id := place(t, e, geometry.Vec3{}, 0)
	commitAll(t, e, "SSS")
	last := ride(t, e, id).Segments()[2]

	require.NoError(t, e.Cancel())
	require.NoError(t, e.SelectSegment(id, last.ID))
	require.NoError(t, e.DeleteSelected())
	require.Equal(t, Inactive, e.State())

	r := ride(t, e, id)
	require.Equal(t, 2, r.SegmentCount())
	require.Equal(t, 3, r.NodeCount())
	_, ok := r.Node(last.End)
	require.False(t, ok)
}

func TestResumeFromSelection(t *testing.T) {
	e := New()
	id := place(t, e, geometry.Vec3{}, 0)
	commitAll(t, e, "SS")
	segs := ride(t, e, id).Segments()

	require.NoError(t, e.SelectSegment(id, segs[0].ID))
	require.False(t, e.CanResume(), "end of the first segment already continues")
	require.ErrorIs(t, e.ResumeSelected(), ErrNotOpen)

	require.NoError(t, e.SelectSegment(id, segs[1].ID))
	require.True(t, e.CanResume())
	require.NoError(t, e.ResumeSelected())
	require.Equal(t, Building, e.State())
	c, _ := e.Cursor()
	require.Equal(t, segs[1].End, c.Node)
	_, ok := e.Selection()
	require.False(t, ok)

	commitAll(t, e, "S")
	require.Equal(t, 3, ride(t, e, id).SegmentCount())
}

func TestResumeRejections(t *testing.T) {
	e := New()
	id := place(t, e, geometry.Vec3{}, 0)
	commitAll(t, e, square+"S")
	require.Equal(t, RideComplete, e.State())

	r := ride(t, e, id)
	require.ErrorIs(t, e.ResumeBuilding(id, r.Origin()), ErrInvalidState)
	require.NoError(t, e.Dismiss())

	before := freeze(e)
	require.ErrorIs(t, e.ResumeBuilding(id, r.Origin()), ErrRideComplete)
	require.ErrorIs(t, e.ResumeBuilding("ride-7", r.Origin()), graph.ErrUnknownRide)
	requireUnchanged(t, before, e)

	require.NoError(t, e.SelectSegment(id, r.Segments()[3].ID))
	require.False(t, e.CanResume())
}

func TestInvalidStateCommands(t *testing.T) {
	e := New()
	before := freeze(e)

	require.ErrorIs(t, e.Commit(), ErrInvalidState)
	_, err := e.ConfirmPlacement(geometry.Vec3{})
	require.ErrorIs(t, err, ErrInvalidState)
	require.ErrorIs(t, e.DeleteSelected(), ErrInvalidState)
	require.ErrorIs(t, e.ClearSelection(), ErrInvalidState)
	require.ErrorIs(t, e.Dismiss(), ErrInvalidState)
	require.ErrorIs(t, e.SelectSegment("ride-1", graph.SegmentID{Index: 0, Gen: 1}), graph.ErrUnknownRide)
	requireUnchanged(t, before, e)

	place(t, e, geometry.Vec3{}, 0)
	require.ErrorIs(t, e.StartPlacement(), ErrInvalidState)
	require.ErrorIs(t, e.RotatePlacement(), ErrInvalidState)
}

func TestPendingCommandsOutsideBuilding(t *testing.T) {
	e := New()
	require.NoError(t, e.SetDirection(geometry.Right))
	require.NoError(t, e.SetSlope(geometry.Up))
	_, ok := e.Preview()
	require.False(t, ok)

	place(t, e, geometry.Vec3{}, 0)
	p, _ := e.Preview()
	require.Equal(t, geometry.Right, p.Segment.Direction)
	require.Equal(t, geometry.Up, p.Segment.Slope)
	require.Greater(t, p.EndPose.Position.Y, 0.0)
}

func TestResetFromAnyState(t *testing.T) {
	e := New()
	place(t, e, geometry.Vec3{}, 0)
	e.Reset()
	require.Equal(t, Inactive, e.State())
	require.Equal(t, 0, e.Park().Len())

	id := place(t, e, geometry.Vec3{}, 0)
	commitAll(t, e, "S")
	require.NoError(t, e.SetDirection(geometry.Left))
	require.NoError(t, e.SelectSegment(id, ride(t, e, id).Segments()[0].ID))
	e.Reset()
	require.Equal(t, Inactive, e.State())
	_, ok := e.Selection()
	require.False(t, ok)
	require.Equal(t, 0, e.Park().Len(), "reset starts a new park")
	require.Equal(t, geometry.Left, e.Direction())

	require.Equal(t, graph.RideID("ride-1"), place(t, e, geometry.Vec3{}, 0))
}

func TestRenameRide(t *testing.T) {
	e := New()
	id := place(t, e, geometry.Vec3{}, 0)
	commitAll(t, e, "S")
	require.NoError(t, e.RenameRide(id, "Corkscrew"))
	require.Equal(t, "Corkscrew", ride(t, e, id).Name())
	require.ErrorIs(t, e.RenameRide("ride-9", "x"), graph.ErrUnknownRide)
}

func TestExportImportRoundTrip(t *testing.T) {
	e := New()
	place(t, e, geometry.Vec3{}, 0)
	commitAll(t, e, square+"S")
	require.NoError(t, e.Dismiss())
	place(t, e, geometry.Vec3{X: 60}, 2)
	commitAll(t, e, "SRS")
	require.NoError(t, e.Cancel())

	data, err := e.Export()
	require.NoError(t, err)

	other := New()
	require.NoError(t, other.Import(data))
	require.Equal(t, Inactive, other.State())
	if diff := cmp.Diff(e.Snapshot(), other.Snapshot()); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
	require.True(t, ride(t, other, "ride-1").Complete())

	require.NoError(t, other.StartPlacement())
	id, err := other.ConfirmPlacement(geometry.Vec3{Z: -80})
	require.NoError(t, err)
	require.Equal(t, graph.RideID("ride-3"), id)
}

func TestImportFailureLeavesStateUntouched(t *testing.T) {
	e := New()
	id := place(t, e, geometry.Vec3{}, 0)
	commitAll(t, e, "SS")
	before := freeze(e)

	err := e.Import([]byte(`{"ride-1": {"nodes": [`))
	var ie *graph.ImportError
	require.ErrorAs(t, err, &ie)

	bad := e.Snapshot()
	rec := bad[id]
	rec.Segments = append([]graph.Segment(nil), rec.Segments...)
	rec.Segments[0].End = graph.NodeID{Index: 50, Gen: 1}
	bad[id] = rec
	require.ErrorAs(t, e.Restore(bad), &ie)

	requireUnchanged(t, before, e)
}

func TestRejectionsAreLogged(t *testing.T) {
	var buf bytes.Buffer
	e := New(WithLogger(ctxlog.New("debug", "text", &buf)))
	require.Error(t, e.Commit())
	require.Contains(t, buf.String(), "command rejected")
	require.Contains(t, buf.String(), "cmd=commit")
}
