package snap

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chazu/coaster/pkg/geometry"
	"github.com/chazu/coaster/pkg/graph"
)

var dirs = map[rune]geometry.Direction{
	'S': geometry.Straight,
	'L': geometry.Left,
	'R': geometry.Right,
}

// build places ride-1 at the origin facing +Z and commits one flat segment
// per letter without snapping. It returns the park and the cursor.
func build(t *testing.T, cmds string) (*graph.Park, graph.NodeID) {
	t.Helper()
	return buildWith(t, cmds, DefaultParams())
}

func buildWith(t *testing.T, cmds string, sp Params) (*graph.Park, graph.NodeID) {
	t.Helper()
	ride := graph.NewRide("ride-1", "Ride 1", geometry.PlacementPose(geometry.Vec3{}, 0))
	park := graph.NewPark().Put(ride)
	cursor := ride.Origin()
	for i, c := range cmds {
		p, err := Evaluate(park, "ride-1", cursor, dirs[c], geometry.Flat, geometry.DefaultParams(), sp)
		require.NoError(t, err)
		require.NoError(t, p.Err, "step %d (%c)", i, c)
		require.False(t, p.Merging(), "step %d (%c) unexpectedly snaps", i, c)

		r := park.MustRide("ride-1")
		r, cursor, _, err = r.Extend(cursor, p.Spec(), p.EndPose)
		require.NoError(t, err)
		park = park.Put(r)
	}
	return park, cursor
}

const square = "SSSLSSSLSSSLS"

func TestEvaluateStraightPreview(t *testing.T) {
	park, cursor := build(t, "S")
	p, err := Evaluate(park, "ride-1", cursor, geometry.Straight, geometry.Flat, geometry.DefaultParams(), DefaultParams())
	require.NoError(t, err)

	require.False(t, p.Blocked(), "adjacent segment must not count as a collision: %v", p.Err)
	require.False(t, p.Merging())
	require.True(t, p.Segment.ID.IsZero(), "preview must not carry an id")
	require.Equal(t, cursor, p.Segment.Start)
	require.True(t, p.EndPose.Position.ApproxEqual(geometry.Vec3{Z: 8}, 1e-9))
	require.Equal(t, geometry.Straight, p.Spec().Direction)
}

func TestEvaluateSnapsBackToOrigin(t *testing.T) {
	park, cursor := build(t, square)
	ride := park.MustRide("ride-1")
	require.Equal(t, 13, ride.SegmentCount())

	from, _ := ride.Node(cursor)
	require.True(t, from.Position.ApproxEqual(geometry.Vec3{X: 12, Z: -4}, 1e-9), "cursor at %v", from.Position)

	p, err := Evaluate(park, "ride-1", cursor, geometry.Straight, geometry.Flat, geometry.DefaultParams(), DefaultParams())
	require.NoError(t, err)
	require.True(t, p.Merging())
	require.Equal(t, ride.Origin(), p.SnapTarget)
	require.Equal(t, ride.Origin(), p.Segment.End)
	require.NoError(t, p.Err, "merge must ignore the target's outgoing segment")

	origin, _ := ride.Node(ride.Origin())
	require.Equal(t, origin.Position, p.Segment.ControlPoints[3])
	require.Equal(t, from.Position, p.Segment.ControlPoints[0])

	dist := from.Position.Dist(origin.Position)
	require.InDelta(t, dist, p.Segment.Length, 1e-12)
	k := geometry.DefaultHandleFactor * dist
	require.True(t, p.Segment.ControlPoints[1].ApproxEqual(from.Position.Add(from.Tangent.Scale(k)), 1e-9))
	require.True(t, p.Segment.ControlPoints[2].ApproxEqual(origin.Position.Sub(origin.Tangent.Scale(k)), 1e-9))
	require.Equal(t, origin.Pose(), p.EndPose)
}

func TestSnapRequiresMinSegments(t *testing.T) {
	park, cursor := build(t, "SS")
	ride := park.MustRide("ride-1")
	origin, _ := ride.Node(ride.Origin())

	sp := DefaultParams()
	sp.SnapRadius = 100
	_, ok := FindTarget(ride, cursor, origin.Position, sp)
	require.False(t, ok, "two segments must not snap")

	park, cursor = build(t, "SSS")
	_, ok = FindTarget(park.MustRide("ride-1"), cursor, origin.Position, sp)
	require.True(t, ok)
}

func TestSnapRadiusIsStrict(t *testing.T) {
	park, cursor := build(t, "SSS")
	ride := park.MustRide("ride-1")
	// The ideal straight from (0,0,12) ends at (0,0,16), exactly 16 from the origin.
	end := geometry.Vec3{Z: 16}

	sp := DefaultParams()
	sp.SnapRadius = 16
	_, ok := FindTarget(ride, cursor, end, sp)
	require.False(t, ok, "distance equal to the radius must not snap")

	sp.SnapRadius = 16 + 1e-9
	target, ok := FindTarget(ride, cursor, end, sp)
	require.True(t, ok)
	require.Equal(t, ride.Origin(), target.ID)
}

func TestFindTargetSkipsCursor(t *testing.T) {
	ride := graph.NewRide("ride-1", "", geometry.PlacementPose(geometry.Vec3{}, 0))
	sp := DefaultParams()
	sp.MinSegments = 0
	_, ok := FindTarget(ride, ride.Origin(), geometry.Vec3{}, sp)
	require.False(t, ok)
}

func TestFindTargetSkipsOwnRunHead(t *testing.T) {
	// Two straights are cut out of the middle, leaving a run from (0,0,16)
	// around to the cursor at (8,0,16) facing -Z.
	park, cursor := build(t, "SSSSSLLS")
	r := park.MustRide("ride-1")
	segs := r.Segments()
	var err error
	for _, s := range segs[2:4] {
		r, err = r.Unlink(s.ID)
		require.NoError(t, err)
	}
	head := segs[3].End
	n, ok := r.Node(head)
	require.True(t, ok)
	require.True(t, n.Incoming.IsZero())

	end := geometry.Vec3{X: 8, Z: 12}
	require.Less(t, n.Position.Dist(end), DefaultSnapRadius)
	_, ok = FindTarget(r, cursor, end, DefaultParams())
	require.False(t, ok, "snapping onto the run's own head closes a loop without the station")

	// The same head is a fair target from the run that starts at the origin.
	target, ok := FindTarget(r, segs[2].Start, geometry.Vec3{Z: 12}, DefaultParams())
	require.True(t, ok)
	require.Equal(t, head, target.ID)
}

func TestClearanceBoundary(t *testing.T) {
	const eps = 1e-6
	tests := []struct {
		name    string
		offset  float64
		collide bool
	}{
		{"inside clearance", DefaultMinClearance - eps, true},
		{"at clearance", DefaultMinClearance, false},
		{"outside clearance", DefaultMinClearance + eps, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			park, _ := build(t, "S")
			other := graph.NewRide("ride-2", "Ride 2", geometry.PlacementPose(geometry.Vec3{X: tc.offset}, 0))
			park = park.Put(other)

			p, err := Evaluate(park, "ride-2", other.Origin(), geometry.Straight, geometry.Flat,
				geometry.DefaultParams(), DefaultParams())
			require.NoError(t, err)
			require.Equal(t, tc.collide, p.Blocked(), "err = %v", p.Err)

			if tc.collide {
				var ce *CollisionError
				require.True(t, errors.As(p.Err, &ce))
				require.Equal(t, graph.RideID("ride-1"), ce.Ride)
				require.InDelta(t, tc.offset, ce.Distance, 1e-12)
			}
		})
	}
}

func TestCollideSelfCrossing(t *testing.T) {
	// Three left turns bring the cursor to (4,0,0) heading -X; a straight
	// from there runs into the ride's first segment.
	sp := DefaultParams()
	sp.MinSegments = 1000
	park, cursor := buildWith(t, "SLLL", sp)

	p, err := Evaluate(park, "ride-1", cursor, geometry.Straight, geometry.Flat, geometry.DefaultParams(), sp)
	require.NoError(t, err)
	require.True(t, p.Blocked())

	var ce *CollisionError
	require.ErrorAs(t, p.Err, &ce)
	require.Equal(t, park.MustRide("ride-1").Segments()[0].ID, ce.Segment)
	require.InDelta(t, 0, ce.Distance, 1e-9)
}

func TestEvaluateContractErrors(t *testing.T) {
	park, cursor := build(t, "S")
	gp, sp := geometry.DefaultParams(), DefaultParams()

	_, err := Evaluate(park, "ride-9", cursor, geometry.Straight, geometry.Flat, gp, sp)
	require.ErrorIs(t, err, graph.ErrUnknownRide)

	_, err = Evaluate(park, "ride-1", graph.NodeID{Index: 99, Gen: 1}, geometry.Straight, geometry.Flat, gp, sp)
	require.ErrorIs(t, err, ErrUnknownCursor)
}
