package geometry

import (
	"math"

	"github.com/deadsy/sdfx/sdf"
)

// Default generator constants.
const (
	DefaultGridUnit     = 4.0
	DefaultSlopeDegrees = 30.0
	DefaultHandleFactor = 0.4
)

// Params controls the size and shape of generated segments.
type Params struct {
	GridUnit     float64 // straight length and turn radius
	SlopeAngle   float64 // radians reached by an Up or Down command
	HandleFactor float64 // Bezier handle length as a fraction of path length
}

// DefaultParams returns the standard track dimensions.
func DefaultParams() Params {
	return Params{
		GridUnit:     DefaultGridUnit,
		SlopeAngle:   sdf.DtoR(DefaultSlopeDegrees),
		HandleFactor: DefaultHandleFactor,
	}
}

// Pose is a point on the track together with its direction of travel.
type Pose struct {
	Position Vec3
	Tangent  Vec3
}

// Rotation derives the orientation of the pose from its tangent.
func (p Pose) Rotation() Quat { return FromTangent(p.Tangent) }

// Pitch returns the angle of the tangent above the horizontal plane.
func (p Pose) Pitch() float64 {
	return math.Asin(clamp(p.Tangent.Normalize().Y, -1, 1))
}

// PlacementPose returns the origin pose of a ride placed at position after
// the given number of quarter turns.
func PlacementPose(position Vec3, quarterTurns int) Pose {
	r := float64(quarterTurns%4) * math.Pi / 2
	return Pose{
		Position: position,
		Tangent:  Vec3{math.Sin(r), 0, math.Cos(r)},
	}
}

// Result is the outcome of one generator step.
type Result struct {
	End    Pose
	Curve  Cubic
	Length float64 // nominal horizontal path length
}

// Next derives the segment that leaves origin under the given command.
//
// The heading is turned by the direction's yaw around +Y and then tilted to
// the slope's pitch around the heading's right axis. Turns follow a quarter
// circle of radius GridUnit in the horizontal plane. Height gain is the path
// length times the tangent of the mean of the start and target pitch; this is
// a blend, not a helix, and the handle scale is tuned to it.
func Next(origin Pose, dir Direction, slope Slope, p Params) Result {
	t0 := origin.Tangent.Normalize()

	heading := t0.Horizontal()
	if heading.Length() < 1e-9 {
		heading = Forward
	}
	heading = heading.Normalize()

	yaw := dir.Yaw()
	targetPitch := slope.Pitch(p.SlopeAngle)

	endHeading := rotate(heading, WorldUp, yaw)
	right := endHeading.Cross(WorldUp).Normalize()
	endTangent := rotate(endHeading, right, targetPitch).Normalize()

	var displacement Vec3
	length := p.GridUnit
	if dir == Straight {
		displacement = endHeading.Scale(p.GridUnit)
	} else {
		length = math.Pi / 2 * p.GridUnit

		centerOffset := heading.Cross(WorldUp).Normalize()
		if dir == Left {
			centerOffset = centerOffset.Neg()
		}
		centerOffset = centerOffset.Scale(p.GridUnit)
		endOffset := rotate(centerOffset.Neg(), WorldUp, yaw)
		displacement = centerOffset.Add(endOffset)
	}

	startPitch := math.Asin(clamp(t0.Y, -1, 1))
	avgPitch := (startPitch + targetPitch) / 2
	rise := length * math.Tan(avgPitch)

	start := origin.Position
	end := start.Add(displacement).Add(Vec3{0, rise, 0})

	k := p.HandleFactor * length
	curve := Cubic{
		start,
		start.Add(t0.Scale(k)),
		end.Sub(endTangent.Scale(k)),
		end,
	}

	return Result{
		End:    Pose{Position: end, Tangent: endTangent},
		Curve:  curve,
		Length: length,
	}
}

// rotate turns v by angle radians about axis using the right-hand rule.
func rotate(v, axis Vec3, angle float64) Vec3 {
	if angle == 0 {
		return v
	}
	m := sdf.Rotate3d(axis.sdf(), angle)
	return fromSDF(m.MulPosition(v.sdf()))
}
