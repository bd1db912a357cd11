package geometry

import (
	"fmt"
	"math"
	"strings"
)

// Direction is the horizontal part of a build command.
type Direction int

const (
	Straight Direction = iota
	Left               // +90° yaw
	Right              // -90° yaw
)

func (d Direction) String() string {
	switch d {
	case Straight:
		return "STRAIGHT"
	case Left:
		return "LEFT"
	case Right:
		return "RIGHT"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// Yaw returns the heading change in radians.
func (d Direction) Yaw() float64 {
	switch d {
	case Left:
		return math.Pi / 2
	case Right:
		return -math.Pi / 2
	default:
		return 0
	}
}

// ParseDirection accepts the text form case-insensitively.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToUpper(s) {
	case "STRAIGHT":
		return Straight, nil
	case "LEFT":
		return Left, nil
	case "RIGHT":
		return Right, nil
	}
	return 0, fmt.Errorf("invalid direction %q, expected straight, left, or right", s)
}

func (d Direction) MarshalText() ([]byte, error) {
	if d < Straight || d > Right {
		return nil, fmt.Errorf("invalid direction %d", int(d))
	}
	return []byte(d.String()), nil
}

func (d *Direction) UnmarshalText(b []byte) error {
	v, err := ParseDirection(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// Slope is the vertical part of a build command. It names the pitch the
// track should reach at the end of the segment.
type Slope int

const (
	Flat Slope = iota
	Up
	Down
)

func (s Slope) String() string {
	switch s {
	case Flat:
		return "FLAT"
	case Up:
		return "UP"
	case Down:
		return "DOWN"
	default:
		return fmt.Sprintf("Slope(%d)", int(s))
	}
}

// Pitch returns the target pitch in radians for a slope of angle.
func (s Slope) Pitch(angle float64) float64 {
	switch s {
	case Up:
		return angle
	case Down:
		return -angle
	default:
		return 0
	}
}

// ParseSlope accepts the text form case-insensitively.
func ParseSlope(s string) (Slope, error) {
	switch strings.ToUpper(s) {
	case "FLAT":
		return Flat, nil
	case "UP":
		return Up, nil
	case "DOWN":
		return Down, nil
	}
	return 0, fmt.Errorf("invalid slope %q, expected flat, up, or down", s)
}

func (s Slope) MarshalText() ([]byte, error) {
	if s < Flat || s > Down {
		return nil, fmt.Errorf("invalid slope %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *Slope) UnmarshalText(b []byte) error {
	v, err := ParseSlope(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
