package graph

import (
	"math"

	"github.com/samber/lo"
)

// RideStats summarizes a ride for display once it is finished.
type RideStats struct {
	Nodes     int     `json:"nodes"`
	Segments  int     `json:"segments"`
	Length    float64 `json:"length"`    // sum of nominal segment lengths
	MaxHeight float64 `json:"maxHeight"` // highest node, never below ground
}

// Stats computes the ride's summary figures.
func (r *Ride) Stats() RideStats {
	maxHeight := lo.Reduce(r.Nodes(), func(h float64, n Node, _ int) float64 {
		return math.Max(h, n.Position.Y)
	}, 0)
	return RideStats{
		Nodes:     r.NodeCount(),
		Segments:  r.SegmentCount(),
		Length:    lo.SumBy(r.Segments(), func(s Segment) float64 { return s.Length }),
		MaxHeight: maxHeight,
	}
}
