// Package graph defines the track graph for Coaster.
// A ride is a chain of nodes joined by cubic Bezier segments: a simple path
// from its origin, or a single loop closed back onto it. Rides are immutable
// values; every edit yields a new ride.
package graph
