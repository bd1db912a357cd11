package editor

import (
	"strconv"
	"strings"

	"github.com/chazu/coaster/pkg/graph"
)

// Snapshot returns the serializable form of every ride.
func (e *Editor) Snapshot() graph.Snapshot { return e.m.park.Snapshot() }

// Restore replaces the park with the rides in s and returns to Inactive. On
// failure the editor is left exactly as it was and the error is a
// *graph.ImportError.
func (e *Editor) Restore(s graph.Snapshot) error {
	park, err := graph.Restore(s)
	if err != nil {
		return e.reject("restore", err)
	}
	next := e.m
	next.park = park
	next.cursor = Cursor{}
	next.preview = nil
	next.selection = Selection{}
	next.completed = ""
	next.state = Inactive
	for _, r := range park.Rides() {
		if n, ok := rideNumber(r.ID()); ok && n > next.rides {
			next.rides = n
		}
	}
	e.apply("restore", next)
	e.log.Info("park restored", "rides", park.Len())
	return nil
}

// Import decodes a JSON snapshot and restores it.
func (e *Editor) Import(data []byte) error {
	s, err := graph.DecodeSnapshot(data)
	if err != nil {
		return e.reject("import", err)
	}
	return e.Restore(s)
}

// Export encodes the park as a JSON snapshot.
func (e *Editor) Export() ([]byte, error) {
	return graph.EncodeSnapshot(e.Snapshot())
}

func rideNumber(id graph.RideID) (int, bool) {
	rest, ok := strings.CutPrefix(string(id), "ride-")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	return n, err == nil
}
