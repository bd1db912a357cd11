package graph

import (
	"errors"
	"fmt"
	"slices"
)

var ErrUnknownRide = errors.New("graph: unknown ride")

// Park is the immutable collection of every ride being edited. Rides are kept
// in insertion order. Each mutator returns a new Park.
type Park struct {
	order []RideID
	rides map[RideID]*Ride
}

// NewPark returns an empty park.
func NewPark() *Park {
	return &Park{rides: make(map[RideID]*Ride)}
}

func (p *Park) clone() *Park {
	next := &Park{
		order: slices.Clone(p.order),
		rides: make(map[RideID]*Ride, len(p.rides)),
	}
	for id, r := range p.rides {
		next.rides[id] = r
	}
	return next
}

// Len returns the number of rides.
func (p *Park) Len() int { return len(p.order) }

// Ride returns the ride with the given id.
func (p *Park) Ride(id RideID) (*Ride, bool) {
	r, ok := p.rides[id]
	return r, ok
}

// MustRide returns the ride with the given id, or panics.
func (p *Park) MustRide(id RideID) *Ride {
	r, ok := p.Ride(id)
	if !ok {
		panic(fmt.Sprintf("graph: no ride %q", id))
	}
	return r
}

// Rides returns every ride in insertion order.
func (p *Park) Rides() []*Ride {
	out := make([]*Ride, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, p.rides[id])
	}
	return out
}

// Put inserts r, or replaces the ride with the same id in place.
func (p *Park) Put(r *Ride) *Park {
	next := p.clone()
	if _, ok := next.rides[r.ID()]; !ok {
		next.order = append(next.order, r.ID())
	}
	next.rides[r.ID()] = r
	return next
}

// Delete removes a ride. Deleting an unknown id returns p unchanged.
func (p *Park) Delete(id RideID) *Park {
	if _, ok := p.rides[id]; !ok {
		return p
	}
	next := p.clone()
	delete(next.rides, id)
	next.order = slices.DeleteFunc(next.order, func(x RideID) bool { return x == id })
	return next
}

// Unlink removes a segment from a ride and deletes the ride if nothing is
// left of it. The returned bool reports whether the ride was deleted.
func (p *Park) Unlink(ride RideID, seg SegmentID) (*Park, bool, error) {
	r, ok := p.Ride(ride)
	if !ok {
		return p, false, fmt.Errorf("%w: %s", ErrUnknownRide, ride)
	}
	next, err := r.Unlink(seg)
	if err != nil {
		return p, false, err
	}
	if next.Empty() {
		return p.Delete(ride), true, nil
	}
	return p.Put(next), false, nil
}
