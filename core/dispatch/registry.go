package dispatch

import "sort"

// Direction of travel along the route.
type Direction int

const (
	// Outbound departs from the origin terminal.
	Outbound Direction = iota
	// Inbound departs from the destination terminal.
	Inbound
)

func (d Direction) String() string {
	if d == Inbound {
		return "inbound"
	}
	return "outbound"
}

// Directions lists both directions in a fixed order.
var Directions = [...]Direction{Outbound, Inbound}

// Registry holds the departures committed by finalized duties, one sorted
// set per direction. It only grows.
type Registry struct {
	deps [2][]int
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry { return &Registry{} }

// Conflict returns the earliest committed departure closer than headway to t.
func (r *Registry) Conflict(dir Direction, t, headway int) (int, bool) {
	deps := r.deps[dir]
	i := sort.SearchInts(deps, t-headway+1)
	if i < len(deps) && deps[i] < t+headway {
		return deps[i], true
	}
	return 0, false
}

// Clear returns the earliest departure at or after t that conflicts with
// nothing, moving just past each blocking departure.
func (r *Registry) Clear(dir Direction, t, headway int) int {
	for {
		c, ok := r.Conflict(dir, t, headway)
		if !ok {
			return t
		}
		t = c + headway
	}
}

// Step walks t forward in headway increments until it no longer conflicts.
func (r *Registry) Step(dir Direction, t, headway int) int {
	for {
		if _, ok := r.Conflict(dir, t, headway); !ok {
			return t
		}
		t += headway
	}
}

// Add commits a departure.
func (r *Registry) Add(dir Direction, t int) {
	deps := r.deps[dir]
	i := sort.SearchInts(deps, t)
	deps = append(deps, 0)
	copy(deps[i+1:], deps[i:])
	deps[i] = t
	r.deps[dir] = deps
}

// Commit adds every departure of a finished attempt.
func (r *Registry) Commit(deps [2][]int) {
	for _, dir := range Directions {
		for _, t := range deps[dir] {
			r.Add(dir, t)
		}
	}
}

// Departures returns a sorted copy of the committed departures.
func (r *Registry) Departures(dir Direction) []int {
	return append([]int(nil), r.deps[dir]...)
}

// Len returns the number of committed departures in dir.
func (r *Registry) Len(dir Direction) int { return len(r.deps[dir]) }
