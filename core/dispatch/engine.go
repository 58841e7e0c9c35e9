package dispatch

import (
	"fmt"

	"github.com/kilianp07/dutyplan/core/clock"
	"github.com/kilianp07/dutyplan/core/model"
)

type adjustment struct {
	start, end, delta int
}

// engine holds the per-route values derived once per computation. It is
// never mutated after newEngine returns.
type engine struct {
	route        model.RouteConfig
	cfg          Config
	headway      int
	serviceStart int
	dutyMinutes  int
	anchor       int
	legs         [2]int
	rules        []adjustment
	breakAt      string
}

func newEngine(route model.RouteConfig, cfg Config) *engine {
	e := &engine{
		route:        route,
		cfg:          cfg,
		headway:      Headway(route, cfg),
		serviceStart: clock.Minutes(route.ServiceStartTime),
		dutyMinutes:  clock.Round(route.DutyDurationHours * 60),
		legs:         [2]int{clock.Round(route.Leg1.Minutes()), clock.Round(route.Leg2.Minutes())},
		breakAt:      route.BreakLocation(),
	}
	e.anchor = e.serviceStart + cfg.PreparationMinutes
	if route.IsTurnoutFromDepot {
		e.anchor += route.DepotConnections.TimeFromDepotToStart
	}
	for _, r := range route.TimeAdjustmentRules {
		e.rules = append(e.rules, adjustment{
			start: clock.Minutes(r.StartTime),
			end:   clock.Minutes(r.EndTime),
			delta: r.AdjustmentMinutes,
		})
	}
	return e
}

// attempt is the trial state of one pass over a duty. A strict attempt that
// hits a conflict is discarded whole.
type attempt struct {
	events       []model.Event
	location     string
	avail        int
	end          int
	tripNo       int
	open         int
	brokeOpen    bool
	breakTaken   bool
	breakBlocked bool
	held         bool
	lastDep      [2]int
	departures   [2][]int
	delay        int
	warnings     []string
}

func (a *attempt) warn(id, format string, args ...any) {
	a.warnings = append(a.warnings, fmt.Sprintf("[%s] ", id)+fmt.Sprintf(format, args...))
}

// outcome reports how an attempt ended. shift is set when a strict
// attempt aborted on a conflict.
type outcome struct {
	attempt  *attempt
	conflict bool
	shift    int
}

// run drives one attempt of d until no further leg fits.
func (e *engine) run(d *duty, strategy ConflictStrategy, reg *Registry) outcome {
	a := e.seedAttempt(d)
	for {
		if e.breakDue(d, a) {
			e.takeBreak(d, a)
			continue
		}
		if e.route.OneWay() && a.location == e.route.ToTerminal && a.location != e.route.FromTerminal {
			a.location = e.route.FromTerminal
			continue
		}
		dir := e.direction(a.location)
		dep := e.candidate(a, dir)
		if e.holdForBreak(d, a, dir, dep) {
			continue
		}
		dest := e.destination(dir)
		arr := dep + e.legDuration(dir, dep)
		if e.exceeds(a, arr, dest) {
			break
		}
		if _, ok := reg.Conflict(dir, dep, e.headway); ok {
			forced, shift, abort := strategy.Resolve(reg, dir, dep, e.headway)
			if abort {
				return outcome{attempt: a, conflict: true, shift: shift}
			}
			delay := forced - dep
			arr = forced + e.legDuration(dir, forced)
			if arr+e.returnBuffer(dest)+e.cfg.CheckingMinutes > a.end+delay {
				break
			}
			a.end += delay
			a.delay += delay
			dep = forced
		}
		e.commitLeg(a, dir, dep, arr, dest)
	}
	return outcome{attempt: a}
}

func (e *engine) direction(location string) Direction {
	if location == e.route.ToTerminal && location != e.route.FromTerminal {
		return Inbound
	}
	return Outbound
}

func (e *engine) destination(dir Direction) string {
	if dir == Inbound {
		return e.route.FromTerminal
	}
	return e.route.ToTerminal
}

// candidate is the earliest departure honoring availability and the duty's
// own spacing. Outbound departures snap onto the shared timetable lattice.
func (e *engine) candidate(a *attempt, dir Direction) int {
	t := a.avail
	if a.lastDep[dir] != unset && a.lastDep[dir]+e.headway > t {
		t = a.lastDep[dir] + e.headway
	}
	if dir == Outbound {
		t = e.snap(t)
	}
	return t
}

func (e *engine) snap(t int) int {
	return e.anchor + ceilDiv(t-e.anchor, e.headway)*e.headway
}

func ceilDiv(a, b int) int {
	if a >= 0 {
		return (a + b - 1) / b
	}
	return -((-a) / b)
}

// legDuration is the base duration plus every adjustment window containing
// the departure, never below one minute.
func (e *engine) legDuration(dir Direction, dep int) int {
	d := e.legs[dir]
	for _, r := range e.rules {
		if clock.InWindow(dep, r.start, r.end) {
			d += r.delta
		}
	}
	if d < 1 {
		return 1
	}
	return d
}

// returnBuffer is the depot run needed from location when turning out.
func (e *engine) returnBuffer(location string) int {
	if !e.route.IsTurnoutFromDepot {
		return 0
	}
	if location == e.route.FromTerminal {
		return e.route.DepotConnections.TimeFromStartToDepot
	}
	return e.route.DepotConnections.TimeFromEndToDepot
}

func (e *engine) exceeds(a *attempt, arrival int, dest string) bool {
	return arrival+e.returnBuffer(dest)+e.cfg.CheckingMinutes > a.end
}

func (e *engine) commitLeg(a *attempt, dir Direction, dep, arr int, dest string) {
	leg := model.TripLeg{Number: 1, Departure: dep, From: a.location, Arrival: arr, To: dest}
	if a.open >= 0 && !a.brokeOpen {
		trip := a.events[a.open].(model.Trip)
		if len(trip.Legs) == 1 && trip.Legs[0].From == dest {
			leg.Number = 2
			trip.Legs = append(trip.Legs, leg)
			a.events[a.open] = trip
			a.open = -1
			e.advance(a, dir, dep, arr, dest)
			return
		}
	}
	a.tripNo++
	a.events = append(a.events, model.Trip{Number: a.tripNo, Legs: []model.TripLeg{leg}})
	a.open = -1
	if !e.route.OneWay() {
		a.open = len(a.events) - 1
	}
	a.brokeOpen = false
	e.advance(a, dir, dep, arr, dest)
}

func (e *engine) advance(a *attempt, dir Direction, dep, arr int, dest string) {
	a.departures[dir] = append(a.departures[dir], dep)
	a.lastDep[dir] = dep
	a.location = dest
	a.avail = arr
}
