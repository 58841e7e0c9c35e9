package dispatch

import (
	"fmt"
	"math"

	"github.com/kilianp07/dutyplan/core/clock"
	"github.com/kilianp07/dutyplan/core/model"
)

const unset = math.MinInt32

// duty is one bus for one shift. start and end move under retries; the
// nominal start only orders processing.
type duty struct {
	id           string
	shift        int
	bus          int
	nominalStart int
	start        int
	end          int
	// origin is where the bus sits at calling time. Empty means the depot
	// side of the origin terminal.
	origin   string
	retries  int
	drift    int
	fallback bool
}

// seed carries the actual end of a bus's previous duty for chained shifts.
type seed struct {
	end      int
	location string
	ok       bool
}

func dutyID(bus, shift int) string {
	return fmt.Sprintf("Bus %d - %s", bus+1, shiftID(shift))
}

func shiftID(shift int) string { return fmt.Sprintf("S%d", shift) }

// initShift builds the duties of one shift.
func (e *engine) initShift(shift int, seeds []seed) []*duty {
	buses := e.route.BusesAssigned
	duties := make([]*duty, 0, buses)
	for bus := 0; bus < buses; bus++ {
		d := &duty{id: dutyID(bus, shift), shift: shift, bus: bus}
		d.start = e.shiftStart(shift, bus, seeds[bus])
		if e.route.ShiftLinking.Mode == model.ShiftChained && shift > 1 && seeds[bus].ok {
			if seeds[bus].location != e.route.DepotName {
				d.origin = seeds[bus].location
			}
		}
		d.nominalStart = d.start
		d.end = d.start + e.dutyMinutes
		duties = append(duties, d)
	}
	return duties
}

func (e *engine) shiftStart(shift, bus int, prev seed) int {
	stagger := bus * e.headway
	if shift <= 1 {
		return e.serviceStart + stagger
	}
	switch e.route.ShiftLinking.Mode {
	case model.ShiftChained:
		if prev.ok {
			return prev.end
		}
	case model.ShiftFixedClock:
		fixed := clock.Minutes(e.route.ShiftLinking.StartTime)
		if fixed <= e.serviceStart {
			fixed += clock.MinutesPerDay
		}
		return fixed + (shift-2)*e.dutyMinutes + stagger
	}
	return e.serviceStart + (shift-1)*e.dutyMinutes + stagger
}

// seedAttempt opens a fresh attempt for d with its calling, preparation and
// optional depot movement events.
func (e *engine) seedAttempt(d *duty) *attempt {
	a := &attempt{
		end:     d.end,
		open:    -1,
		lastDep: [2]int{unset, unset},
	}
	a.events = append(a.events,
		model.Marker{Kind: model.EventCallingTime, Time: d.start},
		model.Marker{Kind: model.EventPreparation, Time: d.start + e.cfg.PreparationMinutes},
	)
	a.avail = d.start + e.cfg.PreparationMinutes
	if d.origin != "" {
		a.location = d.origin
		return a
	}
	if e.route.IsTurnoutFromDepot {
		t := e.route.DepotConnections.TimeFromDepotToStart
		a.events = append(a.events, model.Movement{
			Kind:      model.EventDepotMovement,
			Departure: a.avail,
			Arrival:   a.avail + t,
			From:      e.route.DepotName,
			To:        e.route.FromTerminal,
		})
		a.avail += t
	}
	a.location = e.route.FromTerminal
	return a
}
