package dispatch

import (
	"sort"

	"github.com/kilianp07/dutyplan/core/model"
)

// finishedDuty is a duty with its committed and finalized attempt.
type finishedDuty struct {
	duty    *duty
	attempt *attempt
	dutyEnd int
}

// finalize closes the timeline of d: depot return when it fits, checking
// time and duty end, then a stable sort by effective time.
func (e *engine) finalize(d *duty, a *attempt) finishedDuty {
	if e.route.IsTurnoutFromDepot && a.location != e.route.DepotName {
		t := e.returnBuffer(a.location)
		if a.avail+t+e.cfg.CheckingMinutes <= a.end {
			a.events = append(a.events, model.Movement{
				Kind:      model.EventTripToDepot,
				Departure: a.avail,
				Arrival:   a.avail + t,
				From:      a.location,
				To:        e.route.DepotName,
			})
			a.avail += t
			a.location = e.route.DepotName
		}
	}
	if r := e.route.CrewDutyRules; r.HasBreak && r.BreakDuration > 0 && !a.breakTaken {
		a.warn(d.id, "mandatory break could not be scheduled within the required window")
	}
	if a.delay > 0 {
		a.warn(d.id, "duty extended by %d minutes to keep headway", a.delay)
	}

	checking := a.avail
	end := min(a.avail+e.cfg.CheckingMinutes, a.end)
	if e.cfg.MinDutyMinutes > 0 {
		if floor := min(d.start+e.cfg.MinDutyMinutes, a.end); end < floor {
			end = floor
			checking = max(a.avail, end-e.cfg.CheckingMinutes)
		}
	}
	a.events = append(a.events,
		model.Marker{Kind: model.EventCheckingTime, Time: checking},
		model.Marker{Kind: model.EventDutyEnd, Time: end},
	)
	sort.SliceStable(a.events, func(i, j int) bool { return a.events[i].At() < a.events[j].At() })
	return finishedDuty{duty: d, attempt: a, dutyEnd: end}
}
