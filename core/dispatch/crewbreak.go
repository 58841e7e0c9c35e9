package dispatch

import "github.com/kilianp07/dutyplan/core/model"

func (e *engine) breakPending(a *attempt) bool {
	r := e.route.CrewDutyRules
	return r.HasBreak && r.BreakDuration > 0 && !a.breakTaken && !a.breakBlocked
}

// breakDue reports whether the crew must rest now: the bus stands at the
// break terminal and the elapsed duty time is inside the window.
func (e *engine) breakDue(d *duty, a *attempt) bool {
	if !e.breakPending(a) || a.location != e.breakAt {
		return false
	}
	r := e.route.CrewDutyRules
	elapsed := a.avail - d.start
	return elapsed >= r.BreakWindowStart && elapsed <= r.BreakWindowEnd
}

// takeBreak inserts the single break. It is cut short when the duty cannot
// hold the full length before checking time.
func (e *engine) takeBreak(d *duty, a *attempt) {
	r := e.route.CrewDutyRules
	length := r.BreakDuration
	if room := a.end - e.cfg.CheckingMinutes - a.avail; room < length {
		length = room
	}
	if length <= 0 {
		a.breakBlocked = true
		return
	}
	a.events = append(a.events, model.Break{Location: a.location, Start: a.avail, End: a.avail + length})
	if length < r.BreakDuration {
		a.warn(d.id, "break shortened to %d of %d minutes", length, r.BreakDuration)
	}
	a.breakTaken = true
	a.avail += length + r.BreakLayoverDuration
	a.brokeOpen = true
}

// holdForBreak keeps the bus at the break terminal until the window opens
// when its next return would land after the window closes.
func (e *engine) holdForBreak(d *duty, a *attempt, dir Direction, dep int) bool {
	if a.held || !e.breakPending(a) || a.location != e.breakAt {
		return false
	}
	r := e.route.CrewDutyRules
	opens := d.start + r.BreakWindowStart
	if a.avail >= opens {
		return false
	}
	if e.nextReturn(dir, dep) <= d.start+r.BreakWindowEnd {
		return false
	}
	a.held = true
	a.avail = opens
	return true
}

// nextReturn estimates when a bus leaving at dep is back where it started.
func (e *engine) nextReturn(dir Direction, dep int) int {
	arr := dep + e.legDuration(dir, dep)
	if e.route.OneWay() {
		return arr
	}
	back := Inbound
	if dir == Inbound {
		back = Outbound
	}
	return arr + e.legDuration(back, arr)
}
