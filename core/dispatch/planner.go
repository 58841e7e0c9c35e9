package dispatch

import (
	"sort"

	"github.com/kilianp07/dutyplan/core/model"
)

// WarnNoBuses is the warning returned for routes without a fleet.
const WarnNoBuses = "Buses Assigned must be greater than 0."

// Stats counts what a computation produced.
type Stats struct {
	Duties         int `json:"duties"`
	Trips          int `json:"trips"`
	Legs           int `json:"legs"`
	Breaks         int `json:"breaks"`
	BreakMinutes   int `json:"break_minutes"`
	Retries        int `json:"retries"`
	FallbackDuties int `json:"fallback_duties"`
	ForcedDelay    int `json:"forced_delay_minutes"`
}

// Plan is a computed schedule with the data needed to report on it.
type Plan struct {
	Result   model.ScheduleResult
	Headway  int
	Stats    Stats
	Registry *Registry
}

// ComputeSchedule computes the duty timetable of route with the default
// engine constants. It is pure and safe for concurrent use.
func ComputeSchedule(route model.RouteConfig) model.ScheduleResult {
	return Compute(route, DefaultConfig()).Result
}

// Compute plans every duty of route. Duties are processed shift by shift in
// ascending nominal start so earlier duties claim timetable slots first.
func Compute(route model.RouteConfig, cfg Config) Plan {
	cfg.SetDefaults()
	plan := Plan{
		Result:   model.NewScheduleResult(),
		Headway:  Headway(route, cfg),
		Registry: NewRegistry(),
	}
	if route.BusesAssigned <= 0 {
		plan.Result.Warnings = append(plan.Result.Warnings, WarnNoBuses)
		return plan
	}
	e := newEngine(route, cfg)
	res := newResolver(e)
	seeds := make([]seed, route.BusesAssigned)
	var done []finishedDuty
	for shift := 1; shift <= route.Shifts(); shift++ {
		duties := e.initShift(shift, seeds)
		sort.SliceStable(duties, func(i, j int) bool {
			if duties[i].nominalStart != duties[j].nominalStart {
				return duties[i].nominalStart < duties[j].nominalStart
			}
			return duties[i].bus < duties[j].bus
		})
		for _, d := range duties {
			a := res.resolve(d, plan.Registry)
			fd := e.finalize(d, a)
			plan.Registry.Commit(a.departures)
			seeds[d.bus] = seed{end: fd.dutyEnd, location: a.location, ok: true}
			plan.Result.Warnings = append(plan.Result.Warnings, a.warnings...)
			plan.Stats.add(fd)
			done = append(done, fd)
		}
	}
	plan.Result.Schedules = format(done)
	return plan
}

func (s *Stats) add(fd finishedDuty) {
	s.Duties++
	s.Retries += fd.duty.retries
	if fd.duty.fallback {
		s.FallbackDuties++
	}
	s.ForcedDelay += fd.attempt.delay
	for _, ev := range fd.attempt.events {
		switch v := ev.(type) {
		case model.Trip:
			s.Trips++
			s.Legs += len(v.Legs)
		case model.Break:
			s.Breaks++
			s.BreakMinutes += v.Minutes()
		}
	}
}
