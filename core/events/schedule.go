package events

import "time"

// ScheduleComputedEvent is published after a route schedule has been built.
type ScheduleComputedEvent struct {
	RouteID        string
	Headway        int
	Duties         int
	Trips          int
	Retries        int
	FallbackDuties int
	Warnings       []string
	Duration       time.Duration
}
