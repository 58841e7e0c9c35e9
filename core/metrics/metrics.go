package metrics

import "time"

// ScheduleRecord summarizes one computed schedule.
type ScheduleRecord struct {
	RouteID        string
	Headway        int
	Duties         int
	Trips          int
	Breaks         int
	Retries        int
	FallbackDuties int
	ForcedDelay    int
	Warnings       int
	Duration       time.Duration
	Time           time.Time
}

// MetricsSink records schedule computations for observability purposes.
type MetricsSink interface {
	RecordSchedule(rec ScheduleRecord) error
}

// RouteChangeEvent captures a mutation of a stored route.
type RouteChangeEvent struct {
	RouteID string
	Action  string
	Time    time.Time
}

// RouteChangeRecorder records route mutations.
type RouteChangeRecorder interface {
	RecordRouteChange(ev RouteChangeEvent) error
}

// DutyWarning is a single warning attached to a computed schedule.
type DutyWarning struct {
	RouteID string
	Message string
	Time    time.Time
}

// WarningRecorder is implemented by sinks able to keep individual warnings.
type WarningRecorder interface {
	RecordWarnings(ws []DutyWarning) error
}

// NopSink implements MetricsSink with no-op methods.
type NopSink struct{}

func (NopSink) RecordSchedule(ScheduleRecord) error      { return nil }
func (NopSink) RecordRouteChange(RouteChangeEvent) error { return nil }
func (NopSink) RecordWarnings([]DutyWarning) error       { return nil }
