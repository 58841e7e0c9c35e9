package metrics

import "errors"

// MultiSink forwards records to multiple sinks. Optional recorder
// interfaces are only forwarded to sinks implementing them.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink from the given sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordSchedule forwards the record to all sinks and joins their errors.
func (m *MultiSink) RecordSchedule(rec ScheduleRecord) error {
	var errs []error
	for _, s := range m.Sinks {
		if err := s.RecordSchedule(rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecordRouteChange forwards the event to sinks implementing RouteChangeRecorder.
func (m *MultiSink) RecordRouteChange(ev RouteChangeEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(RouteChangeRecorder); ok {
			if err := r.RecordRouteChange(ev); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// RecordWarnings forwards warnings to sinks implementing WarningRecorder.
func (m *MultiSink) RecordWarnings(ws []DutyWarning) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(WarningRecorder); ok {
			if err := r.RecordWarnings(ws); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
