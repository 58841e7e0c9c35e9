package metrics

import (
	"errors"
	"testing"
)

type recordSink struct {
	count int
	err   error
}

func (r *recordSink) RecordSchedule(ScheduleRecord) error {
	r.count++
	return r.err
}

func (r *recordSink) RecordRouteChange(RouteChangeEvent) error {
	r.count++
	return nil
}

// scheduleOnly does not implement the optional recorders.
type scheduleOnly struct{ count int }

func (s *scheduleOnly) RecordSchedule(ScheduleRecord) error {
	s.count++
	return nil
}

// TestMultiSink ensures records are forwarded to all sinks.
func TestMultiSink(t *testing.T) {
	s1 := &recordSink{}
	s2 := &recordSink{}
	s3 := &scheduleOnly{}
	m := NewMultiSink(s1, s2, s3)
	if err := m.RecordSchedule(ScheduleRecord{RouteID: "r"}); err != nil {
		t.Fatalf("record schedule: %v", err)
	}
	if err := m.RecordRouteChange(RouteChangeEvent{RouteID: "r", Action: "created"}); err != nil {
		t.Fatalf("record change: %v", err)
	}
	if err := m.RecordWarnings([]DutyWarning{{Message: "w"}}); err != nil {
		t.Fatalf("record warnings: %v", err)
	}
	if s1.count != 2 || s2.count != 2 || s3.count != 1 {
		t.Fatalf("records not forwarded: %d %d %d", s1.count, s2.count, s3.count)
	}
}

func TestMultiSink_JoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	m := NewMultiSink(&recordSink{err: boom}, &recordSink{})
	if err := m.RecordSchedule(ScheduleRecord{}); !errors.Is(err, boom) {
		t.Fatalf("expected joined error, got %v", err)
	}
}
