package logging

import (
	"context"
	"time"
)

// LogRecord summarizes one schedule computation. Generated timetables are
// not kept, only what is needed to audit engine behavior.
type LogRecord struct {
	Timestamp      time.Time `json:"timestamp"`
	RouteID        string    `json:"route_id"`
	Headway        int       `json:"headway"`
	Duties         int       `json:"duties"`
	Trips          int       `json:"trips"`
	Retries        int       `json:"retries"`
	FallbackDuties int       `json:"fallback_duties"`
	ForcedDelay    int       `json:"forced_delay_minutes"`
	Warnings       []string  `json:"warnings"`
	DurationMS     float64   `json:"duration_ms"`
}

// LogQuery defines filters for retrieving records.
type LogQuery struct {
	Start        time.Time
	End          time.Time
	RouteID      string
	WithWarnings bool
}

func (q LogQuery) match(r LogRecord) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.RouteID != "" && r.RouteID != q.RouteID {
		return false
	}
	if q.WithWarnings && len(r.Warnings) == 0 {
		return false
	}
	return true
}

// LogStore persists LogRecords and supports querying.
type LogStore interface {
	Append(ctx context.Context, rec LogRecord) error
	Query(ctx context.Context, q LogQuery) ([]LogRecord, error)
	Close() error
}
