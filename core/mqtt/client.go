package mqtt

import (
	"context"

	"github.com/kilianp07/dutyplan/core/events"
)

// Notifier pushes planning events to subscribers outside the process.
type Notifier interface {
	// NotifyRouteChange announces a created, updated or deleted route.
	NotifyRouteChange(ev events.RouteChangedEvent) error
	// NotifySchedule announces a freshly computed schedule summary.
	NotifySchedule(ev events.ScheduleComputedEvent) error
	Close()
}

// RecomputeFunc is invoked when a remote client asks for a route to be
// planned again.
type RecomputeFunc func(ctx context.Context, routeID string)
