package metrics

import (
	"context"
	"time"

	"github.com/kilianp07/dutyplan/core/events"
	coremetrics "github.com/kilianp07/dutyplan/core/metrics"
	"github.com/kilianp07/dutyplan/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records route changes
// on sinks implementing RouteChangeRecorder. It stops when the context is
// canceled or the bus is closed; the returned channel is closed on exit.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus, sink coremetrics.MetricsSink) <-chan struct{} {
	r, ok := sink.(coremetrics.RouteChangeRecorder)
	if !ok {
		r = nil
	}
	return eventbus.Listen(ctx, bus, func(ev eventbus.Event) {
		e, ok := ev.(events.RouteChangedEvent)
		if !ok || r == nil {
			return
		}
		_ = r.RecordRouteChange(coremetrics.RouteChangeEvent{RouteID: e.RouteID, Action: e.Action, Time: time.Now()})
	})
}
