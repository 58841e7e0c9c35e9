// Package events defines the planning related events emitted on the event bus.
//
// Available event types:
//   - ScheduleComputedEvent: a route schedule was generated
//   - RouteChangedEvent: a stored route was created, updated or deleted
package events
