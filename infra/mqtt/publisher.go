package mqtt

import (
	"context"
	"sync"

	"github.com/kilianp07/dutyplan/core/events"
	coremqtt "github.com/kilianp07/dutyplan/core/mqtt"
	"github.com/kilianp07/dutyplan/infra/logger"
	"github.com/kilianp07/dutyplan/internal/eventbus"
)

// Notifier mirrors the core mqtt.Notifier interface.
type Notifier = coremqtt.Notifier

// Forward relays bus events to n until ctx is canceled or the bus closes.
func Forward(ctx context.Context, bus eventbus.EventBus, n Notifier, log logger.Logger) <-chan struct{} {
	return eventbus.Listen(ctx, bus, func(ev eventbus.Event) {
		var err error
		switch e := ev.(type) {
		case events.RouteChangedEvent:
			err = n.NotifyRouteChange(e)
		case events.ScheduleComputedEvent:
			err = n.NotifySchedule(e)
		default:
			return
		}
		if err != nil && log != nil {
			log.Errorf("notify: %v", err)
		}
	})
}

// MockNotifier records notifications in memory for tests.
type MockNotifier struct {
	mu        sync.Mutex
	Changes   []events.RouteChangedEvent
	Schedules []events.ScheduleComputedEvent
	Err       error
	Closed    bool
}

// NewMockNotifier creates a new MockNotifier.
func NewMockNotifier() *MockNotifier { return &MockNotifier{} }

func (m *MockNotifier) NotifyRouteChange(ev events.RouteChangedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Changes = append(m.Changes, ev)
	return nil
}

func (m *MockNotifier) NotifySchedule(ev events.ScheduleComputedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Schedules = append(m.Schedules, ev)
	return nil
}

func (m *MockNotifier) Close() {
	m.mu.Lock()
	m.Closed = true
	m.mu.Unlock()
}

// Counts returns the number of recorded notifications.
func (m *MockNotifier) Counts() (changes, schedules int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Changes), len(m.Schedules)
}
