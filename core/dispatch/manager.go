package dispatch

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/kilianp07/dutyplan/core/dispatch/logging"
	"github.com/kilianp07/dutyplan/core/events"
	"github.com/kilianp07/dutyplan/core/logger"
	"github.com/kilianp07/dutyplan/core/metrics"
	"github.com/kilianp07/dutyplan/core/model"
	"github.com/kilianp07/dutyplan/internal/eventbus"
)

// Manager runs the engine for stored routes and reports every computation
// to the configured metrics sink, event bus and run log.
type Manager struct {
	cfg     Config
	logger  logger.Logger
	metrics metrics.MetricsSink
	bus     eventbus.EventBus
	store   logging.LogStore
	workers int
	mu      sync.Mutex
}

// NamedRoute pairs a route with its identifier for batch computations.
type NamedRoute struct {
	ID    string
	Route model.RouteConfig
}

// RoutePlan is the result of one batch entry.
type RoutePlan struct {
	ID   string
	Plan Plan
}

// NewManager creates a new manager. A nil sink defaults to metrics.NopSink
// and a nil bus disables event publication.
func NewManager(cfg Config, sink metrics.MetricsSink, bus eventbus.EventBus, log logger.Logger) (*Manager, error) {
	if log == nil {
		return nil, fmt.Errorf("dispatch: nil logger provided to NewManager")
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("dispatch: %w", err)
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Manager{cfg: cfg, logger: log, metrics: sink, bus: bus, workers: 4}, nil
}

// SetLogStore configures the store used to persist run records.
func (m *Manager) SetLogStore(store logging.LogStore) {
	m.mu.Lock()
	m.store = store
	m.mu.Unlock()
}

// SetWorkers bounds the number of routes computed in parallel by ScheduleAll.
func (m *Manager) SetWorkers(n int) {
	if n < 1 {
		n = 1
	}
	m.mu.Lock()
	m.workers = n
	m.mu.Unlock()
}

// Config returns the engine constants in use.
func (m *Manager) Config() Config { return m.cfg }

// Schedule computes the timetable of route and records the run.
func (m *Manager) Schedule(ctx context.Context, routeID string, route model.RouteConfig) (Plan, error) {
	if err := ctx.Err(); err != nil {
		return Plan{}, err
	}
	start := time.Now()
	plan := Compute(route, m.cfg)
	elapsed := time.Since(start)

	computeDuration.Observe(elapsed.Seconds())
	schedulesComputed.WithLabelValues(outcomeLabel(plan)).Inc()
	dutyRetries.Add(float64(plan.Stats.Retries))
	dutyFallbacks.Add(float64(plan.Stats.FallbackDuties))
	scheduleWarnings.Add(float64(len(plan.Result.Warnings)))

	m.logger.Infow("schedule computed", map[string]any{
		"route_id": routeID,
		"headway":  plan.Headway,
		"duties":   plan.Stats.Duties,
		"trips":    plan.Stats.Trips,
		"retries":  plan.Stats.Retries,
		"fallback": plan.Stats.FallbackDuties,
		"warnings": len(plan.Result.Warnings),
		"elapsed":  elapsed.String(),
	})
	for _, w := range plan.Result.Warnings {
		m.logger.Debugw("schedule warning", map[string]any{"route_id": routeID, "warning": w})
	}

	m.record(routeID, plan, elapsed)
	if m.bus != nil {
		m.bus.Publish(events.ScheduleComputedEvent{
			RouteID:        routeID,
			Headway:        plan.Headway,
			Duties:         plan.Stats.Duties,
			Trips:          plan.Stats.Trips,
			Retries:        plan.Stats.Retries,
			FallbackDuties: plan.Stats.FallbackDuties,
			Warnings:       plan.Result.Warnings,
			Duration:       elapsed,
		})
	}
	m.appendLog(ctx, routeID, plan, elapsed)
	return plan, nil
}

// ScheduleAll computes every route on a bounded worker pool. Results are
// ordered by route ID. The first error cancels the remaining work.
func (m *Manager) ScheduleAll(ctx context.Context, routes []NamedRoute) ([]RoutePlan, error) {
	m.mu.Lock()
	workers := m.workers
	m.mu.Unlock()
	p := pool.NewWithResults[RoutePlan]().WithContext(ctx).WithCancelOnError().WithMaxGoroutines(workers)
	for _, r := range routes {
		p.Go(func(ctx context.Context) (RoutePlan, error) {
			plan, err := m.Schedule(ctx, r.ID, r.Route)
			if err != nil {
				return RoutePlan{}, fmt.Errorf("route %s: %w", r.ID, err)
			}
			return RoutePlan{ID: r.ID, Plan: plan}, nil
		})
	}
	out, err := p.Wait()
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Manager) record(routeID string, plan Plan, elapsed time.Duration) {
	now := time.Now()
	rec := metrics.ScheduleRecord{
		RouteID:        routeID,
		Headway:        plan.Headway,
		Duties:         plan.Stats.Duties,
		Trips:          plan.Stats.Trips,
		Breaks:         plan.Stats.Breaks,
		Retries:        plan.Stats.Retries,
		FallbackDuties: plan.Stats.FallbackDuties,
		ForcedDelay:    plan.Stats.ForcedDelay,
		Warnings:       len(plan.Result.Warnings),
		Duration:       elapsed,
		Time:           now,
	}
	if err := m.metrics.RecordSchedule(rec); err != nil {
		m.logger.Errorf("metrics error: %v", err)
	}
	wr, ok := m.metrics.(metrics.WarningRecorder)
	if !ok || len(plan.Result.Warnings) == 0 {
		return
	}
	ws := make([]metrics.DutyWarning, len(plan.Result.Warnings))
	for i, w := range plan.Result.Warnings {
		ws[i] = metrics.DutyWarning{RouteID: routeID, Message: w, Time: now}
	}
	if err := wr.RecordWarnings(ws); err != nil {
		m.logger.Errorf("metrics warnings error: %v", err)
	}
}

func (m *Manager) appendLog(ctx context.Context, routeID string, plan Plan, elapsed time.Duration) {
	m.mu.Lock()
	store := m.store
	m.mu.Unlock()
	if store == nil {
		return
	}
	rec := logging.LogRecord{
		Timestamp:      time.Now(),
		RouteID:        routeID,
		Headway:        plan.Headway,
		Duties:         plan.Stats.Duties,
		Trips:          plan.Stats.Trips,
		Retries:        plan.Stats.Retries,
		FallbackDuties: plan.Stats.FallbackDuties,
		ForcedDelay:    plan.Stats.ForcedDelay,
		Warnings:       plan.Result.Warnings,
		DurationMS:     float64(elapsed.Microseconds()) / 1000,
	}
	if err := store.Append(ctx, rec); err != nil {
		m.logger.Errorf("run log append: %v", err)
	}
}

// Close releases resources held by the manager.
func (m *Manager) Close() error {
	if m.bus != nil {
		m.bus.Close()
	}
	m.mu.Lock()
	store := m.store
	m.store = nil
	m.mu.Unlock()
	if store != nil {
		return store.Close()
	}
	return nil
}
