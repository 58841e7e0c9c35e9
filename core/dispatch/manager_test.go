package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/dutyplan/core/dispatch/logging"
	"github.com/kilianp07/dutyplan/core/events"
	"github.com/kilianp07/dutyplan/core/metrics"
	"github.com/kilianp07/dutyplan/core/model"
	"github.com/kilianp07/dutyplan/infra/logger"
	"github.com/kilianp07/dutyplan/internal/eventbus"
)

type recordingSink struct {
	mu       sync.Mutex
	records  []metrics.ScheduleRecord
	warnings []metrics.DutyWarning
}

func (s *recordingSink) RecordSchedule(rec metrics.ScheduleRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

func (s *recordingSink) RecordWarnings(ws []metrics.DutyWarning) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.warnings = append(s.warnings, ws...)
	return nil
}

type memStore struct {
	mu   sync.Mutex
	recs []logging.LogRecord
}

func (m *memStore) Append(_ context.Context, rec logging.LogRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs = append(m.recs, rec)
	return nil
}

func (m *memStore) Query(context.Context, logging.LogQuery) ([]logging.LogRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]logging.LogRecord(nil), m.recs...), nil
}

func (m *memStore) Close() error { return nil }

func TestNewManager_Errors(t *testing.T) {
	if _, err := NewManager(DefaultConfig(), nil, nil, nil); err == nil {
		t.Fatal("expected error for nil logger")
	}
	cfg := DefaultConfig()
	cfg.MinDutyMinutes = -5
	if _, err := NewManager(cfg, nil, nil, logger.NopLogger{}); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestManager_Schedule(t *testing.T) {
	reg := prometheus.NewRegistry()
	ResetMetrics(reg)

	sink := &recordingSink{}
	bus := eventbus.New()
	sub := bus.Subscribe()
	store := &memStore{}

	m, err := NewManager(DefaultConfig(), sink, bus, logger.NopLogger{})
	require.NoError(t, err)
	m.SetLogStore(store)

	r := baseRoute()
	r.CrewDutyRules = model.CrewDutyRules{HasBreak: true, BreakLocation: "Nowhere", BreakDuration: 30, BreakWindowStart: 150, BreakWindowEnd: 240}
	plan, err := m.Schedule(context.Background(), "r1", r)
	require.NoError(t, err)
	assert.Equal(t, 1, plan.Stats.Duties)

	require.Len(t, sink.records, 1)
	assert.Equal(t, "r1", sink.records[0].RouteID)
	assert.Equal(t, 11, sink.records[0].Trips)
	assert.Equal(t, 1, sink.records[0].Warnings)
	require.Len(t, sink.warnings, 1)

	select {
	case ev := <-sub:
		sc, ok := ev.(events.ScheduleComputedEvent)
		require.True(t, ok, "unexpected event %T", ev)
		assert.Equal(t, "r1", sc.RouteID)
		assert.Equal(t, 40, sc.Headway)
	case <-time.After(time.Second):
		t.Fatal("no event published")
	}

	recs, err := store.Query(context.Background(), logging.LogQuery{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "r1", recs[0].RouteID)
	assert.Len(t, recs[0].Warnings, 1)

	assert.Equal(t, 1.0, testutil.ToFloat64(schedulesComputed.WithLabelValues("warnings")))
	assert.Equal(t, 1.0, testutil.ToFloat64(scheduleWarnings))
	assert.Equal(t, 1, testutil.CollectAndCount(computeDuration))

	require.NoError(t, m.Close())
}

func TestManager_ScheduleCanceled(t *testing.T) {
	ResetMetrics(prometheus.NewRegistry())
	m, err := NewManager(DefaultConfig(), nil, nil, logger.NopLogger{})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = m.Schedule(ctx, "r1", baseRoute())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestManager_ScheduleAll(t *testing.T) {
	ResetMetrics(prometheus.NewRegistry())
	m, err := NewManager(DefaultConfig(), nil, nil, logger.NopLogger{})
	require.NoError(t, err)
	m.SetWorkers(2)

	empty := baseRoute()
	empty.BusesAssigned = 0
	routes := []NamedRoute{{ID: "c", Route: baseRoute()}, {ID: "a", Route: empty}, {ID: "b", Route: baseRoute()}}
	out, err := m.ScheduleAll(context.Background(), routes)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, "a", out[0].ID)
	assert.Equal(t, "b", out[1].ID)
	assert.Equal(t, "c", out[2].ID)
	assert.Equal(t, []string{WarnNoBuses}, out[0].Plan.Result.Warnings)
	assert.Equal(t, 1.0, testutil.ToFloat64(schedulesComputed.WithLabelValues("empty")))
	assert.Equal(t, 2.0, testutil.ToFloat64(schedulesComputed.WithLabelValues("ok")))
}
