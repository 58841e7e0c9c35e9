package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/dutyplan/config"
	"github.com/kilianp07/dutyplan/core/dispatch/logging"
	"github.com/kilianp07/dutyplan/core/events"
	"github.com/kilianp07/dutyplan/core/model"
	coremqtt "github.com/kilianp07/dutyplan/core/mqtt"
	"github.com/kilianp07/dutyplan/infra/mqtt"
)

type fakeNotifier struct {
	*mqtt.MockNotifier
	mu        sync.Mutex
	recompute coremqtt.RecomputeFunc
}

func (f *fakeNotifier) OnRecompute(fn coremqtt.RecomputeFunc) {
	f.mu.Lock()
	f.recompute = fn
	f.mu.Unlock()
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.Server.Addr = "127.0.0.1:0"
	cfg.Logging.Path = filepath.Join(t.TempDir(), "runs.jsonl")
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())
	return cfg
}

func sampleDoc() model.RouteDocument {
	return model.RouteDocument{
		RouteNumber:      "7",
		RouteName:        "Harbour",
		FromTerminal:     "A",
		ToTerminal:       "B",
		Leg1:             model.LegDoc{Kilometers: 4, TimePerKm: 5},
		Leg2:             &model.LegDoc{Kilometers: 4, TimePerKm: 5},
		BusesAssigned:    1,
		ServiceStartTime: "06:00",
	}
}

func TestService_ScheduleAllAndRunLog(t *testing.T) {
	svc, err := New(testConfig(t))
	require.NoError(t, err)
	defer svc.Close()

	ctx := context.Background()
	a, err := svc.Routes.Create(ctx, sampleDoc())
	require.NoError(t, err)
	empty := sampleDoc()
	empty.BusesAssigned = 0
	b, err := svc.Routes.Create(ctx, empty)
	require.NoError(t, err)

	plans, err := svc.ScheduleAll(ctx)
	require.NoError(t, err)
	require.Len(t, plans, 2)
	byID := map[string]int{}
	for _, p := range plans {
		byID[p.ID] = p.Plan.Stats.Duties
	}
	assert.Equal(t, 1, byID[a.ID])
	assert.Equal(t, 0, byID[b.ID])

	recs, err := svc.Runs.Query(ctx, logging.LogQuery{RouteID: b.ID})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, []string{"Buses Assigned must be greater than 0."}, recs[0].Warnings)
}

func TestService_RecomputeForwardsSchedule(t *testing.T) {
	fn := &fakeNotifier{MockNotifier: mqtt.NewMockNotifier()}
	orig := newNotifier
	newNotifier = func(mqtt.Config) (remoteNotifier, error) { return fn, nil }
	defer func() { newNotifier = orig }()

	cfg := testConfig(t)
	cfg.Notify.Enabled = true
	cfg.Notify.Broker = "tcp://localhost:1883"
	svc, err := New(cfg)
	require.NoError(t, err)
	defer svc.Close()
	require.NotNil(t, fn.recompute)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.startListeners(ctx)

	r, err := svc.Routes.Create(context.Background(), sampleDoc())
	require.NoError(t, err)
	svc.bus.Publish(events.RouteChangedEvent{RouteID: r.ID, Action: events.RouteCreated})
	fn.recompute(context.Background(), r.ID)
	fn.recompute(context.Background(), "missing")

	assert.Eventually(t, func() bool {
		changes, schedules := fn.Counts()
		return changes == 1 && schedules == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestService_RunStopsOnCancel(t *testing.T) {
	svc, err := New(testConfig(t))
	require.NoError(t, err)
	defer svc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("service did not stop")
	}
}

func TestService_Handler(t *testing.T) {
	svc, err := New(testConfig(t))
	require.NoError(t, err)
	defer svc.Close()

	rr := httptest.NewRecorder()
	svc.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestOpenRunLog(t *testing.T) {
	store, err := OpenRunLog(config.LoggingConfig{Backend: "none"})
	require.NoError(t, err)
	assert.Nil(t, store)

	store, err = OpenRunLog(config.LoggingConfig{Backend: "sqlite", Path: filepath.Join(t.TempDir(), "runs.db")})
	require.NoError(t, err)
	assert.IsType(t, &logging.SQLiteStore{}, store)
	require.NoError(t, store.Close())
}
