package routes

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/dutyplan/core/dispatch"
	"github.com/kilianp07/dutyplan/core/events"
	"github.com/kilianp07/dutyplan/core/routestore"
	"github.com/kilianp07/dutyplan/infra/logger"
	"github.com/kilianp07/dutyplan/internal/eventbus"
)

const routeBody = `{
	"routeNumber": "7",
	"routeName": "Harbour",
	"fromTerminal": "A",
	"toTerminal": "B",
	"leg1": {"kilometers": "4", "timePerKm": "5"},
	"leg2": {"kilometers": 4, "timePerKm": 5},
	"busesAssigned": "1",
	"serviceStartTime": "06:00"
}`

type fixture struct {
	mux   *http.ServeMux
	store *routestore.MemoryStore
	sub   <-chan eventbus.Event
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	m, err := dispatch.NewManager(dispatch.DefaultConfig(), nil, nil, logger.NopLogger{})
	require.NoError(t, err)
	bus := eventbus.New()
	t.Cleanup(bus.Close)
	store := routestore.NewMemoryStore()
	mux := http.NewServeMux()
	NewHandler(store, m, bus, logger.NopLogger{}).Register(mux, func(h http.Handler) http.Handler { return h })
	return fixture{mux: mux, store: store, sub: bus.Subscribe()}
}

func (f fixture) do(method, url, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, url, bytes.NewBufferString(body))
	rr := httptest.NewRecorder()
	f.mux.ServeHTTP(rr, req)
	return rr
}

func (f fixture) event(t *testing.T) events.RouteChangedEvent {
	t.Helper()
	select {
	case ev := <-f.sub:
		rc, ok := ev.(events.RouteChangedEvent)
		require.True(t, ok, "unexpected event %T", ev)
		return rc
	case <-time.After(time.Second):
		t.Fatal("no event published")
	}
	return events.RouteChangedEvent{}
}

func TestRoutesCRUD(t *testing.T) {
	f := newFixture(t)

	rr := f.do(http.MethodPost, "/api/bus-routes", routeBody)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var created routestore.Route
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Harbour", created.RouteName)
	assert.Equal(t, events.RouteChangedEvent{RouteID: created.ID, Action: events.RouteCreated}, f.event(t))

	rr = f.do(http.MethodGet, "/api/bus-routes", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0]["_id"])

	rr = f.do(http.MethodPut, "/api/bus-routes/"+created.ID, strings.Replace(routeBody, "Harbour", "Quay", 1))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	got, err := f.store.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Quay", got.RouteName)
	assert.Equal(t, events.RouteUpdated, f.event(t).Action)

	rr = f.do(http.MethodDelete, "/api/bus-routes/"+created.ID, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"message":"Deleted Bus Route"}`, rr.Body.String())
	assert.Equal(t, events.RouteDeleted, f.event(t).Action)

	rr = f.do(http.MethodGet, "/api/bus-routes/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"message":"Cannot find route"}`, rr.Body.String())
	rr = f.do(http.MethodPut, "/api/bus-routes/"+created.ID, routeBody)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	rr = f.do(http.MethodDelete, "/api/bus-routes/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRoutes_BadInput(t *testing.T) {
	f := newFixture(t)
	rr := f.do(http.MethodPost, "/api/bus-routes", "{not json")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = f.do(http.MethodPost, "/api/bus-routes", `{"routeNumber":"1"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "routeName")

	rr = f.do(http.MethodPost, "/api/bus-routes", strings.Replace(routeBody, `"busesAssigned": "1"`, `"busesAssigned": "many"`, 1))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRouteSchedule(t *testing.T) {
	f := newFixture(t)
	rr := f.do(http.MethodPost, "/api/bus-routes", routeBody)
	require.Equal(t, http.StatusCreated, rr.Code)
	var created routestore.Route
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	base := "/api/bus-routes/" + created.ID + "/schedule"

	rr = f.do(http.MethodGet, base, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var out struct {
		Schedules map[string]map[string][]map[string]any `json:"schedules"`
		Warnings  []string                               `json:"warnings"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	require.Contains(t, out.Schedules, "S1")
	require.Contains(t, out.Schedules["S1"], "Bus 1 - S1")
	evs := out.Schedules["S1"]["Bus 1 - S1"]
	assert.Equal(t, "Calling Time", evs[0]["type"])
	assert.Equal(t, "Duty End", evs[len(evs)-1]["type"])
	assert.NotNil(t, out.Warnings)

	rr = f.do(http.MethodGet, base+"?format=csv", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/csv", rr.Header().Get("Content-Type"))
	recs, err := csv.NewReader(rr.Body).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, "shift", recs[0][0])
	assert.Greater(t, len(recs), len(evs))

	rr = f.do(http.MethodGet, base+"?format=pdf", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, bytes.HasPrefix(rr.Body.Bytes(), []byte("%PDF-")))

	rr = f.do(http.MethodGet, base+"?format=xml", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = f.do(http.MethodGet, base+"/summary", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var sum dispatch.Summary
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &sum))
	assert.Equal(t, 40, sum.Headway)
	assert.Equal(t, 1, sum.Stats.Duties)

	rr = f.do(http.MethodGet, "/api/bus-routes/missing/schedule", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestSchedulePreview(t *testing.T) {
	f := newFixture(t)
	rr := f.do(http.MethodPost, "/api/schedules/preview", strings.Replace(routeBody, `"busesAssigned": "1"`, `"busesAssigned": 0`, 1))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.JSONEq(t, `{"schedules":{},"warnings":["Buses Assigned must be greater than 0."]}`, rr.Body.String())

	list, err := f.store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}
