package routes

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/kilianp07/dutyplan/api/respond"
	"github.com/kilianp07/dutyplan/core/dispatch"
	"github.com/kilianp07/dutyplan/core/events"
	"github.com/kilianp07/dutyplan/core/logger"
	"github.com/kilianp07/dutyplan/core/model"
	"github.com/kilianp07/dutyplan/core/routestore"
	"github.com/kilianp07/dutyplan/internal/eventbus"
	"github.com/kilianp07/dutyplan/pkg/export"
)

const maxBodyBytes = 1 << 20

// Handler serves the route CRUD and schedule endpoints.
type Handler struct {
	store   routestore.Store
	manager *dispatch.Manager
	bus     eventbus.EventBus
	log     logger.Logger
}

// NewHandler returns a Handler. bus may be nil.
func NewHandler(store routestore.Store, manager *dispatch.Manager, bus eventbus.EventBus, log logger.Logger) *Handler {
	return &Handler{store: store, manager: manager, bus: bus, log: log}
}

// Register mounts the endpoints on mux. Mutating endpoints go through protect.
func (h *Handler) Register(mux *http.ServeMux, protect func(http.Handler) http.Handler) {
	mux.HandleFunc("GET /api/bus-routes", h.list)
	mux.Handle("POST /api/bus-routes", protect(http.HandlerFunc(h.create)))
	mux.HandleFunc("GET /api/bus-routes/{id}", h.get)
	mux.Handle("PUT /api/bus-routes/{id}", protect(http.HandlerFunc(h.update)))
	mux.Handle("DELETE /api/bus-routes/{id}", protect(http.HandlerFunc(h.remove)))
	mux.HandleFunc("GET /api/bus-routes/{id}/schedule", h.schedule)
	mux.HandleFunc("GET /api/bus-routes/{id}/schedule/summary", h.summary)
	mux.HandleFunc("POST /api/schedules/preview", h.preview)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	routes, err := h.store.List(r.Context())
	if err != nil {
		h.log.Errorf("list routes: %v", err)
		respond.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	respond.JSON(w, http.StatusOK, routes)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	route, err := h.store.Get(r.Context(), id)
	if h.storeError(w, err, id, "Cannot find route") {
		return
	}
	respond.JSON(w, http.StatusOK, route)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.decode(w, r)
	if !ok {
		return
	}
	route, err := h.store.Create(r.Context(), doc)
	if err != nil {
		h.log.Errorf("create route: %v", err)
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	h.publish(route.ID, events.RouteCreated)
	respond.JSON(w, http.StatusCreated, route)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	doc, ok := h.decode(w, r)
	if !ok {
		return
	}
	route, err := h.store.Update(r.Context(), id, doc)
	if h.storeError(w, err, id, "Route not found") {
		return
	}
	h.publish(id, events.RouteUpdated)
	respond.JSON(w, http.StatusOK, route)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if h.storeError(w, h.store.Delete(r.Context(), id), id, "Route not found") {
		return
	}
	h.publish(id, events.RouteDeleted)
	respond.JSON(w, http.StatusOK, map[string]string{"message": "Deleted Bus Route"})
}

func (h *Handler) plan(w http.ResponseWriter, r *http.Request) (routestore.Route, dispatch.Plan, bool) {
	id := r.PathValue("id")
	route, err := h.store.Get(r.Context(), id)
	if h.storeError(w, err, id, "Cannot find route") {
		return routestore.Route{}, dispatch.Plan{}, false
	}
	plan, err := h.manager.Schedule(r.Context(), id, route.Normalize())
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, fmt.Sprintf("Failed to generate schedule: %v", err))
		return routestore.Route{}, dispatch.Plan{}, false
	}
	return route, plan, true
}

func (h *Handler) schedule(w http.ResponseWriter, r *http.Request) {
	route, plan, ok := h.plan(w, r)
	if !ok {
		return
	}
	switch format := r.URL.Query().Get("format"); format {
	case "", "json":
		respond.JSON(w, http.StatusOK, plan.Result)
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "schedule-"+route.ID+".csv"))
		if err := export.WriteCSV(w, plan.Result); err != nil {
			h.log.Errorf("csv export %s: %v", route.ID, err)
		}
	case "pdf":
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "schedule-"+route.ID+".pdf"))
		if err := export.WritePDF(w, title(route), plan.Result); err != nil {
			h.log.Errorf("pdf export %s: %v", route.ID, err)
		}
	default:
		respond.Error(w, http.StatusBadRequest, "unsupported format "+format)
	}
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	_, plan, ok := h.plan(w, r)
	if !ok {
		return
	}
	respond.JSON(w, http.StatusOK, dispatch.Summarize(plan))
}

// preview computes a schedule from the posted record without storing it or
// recording the run.
func (h *Handler) preview(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.decode(w, r)
	if !ok {
		return
	}
	plan := dispatch.Compute(doc.Normalize(), h.manager.Config())
	respond.JSON(w, http.StatusOK, plan.Result)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (model.RouteDocument, bool) {
	var doc model.RouteDocument
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&doc); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid route body: "+err.Error())
		return doc, false
	}
	if err := doc.Validate(); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return doc, false
	}
	return doc, true
}

// storeError writes the response for err and reports whether there was one.
func (h *Handler) storeError(w http.ResponseWriter, err error, id, notFound string) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, routestore.ErrNotFound):
		h.log.Warnf("route %s not found", id)
		respond.Error(w, http.StatusNotFound, notFound)
	default:
		h.log.Errorf("route %s: %v", id, err)
		respond.Error(w, http.StatusInternalServerError, err.Error())
	}
	return true
}

func (h *Handler) publish(id, action string) {
	if h.bus != nil {
		h.bus.Publish(events.RouteChangedEvent{RouteID: id, Action: action})
	}
}

func title(r routestore.Route) string {
	if r.RouteName == "" {
		return "Route " + r.RouteNumber
	}
	return fmt.Sprintf("Route %s %s", r.RouteNumber, r.RouteName)
}
