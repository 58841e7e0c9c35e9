package dispatch

import (
	"net/http"
	"strconv"
	"time"

	"github.com/kilianp07/dutyplan/api/respond"
	"github.com/kilianp07/dutyplan/core/dispatch/logging"
)

// NewLogHandler returns an HTTP handler exposing schedule run records via
// GET /api/schedules/logs. Filters: start and end (RFC3339), route_id and
// warnings=true.
func NewLogHandler(store logging.LogStore) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			respond.Error(w, http.StatusNotFound, "run log disabled")
			return
		}
		q := logging.LogQuery{RouteID: r.URL.Query().Get("route_id")}
		for key, dst := range map[string]*time.Time{"start": &q.Start, "end": &q.End} {
			s := r.URL.Query().Get(key)
			if s == "" {
				continue
			}
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				respond.Error(w, http.StatusBadRequest, "invalid "+key+": "+err.Error())
				return
			}
			*dst = t
		}
		if s := r.URL.Query().Get("warnings"); s != "" {
			v, err := strconv.ParseBool(s)
			if err != nil {
				respond.Error(w, http.StatusBadRequest, "invalid warnings flag")
				return
			}
			q.WithWarnings = v
		}
		records, err := store.Query(r.Context(), q)
		if err != nil {
			respond.Error(w, http.StatusInternalServerError, err.Error())
			return
		}
		if records == nil {
			records = []logging.LogRecord{}
		}
		respond.JSON(w, http.StatusOK, records)
	})
}
