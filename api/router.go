// Package api exposes the route store and the schedule engine over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	apidispatch "github.com/kilianp07/dutyplan/api/dispatch"
	"github.com/kilianp07/dutyplan/api/respond"
	"github.com/kilianp07/dutyplan/api/routes"
	"github.com/kilianp07/dutyplan/auth"
	"github.com/kilianp07/dutyplan/core/dispatch"
	"github.com/kilianp07/dutyplan/core/dispatch/logging"
	"github.com/kilianp07/dutyplan/core/logger"
	"github.com/kilianp07/dutyplan/core/routestore"
	"github.com/kilianp07/dutyplan/internal/eventbus"
)

// Options wires the router to its dependencies. Runs and Bus may be nil.
type Options struct {
	Routes      routestore.Store
	Manager     *dispatch.Manager
	Runs        logging.LogStore
	Bus         eventbus.EventBus
	Auth        auth.Conf
	CORSOrigins []string
	Log         logger.Logger
	AccessLog   zerolog.Logger
}

// NewRouter builds the HTTP handler with access logging and CORS applied.
func NewRouter(o Options) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	routes.NewHandler(o.Routes, o.Manager, o.Bus, o.Log).Register(mux, o.Auth.Middleware)

	mux.Handle("GET /api/schedules/logs", o.Auth.Middleware(apidispatch.NewLogHandler(o.Runs)))

	origins := o.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	})

	var h http.Handler = c.Handler(mux)
	h = hlog.AccessHandler(func(r *http.Request, status, size int, d time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("bytes", size).
			Dur("latency", d).
			Msg("request")
	})(h)
	h = hlog.RequestIDHandler("req_id", "X-Request-Id")(h)
	return hlog.NewHandler(o.AccessLog)(h)
}
