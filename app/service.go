package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/kilianp07/dutyplan/api"
	"github.com/kilianp07/dutyplan/config"
	"github.com/kilianp07/dutyplan/core/dispatch"
	"github.com/kilianp07/dutyplan/core/dispatch/logging"
	coremetrics "github.com/kilianp07/dutyplan/core/metrics"
	coremqtt "github.com/kilianp07/dutyplan/core/mqtt"
	"github.com/kilianp07/dutyplan/core/routestore"
	"github.com/kilianp07/dutyplan/infra/logger"
	"github.com/kilianp07/dutyplan/infra/metrics"
	"github.com/kilianp07/dutyplan/infra/mqtt"
	inframstore "github.com/kilianp07/dutyplan/infra/routestore"
	"github.com/kilianp07/dutyplan/internal/eventbus"
)

// remoteNotifier is a notifier that also accepts recompute requests.
type remoteNotifier interface {
	coremqtt.Notifier
	OnRecompute(fn coremqtt.RecomputeFunc)
}

var newNotifier = func(cfg mqtt.Config) (remoteNotifier, error) {
	return mqtt.NewPahoNotifier(cfg)
}

// Service wires the route store, the schedule manager and the HTTP API.
type Service struct {
	Manager  *dispatch.Manager
	Routes   routestore.Store
	Runs     logging.LogStore
	cfg      *config.Config
	bus      eventbus.EventBus
	sink     coremetrics.MetricsSink
	notifier remoteNotifier
	log      logger.Logger
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")

	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	routes, err := inframstore.Open(cfg.Storage, logger.New("routestore"))
	if err != nil {
		return nil, fmt.Errorf("route store: %w", err)
	}
	runs, err := OpenRunLog(cfg.Logging)
	if err != nil {
		_ = routes.Close()
		return nil, fmt.Errorf("run log: %w", err)
	}

	bus := eventbus.New()
	manager, err := dispatch.NewManager(cfg.Engine, sink, bus, logger.New("dispatch"))
	if err != nil {
		_ = routes.Close()
		if runs != nil {
			_ = runs.Close()
		}
		return nil, fmt.Errorf("dispatch manager: %w", err)
	}
	if runs != nil {
		manager.SetLogStore(runs)
	}

	svc := &Service{Manager: manager, Routes: routes, Runs: runs, cfg: cfg, bus: bus, sink: sink, log: logg}
	if cfg.Notify.Enabled {
		n, err := newNotifier(cfg.Notify)
		if err != nil {
			_ = svc.Close()
			return nil, fmt.Errorf("mqtt notifier: %w", err)
		}
		n.OnRecompute(svc.Recompute)
		svc.notifier = n
	}
	return svc, nil
}

// OpenRunLog opens the configured run log store. It returns nil when the
// run log is disabled.
func OpenRunLog(cfg config.LoggingConfig) (logging.LogStore, error) {
	switch cfg.Backend {
	case "none":
		return nil, nil
	case "sqlite":
		return logging.NewSQLiteStore(cfg.Path)
	default:
		return logging.NewJSONLStore(cfg.Path)
	}
}

// Handler returns the HTTP API of the service.
func (s *Service) Handler() http.Handler {
	log := logger.New("api")
	access := zerolog.Nop()
	if zl, ok := log.(*logger.ZerologLogger); ok {
		access = zl.Zerolog()
	}
	return api.NewRouter(api.Options{
		Routes:      s.Routes,
		Manager:     s.Manager,
		Runs:        s.Runs,
		Bus:         s.bus,
		Auth:        s.cfg.Server.Auth(),
		CORSOrigins: s.cfg.Server.CORSOrigins,
		Log:         log,
		AccessLog:   access,
	})
}

// Recompute plans a stored route again. Failures are logged.
func (s *Service) Recompute(ctx context.Context, routeID string) {
	route, err := s.Routes.Get(ctx, routeID)
	if err != nil {
		s.log.Warnf("recompute %s: %v", routeID, err)
		return
	}
	if _, err := s.Manager.Schedule(ctx, routeID, route.Normalize()); err != nil {
		s.log.Errorf("recompute %s: %v", routeID, err)
	}
}

// ScheduleAll computes every stored route.
func (s *Service) ScheduleAll(ctx context.Context) ([]dispatch.RoutePlan, error) {
	routes, err := s.Routes.List(ctx)
	if err != nil {
		return nil, err
	}
	named := make([]dispatch.NamedRoute, len(routes))
	for i, r := range routes {
		named[i] = dispatch.NamedRoute{ID: r.ID, Route: r.Normalize()}
	}
	return s.Manager.ScheduleAll(ctx, named)
}

// startListeners subscribes the metrics collector and the notifier to the
// bus. Subscriptions are in place when it returns.
func (s *Service) startListeners(ctx context.Context) {
	metrics.StartEventCollector(ctx, s.bus, s.sink)
	if s.notifier != nil {
		mqtt.Forward(ctx, s.bus, s.notifier, logger.New("notify"))
	}
}

// Run starts the service and blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	s.startListeners(ctx)
	if addr := s.cfg.Metrics.PrometheusAddr; addr != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, addr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	srv := &http.Server{Addr: s.cfg.Server.Addr, Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("serving API on %s", s.cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	if s.notifier != nil {
		s.notifier.Close()
	}
	var errs []error
	if err := s.Manager.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.Routes.Close(); err != nil {
		errs = append(errs, err)
	}
	if c, ok := s.sink.(interface{ Close() }); ok {
		c.Close()
	}
	return errors.Join(errs...)
}
