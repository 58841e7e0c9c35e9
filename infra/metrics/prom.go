package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/dutyplan/core/metrics"
)

// PromSink exposes per-route schedule figures as Prometheus metrics.
type PromSink struct {
	duties   *prometheus.GaugeVec
	trips    *prometheus.GaugeVec
	warnings *prometheus.GaugeVec
	changes  *prometheus.CounterVec
}

// NewPromSink registers route metrics on the default Prometheus registerer.
// The Prometheus server should be started separately using cfg.PrometheusAddr.
func NewPromSink(cfg coremetrics.Config) (coremetrics.MetricsSink, error) {
	return NewPromSinkWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(_ coremetrics.Config, reg prometheus.Registerer) (coremetrics.MetricsSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	duties, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "route_schedule_duties",
		Help: "Duties in the latest schedule of a route",
	}, []string{"route_id"}))
	if err != nil {
		return nil, err
	}
	trips, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "route_schedule_trips",
		Help: "Trips in the latest schedule of a route",
	}, []string{"route_id"}))
	if err != nil {
		return nil, err
	}
	warnings, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "route_schedule_warnings",
		Help: "Warnings attached to the latest schedule of a route",
	}, []string{"route_id"}))
	if err != nil {
		return nil, err
	}
	changes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "route_changes_total",
		Help: "Route mutations by action",
	}, []string{"action"})
	if err := reg.Register(changes); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			changes = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	return &PromSink{duties: duties, trips: trips, warnings: warnings, changes: changes}, nil
}

func registerGaugeVec(reg prometheus.Registerer, g *prometheus.GaugeVec) (*prometheus.GaugeVec, error) {
	if err := reg.Register(g); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector.(*prometheus.GaugeVec), nil
		}
		return nil, err
	}
	return g, nil
}

// RecordSchedule sets the gauges of the computed route.
func (s *PromSink) RecordSchedule(rec coremetrics.ScheduleRecord) error {
	s.duties.WithLabelValues(rec.RouteID).Set(float64(rec.Duties))
	s.trips.WithLabelValues(rec.RouteID).Set(float64(rec.Trips))
	s.warnings.WithLabelValues(rec.RouteID).Set(float64(rec.Warnings))
	return nil
}

// RecordRouteChange counts the mutation and drops gauges of deleted routes.
func (s *PromSink) RecordRouteChange(ev coremetrics.RouteChangeEvent) error {
	s.changes.WithLabelValues(ev.Action).Inc()
	if ev.Action == "deleted" {
		s.duties.DeleteLabelValues(ev.RouteID)
		s.trips.DeleteLabelValues(ev.RouteID)
		s.warnings.DeleteLabelValues(ev.RouteID)
	}
	return nil
}
