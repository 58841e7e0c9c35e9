package dispatch

import (
	"math"

	"github.com/kilianp07/dutyplan/core/model"
)

// Headway returns the minimum spacing between two same-direction
// departures for the route.
func Headway(route model.RouteConfig, cfg Config) int {
	cfg.SetDefaults()
	if m, ok := route.Frequency.Override(); ok {
		return m
	}
	if route.BusesAssigned <= 0 {
		return cfg.DefaultHeadway
	}
	roundTrip := route.Leg1.Minutes() + route.Leg2.Minutes()
	h := int(math.Ceil(roundTrip / float64(route.BusesAssigned)))
	if h <= 0 {
		return cfg.DefaultHeadway
	}
	return h
}
