// Package routestore defines persistence for route records. The in-memory
// store lives here; database backends are registered by infra/routestore
// through the same factory registry.
package routestore
