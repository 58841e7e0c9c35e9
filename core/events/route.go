package events

// Route change actions.
const (
	RouteCreated = "created"
	RouteUpdated = "updated"
	RouteDeleted = "deleted"
)

// RouteChangedEvent is emitted when a stored route is created, updated or
// deleted.
type RouteChangedEvent struct {
	RouteID string
	Action  string
}
