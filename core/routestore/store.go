package routestore

import (
	"context"
	"errors"
	"time"

	"github.com/kilianp07/dutyplan/core/model"
)

// ErrNotFound is returned when no route matches the identifier.
var ErrNotFound = errors.New("route not found")

// Route is a stored route record.
type Route struct {
	ID                  string `json:"_id" bson:"_id"`
	model.RouteDocument `bson:",inline"`
	CreatedAt           time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Store persists route records. List returns the newest record first.
type Store interface {
	List(ctx context.Context) ([]Route, error)
	Get(ctx context.Context, id string) (Route, error)
	Create(ctx context.Context, doc model.RouteDocument) (Route, error)
	Update(ctx context.Context, id string, doc model.RouteDocument) (Route, error)
	Delete(ctx context.Context, id string) error
	Close() error
}
