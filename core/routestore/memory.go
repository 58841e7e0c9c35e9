package routestore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"

	"github.com/kilianp07/dutyplan/core/model"
)

// MemoryStore keeps routes in a map. Records are deep copied on the way in
// and out so callers never share nested pointers with the store.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]Route
	now  func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string]Route{}, now: time.Now}
}

func clone(r Route) (Route, error) {
	var out Route
	if err := copier.CopyWithOption(&out, &r, copier.Option{DeepCopy: true}); err != nil {
		return Route{}, fmt.Errorf("copy route: %w", err)
	}
	return out, nil
}

func (s *MemoryStore) List(ctx context.Context) ([]Route, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]Route, 0, len(s.data))
	for _, r := range s.data {
		c, err := clone(r)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	SortNewestFirst(res)
	return res, nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (Route, error) {
	if err := ctx.Err(); err != nil {
		return Route{}, err
	}
	s.mu.RLock()
	r, ok := s.data[id]
	s.mu.RUnlock()
	if !ok {
		return Route{}, ErrNotFound
	}
	return clone(r)
}

func (s *MemoryStore) Create(ctx context.Context, doc model.RouteDocument) (Route, error) {
	if err := ctx.Err(); err != nil {
		return Route{}, err
	}
	now := s.now().UTC()
	r, err := clone(Route{ID: uuid.NewString(), RouteDocument: doc, CreatedAt: now, UpdatedAt: now})
	if err != nil {
		return Route{}, err
	}
	s.mu.Lock()
	s.data[r.ID] = r
	s.mu.Unlock()
	return clone(r)
}

func (s *MemoryStore) Update(ctx context.Context, id string, doc model.RouteDocument) (Route, error) {
	if err := ctx.Err(); err != nil {
		return Route{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.data[id]
	if !ok {
		return Route{}, ErrNotFound
	}
	r, err := clone(Route{ID: id, RouteDocument: doc, CreatedAt: prev.CreatedAt, UpdatedAt: s.now().UTC()})
	if err != nil {
		return Route{}, err
	}
	s.data[id] = r
	return clone(r)
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[id]; !ok {
		return ErrNotFound
	}
	delete(s.data, id)
	return nil
}

func (s *MemoryStore) Close() error { return nil }

// SortNewestFirst orders routes by creation time, newest first, with the id
// as tie breaker.
func SortNewestFirst(rs []Route) {
	sort.SliceStable(rs, func(i, j int) bool {
		if !rs[i].CreatedAt.Equal(rs[j].CreatedAt) {
			return rs[i].CreatedAt.After(rs[j].CreatedAt)
		}
		return rs[i].ID < rs[j].ID
	})
}
