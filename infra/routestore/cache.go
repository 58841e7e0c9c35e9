package routestore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	redisstore "github.com/eko/gocache/store/redis/v4"
	"github.com/redis/go-redis/v9"

	"github.com/kilianp07/dutyplan/core/logger"
	"github.com/kilianp07/dutyplan/core/model"
	core "github.com/kilianp07/dutyplan/core/routestore"
)

// Cacher is the subset of a gocache cache used by CachedStore.
type Cacher interface {
	Get(ctx context.Context, key any) (string, error)
	Set(ctx context.Context, key any, object string, options ...store.Option) error
	Delete(ctx context.Context, key any) error
}

// CachedStore serves Get from a cache and keeps it in sync on writes.
// Cache failures are logged and never fail the call.
type CachedStore struct {
	core.Store
	cache  Cacher
	closer func() error
	log    logger.Logger
}

// NewRedisCache returns a string cache backed by redis.
func NewRedisCache(addr, password string, db int, ttl time.Duration) (*cache.Cache[string], *redis.Client) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	s := redisstore.NewRedis(client, store.WithExpiration(ttl))
	return cache.New[string](s), client
}

// NewCachedStore wraps inner with c. closer, when set, runs after the inner
// store is closed.
func NewCachedStore(inner core.Store, c Cacher, closer func() error, log logger.Logger) *CachedStore {
	return &CachedStore{Store: inner, cache: c, closer: closer, log: log}
}

func cacheKey(id string) string { return "dutyplan:route:" + id }

func (s *CachedStore) Get(ctx context.Context, id string) (core.Route, error) {
	if raw, err := s.cache.Get(ctx, cacheKey(id)); err == nil {
		var r core.Route
		if err := json.Unmarshal([]byte(raw), &r); err == nil {
			return r, nil
		}
	}
	r, err := s.Store.Get(ctx, id)
	if err != nil {
		return core.Route{}, err
	}
	s.put(ctx, r)
	return r, nil
}

func (s *CachedStore) Create(ctx context.Context, doc model.RouteDocument) (core.Route, error) {
	r, err := s.Store.Create(ctx, doc)
	if err != nil {
		return core.Route{}, err
	}
	s.put(ctx, r)
	return r, nil
}

func (s *CachedStore) Update(ctx context.Context, id string, doc model.RouteDocument) (core.Route, error) {
	r, err := s.Store.Update(ctx, id, doc)
	if err != nil {
		return core.Route{}, err
	}
	s.put(ctx, r)
	return r, nil
}

func (s *CachedStore) Delete(ctx context.Context, id string) error {
	if err := s.cache.Delete(ctx, cacheKey(id)); err != nil {
		s.log.Debugf("route cache delete %s: %v", id, err)
	}
	return s.Store.Delete(ctx, id)
}

func (s *CachedStore) Close() error {
	err := s.Store.Close()
	if s.closer != nil {
		if cerr := s.closer(); err == nil {
			err = cerr
		}
	}
	return err
}

func (s *CachedStore) put(ctx context.Context, r core.Route) {
	b, err := json.Marshal(r)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, cacheKey(r.ID), string(b)); err != nil {
		s.log.Warnf("route cache set %s: %v", r.ID, err)
	}
}
