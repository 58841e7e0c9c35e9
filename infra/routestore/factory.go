package routestore

import (
	"context"
	"fmt"

	"github.com/kilianp07/dutyplan/core/factory"
	"github.com/kilianp07/dutyplan/core/logger"
	core "github.com/kilianp07/dutyplan/core/routestore"
)

type connConf struct {
	DSN      string `json:"dsn"`
	Database string `json:"database"`
}

func sqlFactory(dialect string) factory.Factory[core.Store] {
	return func(raw map[string]any) (core.Store, error) {
		var c connConf
		if err := factory.Decode(raw, &c); err != nil {
			return nil, err
		}
		return OpenSQL(context.Background(), dialect, c.DSN)
	}
}

// init registers the database backends next to the in-memory store.
func init() {
	_ = core.RegisterStore("sqlite", sqlFactory(DialectSQLite))
	_ = core.RegisterStore("postgres", sqlFactory(DialectPostgres))
	_ = core.RegisterStore("mysql", sqlFactory(DialectMySQL))
	_ = core.RegisterStore("mongo", func(raw map[string]any) (core.Store, error) {
		var c connConf
		if err := factory.Decode(raw, &c); err != nil {
			return nil, err
		}
		return OpenMongo(context.Background(), c.DSN, c.Database)
	})
}

// Open builds the configured store, wrapped in the redis cache when enabled.
func Open(cfg Config, log logger.Logger) (core.Store, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s, err := core.NewStore(factory.ModuleConfig{Type: cfg.Backend, Conf: cfg.moduleConf()})
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Backend, err)
	}
	if !cfg.Cache.Enabled {
		return s, nil
	}
	c, client := NewRedisCache(cfg.Cache.Addr, cfg.Cache.Password, cfg.Cache.DB, cfg.Cache.TTL)
	log.Infof("route cache enabled on %s", cfg.Cache.Addr)
	return NewCachedStore(s, c, client.Close, log), nil
}
