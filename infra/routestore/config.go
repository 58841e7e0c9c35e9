package routestore

import (
	"fmt"
	"time"
)

// MongoConfig selects the MongoDB database.
type MongoConfig struct {
	URI      string `json:"uri"`
	Database string `json:"database"`
}

// CacheConfig enables the redis read-through cache.
type CacheConfig struct {
	Enabled  bool          `json:"enabled"`
	Addr     string        `json:"addr"`
	Password string        `json:"password"`
	DB       int           `json:"db"`
	TTL      time.Duration `json:"ttl"`
}

// Config selects and configures the route store backend.
type Config struct {
	Backend string      `json:"backend"`
	DSN     string      `json:"dsn"`
	Mongo   MongoConfig `json:"mongo"`
	Cache   CacheConfig `json:"cache"`
}

// SetDefaults fills unset values.
func (c *Config) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "memory"
	}
	if c.Backend == "sqlite" && c.DSN == "" {
		c.DSN = "dutyplan.db"
	}
	if c.Mongo.URI == "" {
		c.Mongo.URI = "mongodb://localhost:27017/"
	}
	if c.Mongo.Database == "" {
		c.Mongo.Database = "dutyplan"
	}
	if c.Cache.Addr == "" {
		c.Cache.Addr = "localhost:6379"
	}
	if c.Cache.TTL <= 0 {
		c.Cache.TTL = 10 * time.Minute
	}
}

// Validate checks the backend name and its connection settings.
func (c Config) Validate() error {
	switch c.Backend {
	case "memory", "sqlite", "mongo":
	case "postgres", "mysql":
		if c.DSN == "" {
			return fmt.Errorf("storage.dsn required for %s", c.Backend)
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Backend)
	}
	return nil
}

// moduleConf flattens c into the raw map passed to the store factories.
func (c Config) moduleConf() map[string]any {
	conf := map[string]any{"dsn": c.DSN}
	if c.Backend == "mongo" {
		conf["dsn"] = c.Mongo.URI
		conf["database"] = c.Mongo.Database
	}
	return conf
}
