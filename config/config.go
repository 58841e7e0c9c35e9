package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/dutyplan/core/dispatch"
	"github.com/kilianp07/dutyplan/core/metrics"
	"github.com/kilianp07/dutyplan/infra/mqtt"
	"github.com/kilianp07/dutyplan/infra/routestore"
)

type Config struct {
	Server  ServerConfig      `json:"server"`
	Storage routestore.Config `json:"storage"`
	Engine  dispatch.Config   `json:"engine"`
	Metrics metrics.Config    `json:"metrics"`
	Logging LoggingConfig     `json:"logging"`
	Notify  mqtt.Config       `json:"notify"`
}

// Load reads the file at path, when given, then applies K_ environment
// overrides (K_SERVER__ADDR sets server.addr), defaults and validation.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.applyLegacyEnv(k)
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyLegacyEnv honours PORT and MONGO_URI unless the matching keys were
// set explicitly.
func (c *Config) applyLegacyEnv(k *koanf.Koanf) {
	if port := os.Getenv("PORT"); port != "" && !k.Exists("server.addr") {
		c.Server.Addr = ":" + port
	}
	if uri := os.Getenv("MONGO_URI"); uri != "" && !k.Exists("storage.backend") {
		c.Storage.Backend = "mongo"
		c.Storage.Mongo.URI = uri
	}
}

// SetDefaults fills every section.
func (c *Config) SetDefaults() {
	c.Server.SetDefaults()
	c.Storage.SetDefaults()
	c.Engine.SetDefaults()
	c.Logging.SetDefaults()
	if c.Notify.Enabled {
		c.Notify.SetDefaults()
	}
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.Engine.Validate(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if c.Notify.Enabled {
		if err := c.Notify.Validate(); err != nil {
			return fmt.Errorf("notify: %w", err)
		}
	}
	return nil
}
