package config

import (
	"fmt"
	"time"

	"github.com/kilianp07/dutyplan/auth"
)

// ServerConfig defines the HTTP listener and its credentials.
type ServerConfig struct {
	Addr            string        `json:"addr"`
	APIToken        string        `json:"api_token"`
	JWTSecret       string        `json:"jwt_secret"`
	CORSOrigins     []string      `json:"cors_origins"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
}

// SetDefaults applies sane defaults.
func (c *ServerConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":4000"
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
}

// Validate checks mandatory fields.
func (c ServerConfig) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr is required")
	}
	return nil
}

// Auth returns the credentials accepted by the API.
func (c ServerConfig) Auth() auth.Conf {
	return auth.Conf{APIToken: c.APIToken, JWTSecret: c.JWTSecret}
}
