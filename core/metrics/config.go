package metrics

import (
	"fmt"

	"github.com/kilianp07/dutyplan/core/factory"
)

// Config selects the schedule metrics sinks and the optional /metrics
// listener address.
type Config struct {
	Sinks          []factory.ModuleConfig `json:"sinks" yaml:"sinks"`
	PrometheusAddr string                 `json:"prometheus_addr" yaml:"prometheus_addr"`
}

// Validate rejects sink entries without a type.
func (c Config) Validate() error {
	for i, s := range c.Sinks {
		if s.Type == "" {
			return fmt.Errorf("sinks[%d]: type is required", i)
		}
	}
	return nil
}
