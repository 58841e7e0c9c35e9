package dispatch

import "fmt"

// Config holds the engine constants. Zero values are replaced by defaults.
type Config struct {
	// MaxRetries bounds strict attempts per duty before forced fit.
	MaxRetries int `json:"max_retries"`
	// DriftCapMinutes bounds the total start shift applied by retries.
	DriftCapMinutes int `json:"drift_cap_minutes"`
	// ShiftCapMinutes bounds the shift applied by a single retry.
	ShiftCapMinutes int `json:"shift_cap_minutes"`
	// PreparationMinutes separates calling time from the first movement.
	PreparationMinutes int `json:"preparation_minutes"`
	// CheckingMinutes separates the last movement from duty end.
	CheckingMinutes int `json:"checking_minutes"`
	// DefaultHeadway is used when no headway can be derived.
	DefaultHeadway int `json:"default_headway"`
	// MinDutyMinutes pads short duties up to a paid minimum. 0 disables it.
	MinDutyMinutes int `json:"min_duty_minutes"`
}

// DefaultConfig returns the standard engine constants.
func DefaultConfig() Config {
	c := Config{}
	c.SetDefaults()
	return c
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.MaxRetries <= 0 {
		c.MaxRetries = 50
	}
	if c.DriftCapMinutes <= 0 {
		c.DriftCapMinutes = 15
	}
	if c.ShiftCapMinutes <= 0 {
		c.ShiftCapMinutes = 10
	}
	if c.PreparationMinutes <= 0 {
		c.PreparationMinutes = 15
	}
	if c.CheckingMinutes <= 0 {
		c.CheckingMinutes = 15
	}
	if c.DefaultHeadway <= 0 {
		c.DefaultHeadway = 10
	}
}

// Validate rejects inconsistent settings.
func (c Config) Validate() error {
	if c.MinDutyMinutes < 0 {
		return fmt.Errorf("min_duty_minutes cannot be negative")
	}
	if c.ShiftCapMinutes > c.DriftCapMinutes {
		return fmt.Errorf("shift_cap_minutes (%d) exceeds drift_cap_minutes (%d)", c.ShiftCapMinutes, c.DriftCapMinutes)
	}
	return nil
}
