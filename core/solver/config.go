package solver

import (
	"fmt"
	"time"
)

// DefaultType is the backend used when none is configured.
const DefaultType = "bnb"

// Config selects a backend and its options.
type Config struct {
	Type             string         `json:"type"`
	Conf             map[string]any `json:"conf"`
	TimeLimitSeconds float64        `json:"time_limit_seconds"`
}

// SetDefaults fills missing values.
func (c *Config) SetDefaults() {
	if c.Type == "" {
		c.Type = DefaultType
	}
	if c.TimeLimitSeconds == 0 {
		c.TimeLimitSeconds = 300
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.TimeLimitSeconds < 0 {
		return fmt.Errorf("solver.time_limit_seconds must be >= 0")
	}
	return nil
}

// TimeLimit returns the configured limit as a duration.
func (c Config) TimeLimit() time.Duration {
	return time.Duration(c.TimeLimitSeconds * float64(time.Second))
}
