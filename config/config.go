// Package config loads the ucplan configuration file.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/unitcommit/core/metrics"
	"github.com/kilianp07/unitcommit/core/monitoring"
	"github.com/kilianp07/unitcommit/core/runlog"
	"github.com/kilianp07/unitcommit/core/solver"
	"github.com/kilianp07/unitcommit/infra/mqtt"
)

type Config struct {
	Solver   solver.Config     `json:"solver"`
	Planning PlanningConfig    `json:"planning"`
	RunLog   runlog.Config     `json:"runlog"`
	Metrics  metrics.Config    `json:"metrics"`
	MQTT     mqtt.Config       `json:"mqtt"`
	Sentry   monitoring.Config `json:"sentry"`
}

// Load reads path, applies K_-prefixed environment overrides (K_SOLVER__TYPE
// sets solver.type), fills defaults and validates. An empty path loads
// defaults and the environment only.
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
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills missing values in every section.
func (c *Config) SetDefaults() {
	c.Solver.SetDefaults()
	c.Planning.SetDefaults()
	c.RunLog.SetDefaults()
	c.MQTT.SetDefaults()
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.Solver.Validate(); err != nil {
		return err
	}
	if err := c.Planning.Validate(); err != nil {
		return err
	}
	if err := c.RunLog.Validate(); err != nil {
		return err
	}
	if err := c.MQTT.Validate(); err != nil {
		return err
	}
	if err := c.Sentry.Validate(); err != nil {
		return fmt.Errorf("sentry: %w", err)
	}
	return nil
}
