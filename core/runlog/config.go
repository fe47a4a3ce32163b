package runlog

import "fmt"

// Backends accepted in Config.Backend.
const (
	BackendNone   = "none"
	BackendJSONL  = "jsonl"
	BackendSQLite = "sqlite"
)

// Config selects and configures the run log.
type Config struct {
	Backend string `json:"backend"`
	Path    string `json:"path"`
	// Rotation applies to the jsonl backend. MaxSizeMB of zero disables it.
	MaxSizeMB  int `json:"max_size_mb"`
	MaxBackups int `json:"max_backups"`
	MaxAgeDays int `json:"max_age_days"`
}

// SetDefaults fills missing values.
func (c *Config) SetDefaults() {
	if c.Backend == "" {
		c.Backend = BackendJSONL
	}
	if c.Path == "" {
		switch c.Backend {
		case BackendSQLite:
			c.Path = "runs.db"
		case BackendJSONL:
			c.Path = "runs.jsonl"
		}
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendNone, BackendJSONL, BackendSQLite:
	default:
		return fmt.Errorf("runlog: unknown backend %q", c.Backend)
	}
	if c.MaxSizeMB < 0 || c.MaxBackups < 0 || c.MaxAgeDays < 0 {
		return fmt.Errorf("runlog: rotation settings must be >= 0")
	}
	return nil
}

// Open returns the store described by cfg.
func Open(cfg Config) (Store, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var (
		s   Store
		err error
	)
	switch cfg.Backend {
	case BackendSQLite:
		s, err = NewSQLiteStore(cfg.Path)
	case BackendJSONL:
		if cfg.MaxSizeMB > 0 {
			s, err = NewRotatingJSONLStore(cfg.Path, cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
		} else {
			s, err = NewJSONLStore(cfg.Path)
		}
	default:
		return NopStore{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("runlog: open %s store: %w", cfg.Backend, err)
	}
	return s, nil
}
