package solver

import (
	"github.com/kilianp07/unitcommit/core/factory"
)

var registry = factory.NewRegistry[Solver]()

// Register adds a backend factory identified by name.
func Register(name string, f factory.Factory[Solver]) error {
	return registry.Register(name, f)
}

// New creates the configured backend. Unknown types and factory failures are
// reported as *UnavailableError.
func New(cfg Config) (Solver, error) {
	if cfg.Type == "" {
		cfg.Type = DefaultType
	}
	s, err := registry.Create(factory.ModuleConfig{Type: cfg.Type, Conf: cfg.Conf})
	if err != nil {
		return nil, &UnavailableError{Solver: cfg.Type, Err: err}
	}
	return s, nil
}

// Types lists the registered backend names.
func Types() []string { return registry.Types() }
