// Package factory provides a small generic registry used to instantiate
// pluggable modules (solver backends, metrics sinks) from configuration. A
// module is named by a type string and configured by a map of raw settings
// that its factory decodes into a typed struct.
//
// Example usage:
//
//	reg := factory.NewRegistry[solver.Solver]()
//	reg.Register("bnb", func(conf map[string]any) (solver.Solver, error) {
//	    var c bnb.Config
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return bnb.New(c, nil)
//	})
//	s, err := reg.Create(factory.ModuleConfig{Type: "bnb", Conf: map[string]any{"node_limit": 5000}})
package factory
