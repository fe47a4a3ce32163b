// Package solver registers the built-in MILP backends with the core solver
// registry. Import it for side effects.
package solver

import (
	"github.com/kilianp07/unitcommit/core/factory"
	coresolver "github.com/kilianp07/unitcommit/core/solver"
	"github.com/kilianp07/unitcommit/infra/logger"
	"github.com/kilianp07/unitcommit/infra/solver/bnb"
	"github.com/kilianp07/unitcommit/infra/solver/glpk"
)

// init registers built-in solver backends.
func init() {
	_ = coresolver.Register(bnb.Name, func(conf map[string]any) (coresolver.Solver, error) {
		var c bnb.Config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return bnb.New(c, logger.New("bnb"))
	})

	_ = coresolver.Register(glpk.Name, func(conf map[string]any) (coresolver.Solver, error) {
		var c glpk.Config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return glpk.New(c, logger.New("glpk")), nil
	})
}
