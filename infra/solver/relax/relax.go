// Package relax describes the continuous relaxations solved at each
// branch-and-bound node and the engines that solve them.
package relax

import (
	"context"
	"fmt"

	"github.com/kilianp07/unitcommit/core/milp"
)

// LP is min Objective·x subject to Rows and Lower <= x <= Upper. Rows are
// shared with the originating problem and must not be modified.
type LP struct {
	Objective []float64
	Rows      []milp.Constraint
	Lower     []float64
	Upper     []float64
}

// FromProblem relaxes integrality of p, keeping domain bounds.
func FromProblem(p *milp.Problem) *LP {
	obj := make([]float64, p.NumVars())
	for _, t := range p.Objective {
		obj[t.Col] += t.Coef
	}
	lo, hi := p.Bounds()
	return &LP{Objective: obj, Rows: p.Rows, Lower: lo, Upper: hi}
}

// WithBounds returns a shallow copy of lp with replaced bounds.
func (lp *LP) WithBounds(lo, hi []float64) *LP {
	return &LP{Objective: lp.Objective, Rows: lp.Rows, Lower: lo, Upper: hi}
}

// Value evaluates the objective at x.
func (lp *LP) Value(x []float64) float64 {
	var s float64
	for j, c := range lp.Objective {
		s += c * x[j]
	}
	return s
}

// Status is the outcome of an LP solve.
type Status int

const (
	Optimal Status = iota
	Infeasible
	Unbounded
	IterationLimit
)

func (s Status) String() string {
	switch s {
	case Optimal:
		return "optimal"
	case Infeasible:
		return "infeasible"
	case Unbounded:
		return "unbounded"
	case IterationLimit:
		return "iteration_limit"
	default:
		return fmt.Sprintf("lp_status(%d)", int(s))
	}
}

// Result of an LP solve. X and Objective are set only when Optimal.
type Result struct {
	Status     Status
	X          []float64
	Objective  float64
	Iterations int
}

// Engine solves LP relaxations. A cancelled context is returned as the
// context's error.
type Engine interface {
	Solve(ctx context.Context, lp *LP) (Result, error)
}
