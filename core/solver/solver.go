// Package solver defines the boundary between the planner and MILP backends.
package solver

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/unitcommit/core/milp"
)

// Status is the outcome reported by a backend.
type Status int

const (
	StatusOptimal Status = iota
	StatusInfeasible
	StatusUnbounded
	// StatusInterrupted means the context was cancelled or the time limit hit.
	StatusInterrupted
	// StatusNodeLimit means the search stopped at its node budget.
	StatusNodeLimit
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusInfeasible:
		return "infeasible"
	case StatusUnbounded:
		return "unbounded"
	case StatusInterrupted:
		return "interrupted"
	case StatusNodeLimit:
		return "node_limit"
	case StatusFailed:
		return "error"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Stats carries backend effort counters.
type Stats struct {
	Nodes        int
	LPIterations int
	Duration     time.Duration
}

// Solution is what a backend returns. Values covers every column of the
// problem when Status is StatusOptimal and is nil otherwise.
type Solution struct {
	Status    Status
	Objective float64
	Values    []float64
	Message   string
	Stats     Stats
}

// Solver solves one MILP. Non-optimal outcomes are reported in the Solution;
// the error return is reserved for backend failures.
type Solver interface {
	Name() string
	Solve(ctx context.Context, p *milp.Problem) (*Solution, error)
}

// Err maps a non-optimal solution to its typed error.
func (s *Solution) Err(backend string) error {
	switch s.Status {
	case StatusOptimal:
		return nil
	case StatusInfeasible:
		return &InfeasibleError{Solver: backend, Message: s.Message}
	case StatusUnbounded:
		return &UnboundedError{Solver: backend, Message: s.Message}
	default:
		return &StatusError{Solver: backend, Status: s.Status, Message: s.Message}
	}
}
