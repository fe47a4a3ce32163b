// Package bnb is a depth-first branch-and-bound MILP solver over an LP
// relaxation engine.
package bnb

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/kilianp07/unitcommit/core/logger"
	"github.com/kilianp07/unitcommit/core/milp"
	"github.com/kilianp07/unitcommit/core/solver"
	"github.com/kilianp07/unitcommit/infra/solver/gonumlp"
	"github.com/kilianp07/unitcommit/infra/solver/relax"
	"github.com/kilianp07/unitcommit/infra/solver/simplex"
)

// Name is the registry name of this backend.
const Name = "bnb"

// Config tunes the search.
type Config struct {
	// LPEngine selects the relaxation engine: "tableau" (default) or "gonum".
	LPEngine string `json:"lp_engine"`
	// NodeLimit stops the search after this many relaxations. Zero means
	// DefaultNodeLimit.
	NodeLimit int `json:"node_limit"`
	// IntegralityTol is the distance from an integer below which a value
	// counts as integral.
	IntegralityTol float64 `json:"integrality_tol"`
	// AbsGap prunes nodes whose bound is within AbsGap of the incumbent.
	AbsGap float64 `json:"abs_gap"`
	// MaxLPIterations bounds pivots per relaxation for the tableau engine.
	MaxLPIterations int `json:"max_lp_iterations"`
	// LogEvery logs search progress every n nodes at debug level.
	LogEvery int `json:"log_every"`
}

const (
	DefaultNodeLimit      = 200000
	DefaultIntegralityTol = 1e-9
	DefaultAbsGap         = 1e-6
	defaultLogEvery       = 1000
)

// SetDefaults fills missing values.
func (c *Config) SetDefaults() {
	if c.LPEngine == "" {
		c.LPEngine = "tableau"
	}
	if c.NodeLimit == 0 {
		c.NodeLimit = DefaultNodeLimit
	}
	if c.IntegralityTol == 0 {
		c.IntegralityTol = DefaultIntegralityTol
	}
	if c.AbsGap == 0 {
		c.AbsGap = DefaultAbsGap
	}
	if c.LogEvery == 0 {
		c.LogEvery = defaultLogEvery
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	switch c.LPEngine {
	case "tableau", "gonum":
	default:
		return fmt.Errorf("bnb: unknown lp_engine %q", c.LPEngine)
	}
	if c.NodeLimit < 0 || c.IntegralityTol < 0 || c.AbsGap < 0 || c.MaxLPIterations < 0 {
		return errors.New("bnb: limits and tolerances must be >= 0")
	}
	return nil
}

// Solver implements solver.Solver.
type Solver struct {
	cfg    Config
	engine relax.Engine
	log    logger.Logger
}

// New returns a branch-and-bound solver.
func New(cfg Config, log logger.Logger) (*Solver, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log = logger.OrNop(log)
	tab := simplex.New()
	tab.MaxIterations = cfg.MaxLPIterations
	var eng relax.Engine = tab
	if cfg.LPEngine == "gonum" {
		eng = gonumlp.New(tab, log)
	}
	return &Solver{cfg: cfg, engine: eng, log: log}, nil
}

// NewWithEngine returns a solver over a custom relaxation engine.
func NewWithEngine(cfg Config, eng relax.Engine, log logger.Logger) *Solver {
	cfg.SetDefaults()
	return &Solver{cfg: cfg, engine: eng, log: logger.OrNop(log)}
}

// Name implements solver.Solver.
func (s *Solver) Name() string { return Name }

type node struct {
	lo, hi []float64
	depth  int
	bound  float64
}

// Solve implements solver.Solver. Cancelling ctx stops the search with
// StatusInterrupted.
func (s *Solver) Solve(ctx context.Context, p *milp.Problem) (*solver.Solution, error) {
	start := time.Now()
	root := relax.FromProblem(p)
	ints := p.IntegerCols()

	var (
		best    []float64
		found   bool
		bestObj = math.Inf(1)
		stats   solver.Stats
		stack   = []node{{lo: root.Lower, hi: root.Upper, bound: math.Inf(-1)}}
	)
	finish := func(st solver.Status, msg string) *solver.Solution {
		stats.Duration = time.Since(start)
		sol := &solver.Solution{Status: st, Message: msg, Stats: stats}
		if st == solver.StatusOptimal {
			sol.Values = best
			sol.Objective = p.ObjectiveValue(best)
		}
		s.log.Debugw("branch and bound finished", map[string]any{
			"status": st.String(), "nodes": stats.Nodes, "lp_iterations": stats.LPIterations,
			"duration_ms": stats.Duration.Milliseconds(),
		})
		return sol
	}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return finish(solver.StatusInterrupted, err.Error()), nil
		}
		if stats.Nodes >= s.cfg.NodeLimit {
			return finish(solver.StatusNodeLimit, fmt.Sprintf("node limit %d reached, incumbent %g", s.cfg.NodeLimit, bestObj)), nil
		}
		nd := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if nd.bound >= bestObj-s.cfg.AbsGap {
			continue
		}

		res, err := s.engine.Solve(ctx, root.WithBounds(nd.lo, nd.hi))
		stats.Nodes++
		stats.LPIterations += res.Iterations
		if err != nil {
			if ctx.Err() != nil {
				return finish(solver.StatusInterrupted, err.Error()), nil
			}
			return nil, fmt.Errorf("bnb: relaxation at depth %d: %w", nd.depth, err)
		}
		if s.cfg.LogEvery > 0 && stats.Nodes%s.cfg.LogEvery == 0 {
			s.log.Debugf("bnb: %d nodes, %d open, incumbent %g", stats.Nodes, len(stack), bestObj)
		}

		switch res.Status {
		case relax.Optimal:
		case relax.Infeasible:
			continue
		case relax.Unbounded:
			if stats.Nodes == 1 {
				return finish(solver.StatusUnbounded, "lp relaxation is unbounded"), nil
			}
			continue
		default:
			return finish(solver.StatusFailed, fmt.Sprintf("lp relaxation at depth %d: %s", nd.depth, res.Status)), nil
		}
		if res.Objective >= bestObj-s.cfg.AbsGap {
			continue
		}

		j := mostFractional(res.X, ints, s.cfg.IntegralityTol)
		if j < 0 {
			best, found = roundIntegers(res.X, ints), true
			bestObj = res.Objective
			s.log.Debugf("bnb: incumbent %g at node %d depth %d", bestObj, stats.Nodes, nd.depth)
			continue
		}

		v := res.X[j]
		down := node{lo: nd.lo, hi: with(nd.hi, j, math.Floor(v)), depth: nd.depth + 1, bound: res.Objective}
		up := node{lo: with(nd.lo, j, math.Ceil(v)), hi: nd.hi, depth: nd.depth + 1, bound: res.Objective}
		// The rounding direction is explored first.
		if v-math.Floor(v) >= 0.5 {
			stack = append(stack, down, up)
		} else {
			stack = append(stack, up, down)
		}
	}

	if !found {
		return finish(solver.StatusInfeasible, "no integer feasible solution"), nil
	}
	return finish(solver.StatusOptimal, ""), nil
}

// mostFractional returns the integer column farthest from integrality, or -1.
func mostFractional(x []float64, ints []int, tol float64) int {
	j, best := -1, tol
	for _, c := range ints {
		f := math.Abs(x[c] - math.Round(x[c]))
		if f > best {
			j, best = c, f
		}
	}
	return j
}

func roundIntegers(x []float64, ints []int) []float64 {
	out := make([]float64, len(x))
	copy(out, x)
	for _, c := range ints {
		out[c] = math.Round(out[c])
	}
	return out
}

// with returns a copy of s with s[j] = v. Sibling nodes never share a
// modified slice.
func with(s []float64, j int, v float64) []float64 {
	out := append([]float64(nil), s...)
	out[j] = v
	return out
}
