// Package gonumlp solves LP relaxations with gonum's simplex implementation.
package gonumlp

import (
	"context"
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/kilianp07/unitcommit/core/logger"
	"github.com/kilianp07/unitcommit/core/milp"
	"github.com/kilianp07/unitcommit/infra/solver/relax"
)

const (
	// DefaultTol is the tolerance passed to lp.Simplex.
	DefaultTol = 1e-9
	// DefaultMaxCells caps the dense standard-form matrix built by lp.Convert.
	DefaultMaxCells = 4 << 20
)

var (
	errTooManyEqualities = errors.New("gonumlp: more equality rows than columns")
	errTooLarge          = errors.New("gonumlp: relaxation too large for a dense tableau")
)

// lpSimplex points to the function used to solve the standard-form LP. It can
// be overridden in tests to simulate solver failures.
var lpSimplex = lp.Simplex

// Engine implements relax.Engine on top of lp.Convert and lp.Simplex. The
// gonum solver requires a full-rank constraint matrix; when it reports a
// numerical or rank problem the relaxation is handed to Fallback, as are
// relaxations whose converted matrix would exceed MaxCells entries.
type Engine struct {
	Tol      float64
	MaxCells int
	Fallback relax.Engine
	Log      logger.Logger
}

// New returns an engine falling back to fb.
func New(fb relax.Engine, log logger.Logger) *Engine {
	return &Engine{Tol: DefaultTol, MaxCells: DefaultMaxCells, Fallback: fb, Log: logger.OrNop(log)}
}

// Solve implements relax.Engine.
func (e *Engine) Solve(ctx context.Context, r *relax.LP) (relax.Result, error) {
	if err := ctx.Err(); err != nil {
		return relax.Result{}, err
	}
	n := len(r.Objective)
	if e.MaxCells > 0 {
		if rows, cols := standardSize(r); rows*cols > e.MaxCells {
			if e.Fallback == nil {
				return relax.Result{}, errTooLarge
			}
			e.Log.Debugf("gonum simplex skipped for a %dx%d standard form, using fallback engine", rows, cols)
			return e.Fallback.Solve(ctx, r)
		}
	}
	var gRows, aRows [][]float64
	var h, b []float64

	dense := func(ex milp.Expr, scale float64) []float64 {
		row := make([]float64, n)
		for _, t := range ex {
			row[t.Col] += scale * t.Coef
		}
		return row
	}
	for _, c := range r.Rows {
		if len(c.Expr) == 0 {
			if !c.Satisfied(nil, e.Tol) {
				return relax.Result{Status: relax.Infeasible}, nil
			}
			continue
		}
		switch c.Sense {
		case milp.LE:
			gRows = append(gRows, dense(c.Expr, 1))
			h = append(h, c.RHS)
		case milp.GE:
			gRows = append(gRows, dense(c.Expr, -1))
			h = append(h, -c.RHS)
		default:
			aRows = append(aRows, dense(c.Expr, 1))
			b = append(b, c.RHS)
		}
	}
	for j := 0; j < n; j++ {
		lo, hi := r.Lower[j], r.Upper[j]
		if lo > hi {
			return relax.Result{Status: relax.Infeasible}, nil
		}
		if lo == hi {
			row := make([]float64, n)
			row[j] = 1
			aRows = append(aRows, row)
			b = append(b, lo)
			continue
		}
		if !math.IsInf(lo, -1) {
			row := make([]float64, n)
			row[j] = -1
			gRows = append(gRows, row)
			h = append(h, -lo)
		}
		if !math.IsInf(hi, 1) {
			row := make([]float64, n)
			row[j] = 1
			gRows = append(gRows, row)
			h = append(h, hi)
		}
	}

	if len(gRows)+len(aRows) == 0 {
		// Every column is free and unconstrained.
		for _, c := range r.Objective {
			if c != 0 {
				return relax.Result{Status: relax.Unbounded}, nil
			}
		}
		return relax.Result{Status: relax.Optimal, X: make([]float64, n)}, nil
	}
	if len(aRows) > 2*n {
		// lp.Simplex panics when equalities outnumber the split columns.
		if e.Fallback == nil {
			return relax.Result{}, errTooManyEqualities
		}
		return e.Fallback.Solve(ctx, r)
	}

	cStd, aStd, bStd := lp.Convert(r.Objective, toDense(gRows, n), h, toDense(aRows, n), b)
	xStd, err := e.simplex(ctx, cStd, aStd, bStd)
	switch {
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		return relax.Result{}, err
	case err == nil:
	case errors.Is(err, lp.ErrInfeasible):
		return relax.Result{Status: relax.Infeasible}, nil
	case errors.Is(err, lp.ErrUnbounded):
		return relax.Result{Status: relax.Unbounded}, nil
	case e.Fallback != nil:
		e.Log.Debugf("gonum simplex failed (%v), using fallback engine", err)
		return e.Fallback.Solve(ctx, r)
	default:
		return relax.Result{}, err
	}

	x := make([]float64, n)
	for j := range x {
		x[j] = xStd[j] - xStd[n+j]
	}
	return relax.Result{Status: relax.Optimal, X: x, Objective: r.Value(x)}, nil
}

type simplexResult struct {
	x   []float64
	err error
}

// simplex runs lpSimplex until it returns or ctx is done. lp.Simplex cannot be
// interrupted, so a cancelled call keeps running in its goroutine and its
// result is discarded.
func (e *Engine) simplex(ctx context.Context, c []float64, a mat.Matrix, b []float64) ([]float64, error) {
	solve, tol := lpSimplex, e.Tol
	done := make(chan simplexResult, 1)
	go func() {
		_, x, err := solve(c, a, b, tol, nil)
		done <- simplexResult{x: x, err: err}
	}()
	select {
	case res := <-done:
		return res.x, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// standardSize returns the shape of the matrix lp.Convert would build for r:
// one row per inequality and equality, and split columns plus one slack per
// inequality.
func standardSize(r *relax.LP) (rows, cols int) {
	var ineq, eq int
	for _, c := range r.Rows {
		switch {
		case len(c.Expr) == 0:
		case c.Sense == milp.EQ:
			eq++
		default:
			ineq++
		}
	}
	for j := range r.Lower {
		lo, hi := r.Lower[j], r.Upper[j]
		if lo == hi {
			eq++
			continue
		}
		if !math.IsInf(lo, -1) {
			ineq++
		}
		if !math.IsInf(hi, 1) {
			ineq++
		}
	}
	return ineq + eq, 2*len(r.Objective) + ineq
}

// toDense returns nil for an empty row set, which lp.Convert accepts.
func toDense(rows [][]float64, n int) mat.Matrix {
	if len(rows) == 0 {
		return nil
	}
	m := mat.NewDense(len(rows), n, nil)
	for i, row := range rows {
		m.SetRow(i, row)
	}
	return m
}
