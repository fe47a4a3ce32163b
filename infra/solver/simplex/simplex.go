// Package simplex is a dense two-phase tableau simplex for LP relaxations.
// Upper bounds become explicit rows and redundant equality rows are dropped
// after phase one, so the constraint matrix may be rank deficient.
package simplex

import (
	"context"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/kilianp07/unitcommit/core/milp"
	"github.com/kilianp07/unitcommit/infra/solver/relax"
)

const (
	defaultCostTol     = 1e-9
	defaultPivotTol    = 1e-9
	defaultFeasTol     = 1e-7
	degenerateSwitch   = 50
	ctxCheckInterval   = 100
	ratioTieTol        = 1e-12
	minIterationBudget = 10000
)

// Engine implements relax.Engine.
type Engine struct {
	// MaxIterations bounds pivots per solve. Zero derives a budget from size.
	MaxIterations int
	CostTol       float64
	PivotTol      float64
	FeasTol       float64
}

// New returns an engine with default tolerances.
func New() *Engine {
	return &Engine{CostTol: defaultCostTol, PivotTol: defaultPivotTol, FeasTol: defaultFeasTol}
}

// column maps an LP column onto internal non-negative columns:
// x = offset + z[pos] - z[neg], with -1 meaning absent.
type column struct {
	offset   float64
	pos, neg int
}

type sparseRow struct {
	idx   []int
	val   []float64
	sense milp.Sense
	rhs   float64
}

type tableau struct {
	rows     [][]float64 // width n+1, rhs last
	cost     []float64   // reduced costs, -objective last
	basis    []int
	n        int // columns excluding rhs
	artStart int
	iters    int
}

// Solve implements relax.Engine.
func (e *Engine) Solve(ctx context.Context, lp *relax.LP) (relax.Result, error) {
	cols, nz, ubs, ok := e.mapColumns(lp)
	if !ok {
		return relax.Result{Status: relax.Infeasible}, nil
	}
	rows, ok := e.mapRows(lp, cols, ubs)
	if !ok {
		return relax.Result{Status: relax.Infeasible}, nil
	}

	cz := make([]float64, nz)
	for j, c := range lp.Objective {
		if cols[j].pos >= 0 {
			cz[cols[j].pos] += c
		}
		if cols[j].neg >= 0 {
			cz[cols[j].neg] -= c
		}
	}

	tb := newTableau(rows, nz)
	limit := e.MaxIterations
	if limit <= 0 {
		limit = max(minIterationBudget, 20*(len(tb.rows)+tb.n))
	}

	if tb.artStart < tb.n {
		tb.phaseOneCost()
		st, err := e.iterate(ctx, tb, tb.n, limit)
		if err != nil {
			return relax.Result{Iterations: tb.iters}, err
		}
		if st == relax.IterationLimit {
			return relax.Result{Status: st, Iterations: tb.iters}, nil
		}
		if -tb.cost[tb.n] > e.FeasTol*(1+tb.rhsNorm()) {
			return relax.Result{Status: relax.Infeasible, Iterations: tb.iters}, nil
		}
		tb.dropArtificials(e.PivotTol)
	}

	tb.phaseTwoCost(cz)
	st, err := e.iterate(ctx, tb, tb.artStart, limit)
	if err != nil {
		return relax.Result{Iterations: tb.iters}, err
	}
	if st != relax.Optimal {
		return relax.Result{Status: st, Iterations: tb.iters}, nil
	}

	z := make([]float64, nz)
	for i, b := range tb.basis {
		if b < nz {
			z[b] = math.Max(0, tb.rows[i][tb.n])
		}
	}
	x := make([]float64, len(cols))
	for j, c := range cols {
		x[j] = c.offset
		if c.pos >= 0 {
			x[j] += z[c.pos]
		}
		if c.neg >= 0 {
			x[j] -= z[c.neg]
		}
	}
	return relax.Result{Status: relax.Optimal, X: x, Objective: lp.Value(x), Iterations: tb.iters}, nil
}

type upperBound struct {
	col int
	ub  float64
}

func (e *Engine) mapColumns(lp *relax.LP) ([]column, int, []upperBound, bool) {
	cols := make([]column, len(lp.Objective))
	var ubs []upperBound
	nz := 0
	for j := range cols {
		lo, hi := lp.Lower[j], lp.Upper[j]
		loFinite, hiFinite := !math.IsInf(lo, -1), !math.IsInf(hi, 1)
		switch {
		case loFinite && hiFinite && lo > hi+e.FeasTol:
			return nil, 0, nil, false
		case loFinite && hiFinite && hi-lo <= e.FeasTol:
			cols[j] = column{offset: lo, pos: -1, neg: -1}
		case loFinite:
			cols[j] = column{offset: lo, pos: nz, neg: -1}
			if hiFinite {
				ubs = append(ubs, upperBound{col: nz, ub: hi - lo})
			}
			nz++
		case hiFinite:
			cols[j] = column{offset: hi, pos: -1, neg: nz}
			nz++
		default:
			cols[j] = column{pos: nz, neg: nz + 1}
			nz += 2
		}
	}
	return cols, nz, ubs, true
}

// mapRows rewrites rows over internal columns with non-negative right-hand
// sides. Rows left without columns are checked and dropped.
func (e *Engine) mapRows(lp *relax.LP, cols []column, ubs []upperBound) ([]sparseRow, bool) {
	out := make([]sparseRow, 0, len(lp.Rows)+len(ubs))
	for _, r := range lp.Rows {
		sr := sparseRow{sense: r.Sense, rhs: r.RHS}
		for _, t := range r.Expr {
			c := cols[t.Col]
			sr.rhs -= t.Coef * c.offset
			if c.pos >= 0 {
				sr.idx = append(sr.idx, c.pos)
				sr.val = append(sr.val, t.Coef)
			}
			if c.neg >= 0 {
				sr.idx = append(sr.idx, c.neg)
				sr.val = append(sr.val, -t.Coef)
			}
		}
		if len(sr.idx) == 0 {
			if !(milp.Constraint{Sense: r.Sense, RHS: sr.rhs}).Satisfied(nil, e.FeasTol) {
				return nil, false
			}
			continue
		}
		out = append(out, sr)
	}
	for _, u := range ubs {
		out = append(out, sparseRow{idx: []int{u.col}, val: []float64{1}, sense: milp.LE, rhs: u.ub})
	}
	for i := range out {
		r := &out[i]
		if r.rhs >= 0 {
			continue
		}
		r.rhs = -r.rhs
		floats.Scale(-1, r.val)
		switch r.sense {
		case milp.LE:
			r.sense = milp.GE
		case milp.GE:
			r.sense = milp.LE
		}
	}
	return out, true
}

// newTableau lays out columns as [structural | slack | artificial].
func newTableau(rows []sparseRow, nz int) *tableau {
	nSlack, nArt := 0, 0
	for _, r := range rows {
		switch r.sense {
		case milp.LE:
			nSlack++
		case milp.GE:
			nSlack++
			nArt++
		default:
			nArt++
		}
	}
	tb := &tableau{
		n:        nz + nSlack + nArt,
		artStart: nz + nSlack,
		basis:    make([]int, len(rows)),
		rows:     make([][]float64, len(rows)),
	}
	slack, art := nz, tb.artStart
	for i, r := range rows {
		row := make([]float64, tb.n+1)
		for k, j := range r.idx {
			row[j] += r.val[k]
		}
		row[tb.n] = r.rhs
		switch r.sense {
		case milp.LE:
			row[slack] = 1
			tb.basis[i] = slack
			slack++
		case milp.GE:
			row[slack] = -1
			slack++
			row[art] = 1
			tb.basis[i] = art
			art++
		default:
			row[art] = 1
			tb.basis[i] = art
			art++
		}
		tb.rows[i] = row
	}
	return tb
}

func (tb *tableau) rhsNorm() float64 {
	var m float64
	for _, r := range tb.rows {
		m = math.Max(m, math.Abs(r[tb.n]))
	}
	return m
}

// phaseOneCost prices the sum of artificials.
func (tb *tableau) phaseOneCost() {
	tb.cost = make([]float64, tb.n+1)
	for j := tb.artStart; j < tb.n; j++ {
		tb.cost[j] = 1
	}
	for i, b := range tb.basis {
		if b >= tb.artStart {
			floats.AddScaled(tb.cost, -1, tb.rows[i])
		}
	}
}

func (tb *tableau) phaseTwoCost(cz []float64) {
	tb.cost = make([]float64, tb.n+1)
	copy(tb.cost, cz)
	for i, b := range tb.basis {
		if b < len(cz) && cz[b] != 0 {
			floats.AddScaled(tb.cost, -cz[b], tb.rows[i])
		}
	}
}

// dropArtificials pivots zero-level artificials out of the basis. A row with
// no eligible pivot is a linear combination of the others and is removed.
func (tb *tableau) dropArtificials(pivotTol float64) {
	for i := 0; i < len(tb.rows); i++ {
		if tb.basis[i] < tb.artStart {
			continue
		}
		row := tb.rows[i]
		q, best := -1, pivotTol
		for j := 0; j < tb.artStart; j++ {
			if a := math.Abs(row[j]); a > best {
				q, best = j, a
			}
		}
		if q >= 0 {
			tb.pivot(i, q)
			continue
		}
		tb.rows = append(tb.rows[:i], tb.rows[i+1:]...)
		tb.basis = append(tb.basis[:i], tb.basis[i+1:]...)
		i--
	}
}

// iterate runs primal simplex pivots over columns [0, ncols). Dantzig's rule
// is used until a run of degenerate pivots, then Bland's rule until progress
// resumes.
func (e *Engine) iterate(ctx context.Context, tb *tableau, ncols, limit int) (relax.Status, error) {
	degenerate := 0
	bland := false
	for {
		if tb.iters%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}
		if tb.iters >= limit {
			return relax.IterationLimit, nil
		}

		q := -1
		best := -e.CostTol
		for j := 0; j < ncols; j++ {
			d := tb.cost[j]
			if d >= -e.CostTol {
				continue
			}
			if bland {
				q = j
				break
			}
			if d < best {
				q, best = j, d
			}
		}
		if q < 0 {
			return relax.Optimal, nil
		}

		r := -1
		var ratio float64
		for i, row := range tb.rows {
			a := row[q]
			if a <= e.PivotTol {
				continue
			}
			rt := row[tb.n] / a
			switch {
			case r < 0 || rt < ratio-ratioTieTol:
				r, ratio = i, rt
			case rt <= ratio+ratioTieTol:
				if bland && tb.basis[i] < tb.basis[r] || !bland && a > tb.rows[r][q] {
					r = i
				}
				ratio = math.Min(ratio, rt)
			}
		}
		if r < 0 {
			return relax.Unbounded, nil
		}

		if ratio <= ratioTieTol {
			degenerate++
			if degenerate > degenerateSwitch {
				bland = true
			}
		} else {
			degenerate = 0
			bland = false
		}
		tb.pivot(r, q)
		tb.iters++
	}
}

func (tb *tableau) pivot(r, q int) {
	pr := tb.rows[r]
	floats.Scale(1/pr[q], pr)
	pr[q] = 1
	for i, row := range tb.rows {
		if i == r {
			continue
		}
		if a := row[q]; a != 0 {
			floats.AddScaled(row, -a, pr)
			row[q] = 0
			if rhs := row[tb.n]; rhs < 0 && rhs > -1e-9 {
				row[tb.n] = 0
			}
		}
	}
	if a := tb.cost[q]; a != 0 {
		floats.AddScaled(tb.cost, -a, pr)
		tb.cost[q] = 0
	}
	tb.basis[r] = q
}
