package milp

import (
	"fmt"
	"math"
	"sort"
)

// Domain is the value domain of a column.
type Domain int

const (
	// NonNegative columns take real values in [0, +inf).
	NonNegative Domain = iota
	// Free columns take any real value.
	Free
	// Binary columns take values in {0, 1}.
	Binary
)

func (d Domain) String() string {
	switch d {
	case NonNegative:
		return "nonnegative"
	case Free:
		return "free"
	case Binary:
		return "binary"
	default:
		return fmt.Sprintf("domain(%d)", int(d))
	}
}

// Bounds returns the box implied by the domain.
func (d Domain) Bounds() (lo, hi float64) {
	switch d {
	case Free:
		return math.Inf(-1), math.Inf(1)
	case Binary:
		return 0, 1
	default:
		return 0, math.Inf(1)
	}
}

// Integer reports whether the domain requires integral values.
func (d Domain) Integer() bool { return d == Binary }

// Var describes one column of the problem.
type Var struct {
	Name   string
	Domain Domain
}

// Term is a single coefficient on a column.
type Term struct {
	Col  int
	Coef float64
}

// Expr is a linear expression over columns. Constants belong on the
// right-hand side of a constraint.
type Expr []Term

// Plus appends coef*col to the expression.
func (e Expr) Plus(col int, coef float64) Expr {
	return append(e, Term{Col: col, Coef: coef})
}

// Eval evaluates the expression at x.
func (e Expr) Eval(x []float64) float64 {
	var s float64
	for _, t := range e {
		s += t.Coef * x[t.Col]
	}
	return s
}

// Coef returns the aggregated coefficient of col in e.
func (e Expr) Coef(col int) float64 {
	var c float64
	for _, t := range e {
		if t.Col == col {
			c += t.Coef
		}
	}
	return c
}

// normalize merges duplicate columns and drops zero coefficients. Terms are
// returned sorted by column.
func (e Expr) normalize() Expr {
	if len(e) == 0 {
		return nil
	}
	sum := make(map[int]float64, len(e))
	for _, t := range e {
		sum[t.Col] += t.Coef
	}
	out := make(Expr, 0, len(sum))
	for col, c := range sum {
		if c != 0 {
			out = append(out, Term{Col: col, Coef: c})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Col < out[j].Col })
	return out
}

// Sense is the relation of a constraint row.
type Sense int

const (
	LE Sense = iota
	GE
	EQ
)

func (s Sense) String() string {
	switch s {
	case LE:
		return "<="
	case GE:
		return ">="
	case EQ:
		return "="
	default:
		return "?"
	}
}

// Constraint is one row: Expr Sense RHS.
type Constraint struct {
	Name  string
	Expr  Expr
	Sense Sense
	RHS   float64
}

// Satisfied reports whether x satisfies the row within tol.
func (c Constraint) Satisfied(x []float64, tol float64) bool {
	lhs := c.Expr.Eval(x)
	switch c.Sense {
	case LE:
		return lhs <= c.RHS+tol
	case GE:
		return lhs >= c.RHS-tol
	default:
		return math.Abs(lhs-c.RHS) <= tol
	}
}

// Problem is a minimisation MILP: min Objective·x subject to Rows, with each
// column restricted to its Domain.
type Problem struct {
	Name      string
	Vars      []Var
	Rows      []Constraint
	Objective Expr
}

// New returns an empty problem.
func New(name string) *Problem {
	return &Problem{Name: name}
}

// AddVar declares a column and returns its index.
func (p *Problem) AddVar(name string, d Domain) int {
	p.Vars = append(p.Vars, Var{Name: name, Domain: d})
	return len(p.Vars) - 1
}

// AddRow appends a constraint row. Referencing an undeclared column is a
// programming error and panics.
func (p *Problem) AddRow(name string, e Expr, s Sense, rhs float64) {
	for _, t := range e {
		if t.Col < 0 || t.Col >= len(p.Vars) {
			panic(fmt.Sprintf("milp: row %s references column %d of %d", name, t.Col, len(p.Vars)))
		}
	}
	p.Rows = append(p.Rows, Constraint{Name: name, Expr: e.normalize(), Sense: s, RHS: rhs})
}

// SetObjective sets the minimisation objective.
func (p *Problem) SetObjective(e Expr) {
	for _, t := range e {
		if t.Col < 0 || t.Col >= len(p.Vars) {
			panic(fmt.Sprintf("milp: objective references column %d of %d", t.Col, len(p.Vars)))
		}
	}
	p.Objective = e.normalize()
}

// NumVars returns the number of columns.
func (p *Problem) NumVars() int { return len(p.Vars) }

// NumRows returns the number of constraint rows.
func (p *Problem) NumRows() int { return len(p.Rows) }

// IntegerCols returns the indices of integer columns.
func (p *Problem) IntegerCols() []int {
	var out []int
	for i, v := range p.Vars {
		if v.Domain.Integer() {
			out = append(out, i)
		}
	}
	return out
}

// Bounds returns per-column bounds derived from the domains.
func (p *Problem) Bounds() (lo, hi []float64) {
	lo = make([]float64, len(p.Vars))
	hi = make([]float64, len(p.Vars))
	for i, v := range p.Vars {
		lo[i], hi[i] = v.Domain.Bounds()
	}
	return lo, hi
}

// ObjectiveValue evaluates the objective at x.
func (p *Problem) ObjectiveValue(x []float64) float64 {
	return p.Objective.Eval(x)
}

// Row returns the first row with the given name.
func (p *Problem) Row(name string) (Constraint, bool) {
	for _, r := range p.Rows {
		if r.Name == name {
			return r, true
		}
	}
	return Constraint{}, false
}

// RowsWithPrefix returns every row whose name starts with prefix.
func (p *Problem) RowsWithPrefix(prefix string) []Constraint {
	var out []Constraint
	for _, r := range p.Rows {
		if len(r.Name) >= len(prefix) && r.Name[:len(prefix)] == prefix {
			out = append(out, r)
		}
	}
	return out
}

// Violation describes a row or domain not satisfied by a point.
type Violation struct {
	Name   string
	Amount float64
}

// Violations lists every row and domain violated by x beyond tol.
func (p *Problem) Violations(x []float64, tol float64) []Violation {
	var out []Violation
	for i, v := range p.Vars {
		lo, hi := v.Domain.Bounds()
		switch {
		case x[i] < lo-tol:
			out = append(out, Violation{Name: v.Name, Amount: lo - x[i]})
		case x[i] > hi+tol:
			out = append(out, Violation{Name: v.Name, Amount: x[i] - hi})
		case v.Domain.Integer() && math.Abs(x[i]-math.Round(x[i])) > tol:
			out = append(out, Violation{Name: v.Name, Amount: math.Abs(x[i] - math.Round(x[i]))})
		}
	}
	for _, r := range p.Rows {
		if r.Satisfied(x, tol) {
			continue
		}
		out = append(out, Violation{Name: r.Name, Amount: math.Abs(r.Expr.Eval(x) - r.RHS)})
	}
	return out
}
