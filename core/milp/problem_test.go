package milp

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddRowNormalizes(t *testing.T) {
	p := New("t")
	x := p.AddVar("x", NonNegative)
	y := p.AddVar("y", Free)
	p.AddRow("r", Expr{}.Plus(x, 1).Plus(y, 2).Plus(x, 3).Plus(y, -2), LE, 4)

	r, ok := p.Row("r")
	require.True(t, ok)
	require.Len(t, r.Expr, 1)
	assert.Equal(t, x, r.Expr[0].Col)
	assert.Equal(t, 4.0, r.Expr[0].Coef)
}

func TestAddRowPanicsOnUnknownColumn(t *testing.T) {
	p := New("t")
	p.AddVar("x", NonNegative)
	assert.Panics(t, func() { p.AddRow("bad", Expr{{Col: 3, Coef: 1}}, EQ, 0) })
}

func TestDomainBounds(t *testing.T) {
	lo, hi := Binary.Bounds()
	assert.Equal(t, 0.0, lo)
	assert.Equal(t, 1.0, hi)
	lo, hi = Free.Bounds()
	assert.True(t, math.IsInf(lo, -1))
	assert.True(t, math.IsInf(hi, 1))
	assert.True(t, Binary.Integer())
	assert.False(t, NonNegative.Integer())
}

func TestViolations(t *testing.T) {
	p := New("t")
	x := p.AddVar("x", Binary)
	y := p.AddVar("y", NonNegative)
	p.AddRow("sum", Expr{}.Plus(x, 1).Plus(y, 1), EQ, 2)
	p.AddRow("cap", Expr{}.Plus(y, 1), LE, 1)

	assert.Empty(t, p.Violations([]float64{1, 1}, 1e-9))

	v := p.Violations([]float64{0.5, 1.5}, 1e-9)
	names := make([]string, len(v))
	for i := range v {
		names[i] = v[i].Name
	}
	assert.ElementsMatch(t, []string{"x", "cap"}, names)
}

func TestWriteLP(t *testing.T) {
	p := New("demo")
	y := p.AddVar("y[g1,1]", Binary)
	pw := p.AddVar("P[g1,1]", NonNegative)
	f := p.AddVar("Flow[l 1,1]", Free)
	p.AddRow("gen_max[g1,1]", Expr{}.Plus(pw, 1).Plus(y, -100), LE, 0)
	p.AddRow("balance[b1,1]", Expr{}.Plus(pw, 1).Plus(f, -1), EQ, 30)
	p.SetObjective(Expr{}.Plus(pw, 10))

	var buf bytes.Buffer
	require.NoError(t, WriteLP(&buf, p))
	out := buf.String()

	assert.Contains(t, out, "Minimize\n obj: 0 y(g1,1) + 10 P(g1,1) + 0 Flow(l_1,1)")
	assert.Contains(t, out, " gen_max(g1,1): - 100 y(g1,1) + 1 P(g1,1) <= 0\n")
	assert.Contains(t, out, " balance(b1,1): 1 P(g1,1) - 1 Flow(l_1,1) = 30\n")
	assert.Contains(t, out, "Bounds\n Flow(l_1,1) free\n")
	assert.Contains(t, out, "Binary\n y(g1,1)\n")
	assert.True(t, strings.HasSuffix(out, "End\n"))
}

func TestWriteLPEmpty(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, WriteLP(&buf, New("empty")), ErrEmptyProblem)
}

func TestLPNamesUnique(t *testing.T) {
	p := New("t")
	p.AddVar("a b", NonNegative)
	p.AddVar("a_b", NonNegative)
	p.AddVar("", NonNegative)
	p.AddVar("1x", NonNegative)
	names := LPNames(p)
	assert.Equal(t, []string{"a_b", "a_b#2", "x3", "_1x"}, names)
}
