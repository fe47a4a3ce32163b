package bnb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/unitcommit/core/milp"
	"github.com/kilianp07/unitcommit/core/solver"
)

// knapsack: max 5a + 4b + 3c subject to 2a + 3b + c <= 5.
func knapsack() *milp.Problem {
	p := milp.New("knapsack")
	a := p.AddVar("a", milp.Binary)
	b := p.AddVar("b", milp.Binary)
	c := p.AddVar("c", milp.Binary)
	p.AddRow("weight", milp.Expr{}.Plus(a, 2).Plus(b, 3).Plus(c, 1), milp.LE, 5)
	p.SetObjective(milp.Expr{}.Plus(a, -5).Plus(b, -4).Plus(c, -3))
	return p
}

func newSolver(t *testing.T, cfg Config) *Solver {
	t.Helper()
	s, err := New(cfg, nil)
	require.NoError(t, err)
	return s
}

func TestKnapsack(t *testing.T) {
	for _, engine := range []string{"tableau", "gonum"} {
		t.Run(engine, func(t *testing.T) {
			sol, err := newSolver(t, Config{LPEngine: engine}).Solve(context.Background(), knapsack())
			require.NoError(t, err)
			require.Equal(t, solver.StatusOptimal, sol.Status)
			assert.InDelta(t, -9, sol.Objective, 1e-9)
			assert.Equal(t, []float64{1, 1, 0}, sol.Values)
			assert.Greater(t, sol.Stats.Nodes, 1)
		})
	}
}

func TestMixedCommitment(t *testing.T) {
	// Two units serve 120 MW. Unit 1 is cheap per MW but has a fixed cost.
	p := milp.New("mixed")
	y1 := p.AddVar("y1", milp.Binary)
	y2 := p.AddVar("y2", milp.Binary)
	p1 := p.AddVar("p1", milp.NonNegative)
	p2 := p.AddVar("p2", milp.NonNegative)
	p.AddRow("balance", milp.Expr{}.Plus(p1, 1).Plus(p2, 1), milp.EQ, 120)
	p.AddRow("max1", milp.Expr{}.Plus(p1, 1).Plus(y1, -100), milp.LE, 0)
	p.AddRow("max2", milp.Expr{}.Plus(p2, 1).Plus(y2, -100), milp.LE, 0)
	p.AddRow("min2", milp.Expr{}.Plus(p2, 1).Plus(y2, -30), milp.GE, 0)
	p.SetObjective(milp.Expr{}.Plus(p1, 10).Plus(p2, 20).Plus(y1, 500).Plus(y2, 100))

	sol, err := newSolver(t, Config{}).Solve(context.Background(), p)
	require.NoError(t, err)
	require.Equal(t, solver.StatusOptimal, sol.Status)
	// both on: p1=90, p2=30 -> 900 + 600 + 600 = 2100
	assert.InDelta(t, 2100, sol.Objective, 1e-6)
	assert.InDelta(t, 90, sol.Values[p1], 1e-6)
	assert.InDelta(t, 30, sol.Values[p2], 1e-6)
	assert.Empty(t, p.Violations(sol.Values, 1e-6))
}

func TestIntegerInfeasible(t *testing.T) {
	p := milp.New("odd")
	x := p.AddVar("x", milp.Binary)
	p.AddRow("half", milp.Expr{}.Plus(x, 2), milp.EQ, 1)
	p.SetObjective(milp.Expr{}.Plus(x, 1))

	sol, err := newSolver(t, Config{}).Solve(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, solver.StatusInfeasible, sol.Status)
	assert.Nil(t, sol.Values)
	assert.ErrorIs(t, sol.Err(Name), solver.ErrInfeasible)
}

func TestUnboundedRoot(t *testing.T) {
	p := milp.New("unbounded")
	p.AddVar("y", milp.Binary)
	z := p.AddVar("z", milp.NonNegative)
	p.SetObjective(milp.Expr{}.Plus(z, -1))

	sol, err := newSolver(t, Config{}).Solve(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, solver.StatusUnbounded, sol.Status)
}

func TestNodeLimit(t *testing.T) {
	sol, err := newSolver(t, Config{NodeLimit: 1}).Solve(context.Background(), knapsack())
	require.NoError(t, err)
	assert.Equal(t, solver.StatusNodeLimit, sol.Status)
	assert.Equal(t, 1, sol.Stats.Nodes)
	var se *solver.StatusError
	assert.ErrorAs(t, sol.Err(Name), &se)
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sol, err := newSolver(t, Config{}).Solve(ctx, knapsack())
	require.NoError(t, err)
	assert.Equal(t, solver.StatusInterrupted, sol.Status)
	assert.Contains(t, sol.Message, "context canceled")
}

func TestConfigValidate(t *testing.T) {
	_, err := New(Config{LPEngine: "cplex"}, nil)
	assert.Error(t, err)
	_, err = New(Config{NodeLimit: -1}, nil)
	assert.Error(t, err)
}

func TestMostFractional(t *testing.T) {
	x := []float64{0.1, 0.5, 3.0000000001, 0.7}
	assert.Equal(t, 1, mostFractional(x, []int{0, 1, 2, 3}, 1e-9))
	assert.Equal(t, -1, mostFractional(x, []int{2}, 1e-9))
}

func TestProblemWithoutColumns(t *testing.T) {
	p := milp.New("empty")
	p.AddRow("balance", milp.Expr{}, milp.EQ, 0)

	sol, err := newSolver(t, Config{}).Solve(context.Background(), p)
	require.NoError(t, err)
	require.Equal(t, solver.StatusOptimal, sol.Status)
	assert.NotNil(t, sol.Values)
	assert.Empty(t, sol.Values)
	assert.Zero(t, sol.Objective)
}
