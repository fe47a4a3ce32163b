package glpk

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/unitcommit/core/milp"
	"github.com/kilianp07/unitcommit/core/solver"
)

func problem() *milp.Problem {
	p := milp.New("demo")
	y := p.AddVar("y[g1,1]", milp.Binary)
	pw := p.AddVar("P[g1,1]", milp.NonNegative)
	p.AddRow("gen_max[g1,1]", milp.Expr{}.Plus(pw, 1).Plus(y, -100), milp.LE, 0)
	p.AddRow("power_balance[b1,1]", milp.Expr{}.Plus(pw, 1), milp.EQ, 40)
	p.SetObjective(milp.Expr{}.Plus(pw, 10).Plus(y, 5))
	return p
}

// fakeGLPSol replaces the command runner with one writing sol to the
// --write path and returning stdout. The arguments it saw are stored in args.
func fakeGLPSol(t *testing.T, sol, stdout string, args *[]string) {
	t.Helper()
	origLook, origRun := lookPath, runCommand
	t.Cleanup(func() { lookPath, runCommand = origLook, origRun })
	lookPath = func(string) (string, error) { return "/usr/bin/glpsol", nil }
	runCommand = func(ctx context.Context, name string, a ...string) ([]byte, error) {
		if args != nil {
			*args = a
		}
		for i := range a {
			if a[i] == "--lp" {
				data, err := os.ReadFile(a[i+1])
				require.NoError(t, err)
				require.Contains(t, string(data), "Binary\n y(g1,1)\n")
			}
			if a[i] == "--write" && sol != "" {
				require.NoError(t, os.WriteFile(a[i+1], []byte(sol), 0o600))
			}
		}
		return []byte(stdout), nil
	}
}

func TestSolveMIPOptimal(t *testing.T) {
	var args []string
	fakeGLPSol(t, `c Problem:    demo
c Rows:       2
c Columns:    2 (1 integer, 1 binary)
c
s mip 2 2 o 405
i 1 0
i 2 40
j 1 0.9999999
j 2 40
e o f
`, "INTEGER OPTIMAL SOLUTION FOUND\n", &args)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sol, err := New(Config{WorkDir: t.TempDir()}, nil).Solve(ctx, problem())
	require.NoError(t, err)
	require.Equal(t, solver.StatusOptimal, sol.Status)
	assert.Equal(t, []float64{1, 40}, sol.Values)
	assert.InDelta(t, 405, sol.Objective, 1e-9)
	assert.Contains(t, sol.Message, "INTEGER OPTIMAL SOLUTION FOUND")
	assert.Contains(t, strings.Join(args, " "), "--tmlim")
}

func TestSolveMIPInfeasible(t *testing.T) {
	fakeGLPSol(t, "s mip 2 2 n 0\ne o f\n", "PROBLEM HAS NO INTEGER FEASIBLE SOLUTION\n", nil)
	sol, err := New(Config{WorkDir: t.TempDir()}, nil).Solve(context.Background(), problem())
	require.NoError(t, err)
	assert.Equal(t, solver.StatusInfeasible, sol.Status)
	assert.Nil(t, sol.Values)
	assert.Equal(t, "PROBLEM HAS NO INTEGER FEASIBLE SOLUTION", sol.Message)
	assert.ErrorIs(t, sol.Err(Name), solver.ErrInfeasible)
}

func TestSolveUnavailable(t *testing.T) {
	origLook := lookPath
	t.Cleanup(func() { lookPath = origLook })
	lookPath = func(string) (string, error) { return "", errors.New("executable file not found in $PATH") }

	_, err := New(Config{}, nil).Solve(context.Background(), problem())
	require.Error(t, err)
	assert.ErrorIs(t, err, solver.ErrUnavailable)
	var ue *solver.UnavailableError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, Name, ue.Solver)
}

func TestSolveMissingSolutionFile(t *testing.T) {
	fakeGLPSol(t, "", "glpsol: unable to open model\n", nil)
	_, err := New(Config{WorkDir: t.TempDir()}, nil).Solve(context.Background(), problem())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read solution")
}

func TestParseBasicSolution(t *testing.T) {
	sol, err := parseSolution(strings.NewReader(`s bas 1 2 f f -3.5
i 1 b 1 0
j 1 b 1.5 0
j 2 l 0 2
e o f
`), 2, "OPTIMAL LP SOLUTION FOUND")
	require.NoError(t, err)
	require.Equal(t, solver.StatusOptimal, sol.Status)
	assert.Equal(t, []float64{1.5, 0}, sol.Values)
	assert.Equal(t, -3.5, sol.Objective)
}

func TestParseStatuses(t *testing.T) {
	tests := []struct {
		file, out string
		want      solver.Status
	}{
		{"s bas 1 1 n u 0\n", "", solver.StatusInfeasible},
		{"s bas 1 1 f n 0\n", "", solver.StatusUnbounded},
		{"s mip 1 1 u 0\n", "PROBLEM HAS UNBOUNDED SOLUTION", solver.StatusUnbounded},
		{"s mip 1 1 f 12\n", "TIME LIMIT EXCEEDED; SEARCH TERMINATED", solver.StatusInterrupted},
		{"s mip 1 1 u 0\n", "", solver.StatusFailed},
	}
	for _, tt := range tests {
		sol, err := parseSolution(strings.NewReader(tt.file), 1, tt.out)
		require.NoError(t, err)
		assert.Equal(t, tt.want, sol.Status, tt.file)
	}
}

func TestParseMalformed(t *testing.T) {
	for _, in := range []string{"", "j 1 0\n", "s mip 1 1 o 0\nj 7 1\n", "s ipt 1 1 o 0\n"} {
		_, err := parseSolution(strings.NewReader(in), 1, "")
		assert.ErrorIs(t, err, errMalformed, in)
	}
}
