// Package glpk runs the GLPK command-line solver on a problem written in
// CPLEX LP format and reads back its plain-text solution file.
package glpk

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/kilianp07/unitcommit/core/logger"
	"github.com/kilianp07/unitcommit/core/milp"
	"github.com/kilianp07/unitcommit/core/solver"
)

// Name is the registry name of this backend.
const Name = "glpk"

// Config configures the glpsol invocation.
type Config struct {
	// Binary is the glpsol executable name or path.
	Binary string `json:"binary"`
	// WorkDir holds temporary model and solution files. Empty means the OS
	// temp dir.
	WorkDir string `json:"work_dir"`
	// KeepFiles leaves the model and solution files in place.
	KeepFiles bool `json:"keep_files"`
	// ExtraArgs are appended to the glpsol command line.
	ExtraArgs []string `json:"extra_args"`
}

// SetDefaults fills missing values.
func (c *Config) SetDefaults() {
	if c.Binary == "" {
		c.Binary = "glpsol"
	}
}

// lookPath and runCommand can be replaced in tests.
var (
	lookPath   = exec.LookPath
	runCommand = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return exec.CommandContext(ctx, name, args...).CombinedOutput()
	}
)

// Solver implements solver.Solver.
type Solver struct {
	cfg Config
	log logger.Logger
}

// New returns a GLPK backend. The binary is resolved on every Solve.
func New(cfg Config, log logger.Logger) *Solver {
	cfg.SetDefaults()
	return &Solver{cfg: cfg, log: logger.OrNop(log)}
}

// Name implements solver.Solver.
func (s *Solver) Name() string { return Name }

// Solve implements solver.Solver.
func (s *Solver) Solve(ctx context.Context, p *milp.Problem) (*solver.Solution, error) {
	bin, err := lookPath(s.cfg.Binary)
	if err != nil {
		return nil, &solver.UnavailableError{Solver: Name, Err: err}
	}
	dir, err := os.MkdirTemp(s.cfg.WorkDir, "glpk-")
	if err != nil {
		return nil, fmt.Errorf("glpk: work dir: %w", err)
	}
	if !s.cfg.KeepFiles {
		defer os.RemoveAll(dir)
	}
	lpPath := filepath.Join(dir, "model.lp")
	solPath := filepath.Join(dir, "model.sol")
	if err := writeModel(lpPath, p); err != nil {
		return nil, err
	}

	args := []string{"--lp", lpPath, "--write", solPath}
	if dl, ok := ctx.Deadline(); ok {
		secs := int(math.Ceil(time.Until(dl).Seconds()))
		args = append(args, "--tmlim", strconv.Itoa(max(secs, 1)))
	}
	args = append(args, s.cfg.ExtraArgs...)

	start := time.Now()
	s.log.Debugf("glpk: running %s %s", bin, strings.Join(args, " "))
	out, runErr := runCommand(ctx, bin, args...)
	elapsed := time.Since(start)
	if ctx.Err() != nil {
		return &solver.Solution{Status: solver.StatusInterrupted, Message: ctx.Err().Error(), Stats: solver.Stats{Duration: elapsed}}, nil
	}

	f, err := os.Open(solPath)
	if err != nil {
		if runErr != nil {
			return nil, fmt.Errorf("glpk: glpsol failed: %w: %s", runErr, lastLines(string(out), 5))
		}
		return nil, fmt.Errorf("glpk: read solution: %w", err)
	}
	defer f.Close()
	sol, err := parseSolution(f, p.NumVars(), string(out))
	if err != nil {
		return nil, err
	}
	sol.Stats.Duration = elapsed
	if sol.Status == solver.StatusOptimal {
		for _, c := range p.IntegerCols() {
			sol.Values[c] = math.Round(sol.Values[c])
		}
		sol.Objective = p.ObjectiveValue(sol.Values)
	}
	return sol, nil
}

func writeModel(path string, p *milp.Problem) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("glpk: create model: %w", err)
	}
	if err := milp.WriteLP(f, p); err != nil {
		f.Close()
		return fmt.Errorf("glpk: write model: %w", err)
	}
	return f.Close()
}

var errMalformed = errors.New("glpk: malformed solution file")

// parseSolution reads a glpsol --write file. Column indices follow the order
// of first appearance in the LP file, which WriteLP makes equal to the
// problem's column order.
func parseSolution(r io.Reader, ncols int, output string) (*solver.Solution, error) {
	var (
		kind     string
		status   []string
		obj      float64
		values   = make([]float64, ncols)
		seenHead bool
	)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		f := strings.Fields(sc.Text())
		if len(f) == 0 {
			continue
		}
		switch f[0] {
		case "s":
			if len(f) < 2 {
				return nil, errMalformed
			}
			kind = f[1]
			var err error
			switch {
			case kind == "mip" && len(f) >= 6:
				status = f[4:5]
				obj, err = strconv.ParseFloat(f[5], 64)
			case kind == "bas" && len(f) >= 7:
				status = f[4:6]
				obj, err = strconv.ParseFloat(f[6], 64)
			default:
				return nil, fmt.Errorf("%w: unsupported solution line %q", errMalformed, sc.Text())
			}
			if err != nil {
				return nil, fmt.Errorf("%w: %v", errMalformed, err)
			}
			seenHead = true
		case "j":
			if !seenHead {
				return nil, errMalformed
			}
			valField := 2
			if kind == "bas" {
				valField = 3
			}
			if len(f) <= valField {
				return nil, fmt.Errorf("%w: short column line %q", errMalformed, sc.Text())
			}
			idx, err := strconv.Atoi(f[1])
			if err != nil || idx < 1 || idx > ncols {
				return nil, fmt.Errorf("%w: bad column index %q", errMalformed, f[1])
			}
			v, err := strconv.ParseFloat(f[valField], 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", errMalformed, err)
			}
			values[idx-1] = v
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("glpk: read solution: %w", err)
	}
	if !seenHead {
		return nil, errMalformed
	}

	sol := &solver.Solution{Status: mapStatus(kind, status, output), Message: diagnostic(output)}
	if sol.Status == solver.StatusOptimal {
		sol.Values = values
		sol.Objective = obj
	}
	return sol, nil
}

func mapStatus(kind string, st []string, output string) solver.Status {
	upper := strings.ToUpper(output)
	switch {
	case strings.Contains(upper, "TIME LIMIT EXCEEDED"):
		return solver.StatusInterrupted
	case strings.Contains(upper, "NO PRIMAL FEASIBLE"), strings.Contains(upper, "NO INTEGER FEASIBLE"):
		return solver.StatusInfeasible
	case strings.Contains(upper, "UNBOUNDED"):
		return solver.StatusUnbounded
	}
	if kind == "mip" {
		switch st[0] {
		case "o":
			return solver.StatusOptimal
		case "n":
			return solver.StatusInfeasible
		case "f":
			return solver.StatusInterrupted
		}
		return solver.StatusFailed
	}
	pst, dst := st[0], st[1]
	switch {
	case pst == "f" && dst == "f":
		return solver.StatusOptimal
	case pst == "n" || pst == "i":
		return solver.StatusInfeasible
	case dst == "n" || dst == "i":
		return solver.StatusUnbounded
	}
	return solver.StatusFailed
}

// diagnostic extracts glpsol's status lines verbatim.
func diagnostic(output string) string {
	var msgs []string
	for _, l := range strings.Split(output, "\n") {
		l = strings.TrimSpace(l)
		u := strings.ToUpper(l)
		if strings.Contains(u, "SOLUTION") || strings.Contains(u, "LIMIT EXCEEDED") {
			msgs = append(msgs, l)
		}
	}
	return strings.Join(msgs, "; ")
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, " | ")
}
