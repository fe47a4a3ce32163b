package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/kilianp07/unitcommit/app"
	"github.com/kilianp07/unitcommit/core/formulation"
	"github.com/kilianp07/unitcommit/core/milp"
	"github.com/kilianp07/unitcommit/core/schedule"
	"github.com/kilianp07/unitcommit/pkg/export"
)

var solveOpts struct {
	out        string
	csv        string
	solver     string
	writeLP    string
	shiftPct   float64
	shiftHours int
}

var solveCmd = &cobra.Command{
	Use:   "solve CASE",
	Short: "Solve a case file and write the schedule",
	Args:  cobra.ExactArgs(1),
	RunE:  runSolve,
}

func init() {
	f := solveCmd.Flags()
	f.StringVarP(&solveOpts.out, "out", "o", "", "results JSON file (- for stdout)")
	f.StringVar(&solveOpts.csv, "csv", "", "schedule CSV file")
	f.StringVar(&solveOpts.solver, "solver", "", "solver backend (bnb, glpk)")
	f.StringVar(&solveOpts.writeLP, "write-lp", "", "write the assembled problem in CPLEX LP format")
	f.Float64Var(&solveOpts.shiftPct, "shift-max-percent", 0, "share of a period's demand that may be shifted")
	f.IntVar(&solveOpts.shiftHours, "shift-max-hours", 0, "largest shift distance in periods")
	rootCmd.AddCommand(solveCmd)
}

func runSolve(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if solveOpts.solver != "" {
		cfg.Solver.Type = solveOpts.solver
	}
	c, err := loadCase(cfg, args[0])
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("shift-max-percent") {
		v := solveOpts.shiftPct
		c.ShiftMaxPercent = &v
	}
	if cmd.Flags().Changed("shift-max-hours") {
		v := solveOpts.shiftHours
		c.ShiftMaxHours = &v
	}

	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "service close: %v\n", err)
		}
	}()
	inst, err := svc.Instance(c)
	if err != nil {
		return err
	}
	if solveOpts.writeLP != "" {
		if err := writeFile(solveOpts.writeLP, func(w io.Writer) error {
			return milp.WriteLP(w, formulation.Build(inst).Problem)
		}); err != nil {
			return fmt.Errorf("write lp: %w", err)
		}
	}

	ctx, stop := signalContext()
	defer stop()
	sch, err := svc.Planner.Plan(ctx, inst)
	if err != nil {
		return err
	}
	printSummary(cmd.OutOrStdout(), sch)

	switch solveOpts.out {
	case "":
	case "-":
		if err := export.WriteJSON(cmd.OutOrStdout(), sch); err != nil {
			return err
		}
	default:
		if err := writeFile(solveOpts.out, func(w io.Writer) error { return export.WriteJSON(w, sch) }); err != nil {
			return fmt.Errorf("write results: %w", err)
		}
	}
	if solveOpts.csv != "" {
		if err := writeFile(solveOpts.csv, func(w io.Writer) error { return export.WriteCSV(w, sch) }); err != nil {
			return fmt.Errorf("write csv: %w", err)
		}
	}
	return nil
}

func printSummary(w io.Writer, sch *schedule.Schedule) {
	fmt.Fprintf(w, "case %s solved by %s (run %s)\n", sch.Case, sch.Solver, sch.RunID)
	fmt.Fprintf(w, "total cost: %.2f\n", sch.TotalCost)
	fmt.Fprintf(w, "startups: %d, shifted energy: %.2f MWh\n", sch.Startups(), sch.ShiftedEnergy())
}

func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
