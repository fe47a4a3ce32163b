package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/unitcommit/core/formulation"
	"github.com/kilianp07/unitcommit/core/model"
)

var validateCmd = &cobra.Command{
	Use:   "validate CASE",
	Short: "Check a case file without solving it",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	c, err := loadCase(cfg, args[0])
	if err != nil {
		return err
	}
	inst, err := model.Build(c)
	if err != nil {
		return err
	}
	p := formulation.Build(inst).Problem
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "case %s is valid: %d periods, %d buses, %d generators, %d renewables, %d storage, %d lines\n",
		inst.Name, inst.Periods, len(inst.Buses), len(inst.Generators), len(inst.Renewables), len(inst.Storage), len(inst.Lines))
	fmt.Fprintf(out, "problem: %d variables (%d integer), %d constraints\n", p.NumVars(), len(p.IntegerCols()), p.NumRows())
	return nil
}
