package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/unitcommit/core/runlog"
)

var runsOpts struct {
	status string
	caseID string
	since  string
	limit  int
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded planning runs",
	Args:  cobra.NoArgs,
	RunE:  runRuns,
}

func init() {
	f := runsCmd.Flags()
	f.StringVar(&runsOpts.status, "status", "", "only runs with this status")
	f.StringVar(&runsOpts.caseID, "case", "", "only runs of this case")
	f.StringVar(&runsOpts.since, "since", "", "only runs at or after this RFC3339 time")
	f.IntVar(&runsOpts.limit, "limit", 0, "keep the most recent n runs")
	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	q := runlog.Query{Status: runsOpts.status, Case: runsOpts.caseID, Limit: runsOpts.limit}
	if runsOpts.since != "" {
		since, err := time.Parse(time.RFC3339, runsOpts.since)
		if err != nil {
			return fmt.Errorf("--since: %w", err)
		}
		q.Since = since
	}
	store, err := runlog.Open(cfg.RunLog)
	if err != nil {
		return err
	}
	defer store.Close()
	recs, err := store.Query(context.Background(), q)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tRUN\tCASE\tSOLVER\tSTATUS\tOBJECTIVE\tNODES\tMS")
	for _, r := range recs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%.2f\t%d\t%d\n",
			r.Timestamp.Format(time.RFC3339), r.RunID, r.Case, r.Solver, r.Status, r.Objective, r.Nodes, r.DurationMS)
	}
	return tw.Flush()
}
