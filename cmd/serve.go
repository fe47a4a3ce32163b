package cmd

import (
	"github.com/spf13/cobra"

	"github.com/kilianp07/unitcommit/app"
	"github.com/kilianp07/unitcommit/infra/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve [CASE]",
	Short: "Expose metrics, solve CASE once and wait for a signal",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()
	var casePath string
	if len(args) == 1 {
		casePath = args[0]
	}
	return svc.Run(ctx, casePath)
}
