package cmd

import (
	"github.com/spf13/cobra"

	"github.com/kilianp07/outagewatch/app"
	coremon "github.com/kilianp07/outagewatch/core/monitoring"
	"github.com/kilianp07/outagewatch/infra/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the API, periodic reloads and the alert scan",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	defer coremon.Flush(cfg.Sentry.FlushTimeout())
	svc, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()
	return svc.Run(ctx)
}
