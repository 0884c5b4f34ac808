package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/outagewatch/app"
	"github.com/kilianp07/outagewatch/config"
	coremon "github.com/kilianp07/outagewatch/core/monitoring"
	"github.com/kilianp07/outagewatch/infra/logger"
	"github.com/kilianp07/outagewatch/infra/monitoring"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:           "outagewatch",
	Short:         "Load-shedding risk engine for health facilities",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "configuration file")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

// loadConfig reads the configuration and sets up logging and error monitoring.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := logger.SetLevel(cfg.Logging.Level); err != nil {
		return nil, err
	}
	if err := logger.SetFormat(cfg.Logging.Format); err != nil {
		return nil, err
	}
	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		logger.New("main").Warnf("sentry disabled: %v", err)
	} else {
		coremon.Init(mon)
	}
	return cfg, nil
}

// withEngine builds the engine, loads the schedule once and runs fn.
func withEngine(ctx context.Context, fn func(*app.Components) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	defer coremon.Flush(cfg.Sentry.FlushTimeout())
	comps, err := app.BuildEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := comps.Close(); err != nil {
			logger.New("main").Errorf("close: %v", err)
		}
	}()
	if _, err := comps.Engine.Reload(ctx); err != nil {
		return err
	}
	return fn(comps)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// parseAt parses an optional RFC3339 time. Empty yields the zero time,
// which the engine reads as now.
func parseAt(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q, expected RFC3339: %w", s, err)
	}
	return t, nil
}
