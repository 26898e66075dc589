package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gaogaogoo/sport-log/internal/config"
	"github.com/gaogaogoo/sport-log/internal/scheduler"
)

var rootCmd = &cobra.Command{
	Use:   "sport-log-scheduler",
	Short: "Sport log scheduler",
	Long: `The scheduler materialises action rules into action events, deletes
expired events and garbage-collects tombstones. It runs each phase once and
exits; use cron or a systemd timer for the cadence.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadScheduler()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		logger, err := zap.NewProduction()
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		defer logger.Sync()

		scheduler.New(cfg, logger).Run(cmd.Context())
		return nil
	},
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
