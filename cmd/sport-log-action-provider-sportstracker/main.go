package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gaogaogoo/sport-log/internal/config"
	"github.com/gaogaogoo/sport-log/internal/providers/sportstracker"
)

const configFile = "sport-log-action-provider-sportstracker.toml"

var setup bool

var rootCmd = &cobra.Command{
	Use:   "sport-log-action-provider-sportstracker",
	Short: "Sportstracker action provider",
	Long: `Fetches the latest workouts recorded with sportstracker and saves them
as cardio sessions of the users that enabled the fetch action.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadProvider(configFile)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		logger, err := zap.NewProduction()
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		defer logger.Sync()

		fetcher := sportstracker.New(cfg, logger)
		if setup {
			return fetcher.Setup(cmd.Context())
		}
		return fetcher.Run(cmd.Context())
	},
}

func init() {
	rootCmd.Flags().BoolVar(&setup, "setup", false, "register the platform, provider and actions")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
