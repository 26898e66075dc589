package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gaogaogoo/sport-log/internal/config"
	"github.com/gaogaogoo/sport-log/internal/providers/wodifywod"
)

const configFile = "sport-log-action-provider-wodify-wod.toml"

var setup bool

var rootCmd = &cobra.Command{
	Use:   "sport-log-action-provider-wodify-wod",
	Short: "Wodify wod action provider",
	Long: `Fetches the workout of the day from wodify and saves it in the wods of
the users that enabled one of the class type actions.`,
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

		fetcher := wodifywod.New(cfg, logger)
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
