package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gaogaogoo/sport-log/internal/config"
)

var cfg *config.ServerConfig

var rootCmd = &cobra.Command{
	Use:   "sport-log-server",
	Short: "Sport log API server",
	Long: `The sport log API server owns the store and exposes the REST surface
used by clients, the scheduler and the action providers.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadServer()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		return nil
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
