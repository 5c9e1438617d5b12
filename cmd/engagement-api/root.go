package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "engagement-api",
	Short: "Wellness engagement metrics server",
	Long: `Computes streaks, mood/factor correlations, mood trends and achievement
progress from a user's wellness events, over HTTP or from the command line.`,
	SilenceUsage: true,
}

var configFile string

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Config file (default: config.yaml in . or ./config)")

	// Add subcommands
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(computeCmd)
}
