package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "orbit",
	Short: "Orbit - multi-backend AI request orchestration core",
	Long: `Orbit is an orchestration core for customer-support chat that routes each
turn across multiple remote completion backends.

Every turn passes through admission (rate and cost budgets), a response
cache, deterministic backend selection, sequential failover with circuit
breakers, and fail-closed output sanitization. A performance monitor folds
outcomes into rolling windows and raises alerts and tuning recommendations.`,
	Version: version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
