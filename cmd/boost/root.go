package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	logLevel string // Log verbosity level
	seed     int64  // Seed for sampling and tie-breaking
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "boost",
	Short: "Kernel and acquisition recommendation for Bayesian optimisation",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}

		logrus.SetLevel(level)
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
	rootCmd.PersistentFlags().Int64Var(&seed, "seed", 0, "Seed for initial sampling and tie-breaking")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(recommendCmd)
}
