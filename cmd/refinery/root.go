package main

import (
	"github.com/spf13/cobra"
)

var (
	flagConfig  string
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "refinery",
	Short: "Budget-aware workflow engine for reasoning-generated hardware modules",
	Long: `refinery drives a reasoning collaborator through a generate-validate-verify
loop until the produced module reaches the target quality tier or the
invocation budget runs out. Each run keeps the best artifact it ever saw.`,
	SilenceUsage:  true,
	SilenceErrors: false,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "path to a YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	rootCmd.AddCommand(runCmd)
}
