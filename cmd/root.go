// Package cmd provides the command-line interface for the log matching
// engine.
package cmd

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// Global flags shared by all subcommands.
var (
	outputJSON bool
	noColor    bool
	quiet      bool
)

// NewRootCmd creates the root command with all subcommands.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "loglens",
		Short: "Match error-detection rules against log files",
		Long: `loglens compiles rule definitions into optimized matchers and evaluates
them against log files, producing weighted, conflict-resolved matches.

Rules come in three flavors: single-line regex rules, multi-line segment
rules, and correlation rules that link a primary pattern to related lines.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor {
				color.NoColor = true
			}
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "Suppress non-essential output")

	rootCmd.AddCommand(newMatchCmd())
	rootCmd.AddCommand(newValidateCmd())

	return rootCmd
}
