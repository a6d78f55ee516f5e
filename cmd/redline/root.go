package main

import (
	"github.com/spf13/cobra"

	"github.com/redlinehq/redline/internal/api"
	"github.com/redlinehq/redline/version"
)

var (
	cfgFile      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "redline",
	Short: "Agentic document editing over numbered lines",
	Long: `Redline is a document editing service driven by a language model.

Documents are flat lists of numbered lines. A chat message can cite lines
(@line12, @l5-10, @page3); the model locates content with search/read/analyze
tools and applies edits with replace, insert, and delete operations. Locked
lines are never shown to or modified by the model.`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.redline/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		api.SetOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
}
