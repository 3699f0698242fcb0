// Package cmd wires the command-line entry points.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var buildInfo struct {
	version string
	commit  string
	date    string
}

var rootCmd = &cobra.Command{
	Use:           "concierge",
	Short:         "Personal finance concierge",
	Long:          "Track expenses and budgets over a REST API, and talk to them through a chat agent.",
	SilenceUsage:  true,
	SilenceErrors: false,
}

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	buildInfo.version = version
	buildInfo.commit = commit
	buildInfo.date = date

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
