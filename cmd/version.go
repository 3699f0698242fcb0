package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "concierge %s (commit: %s, built: %s)\n",
			buildInfo.version, buildInfo.commit, buildInfo.date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
