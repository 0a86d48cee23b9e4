package cmd

import (
	"github.com/spf13/cobra"

	"github.com/tumbig251800/atlas-wise-spark/internal/core/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build and decision engine versions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return printJSON(cmd.OutOrStdout(), version.Info(serviceName))
	},
}
