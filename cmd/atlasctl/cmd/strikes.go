package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tumbig251800/atlas-wise-spark/internal/services/diagnostics/module"
)

var decisionCmd = &cobra.Command{
	Use:   "decision <logId>",
	Short: "Print the stored decision object for a teaching log",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		return withEngine(ctx, func(p module.Ports) error {
			raw, err := p.Decisions.Decision(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), raw)
		})
	},
}

var strikesCmd = &cobra.Command{
	Use:   "strikes <teacherId>",
	Short: "List a teacher's active strike counters",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		return withEngine(ctx, func(p module.Ports) error {
			rows, err := p.Decisions.ActiveStrikes(ctx, args[0])
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "no active strikes")
			}
			return printJSON(cmd.OutOrStdout(), rows)
		})
	},
}
