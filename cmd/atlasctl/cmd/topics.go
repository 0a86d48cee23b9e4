package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tumbig251800/atlas-wise-spark/internal/platform/net/http/bind"
	"github.com/tumbig251800/atlas-wise-spark/internal/services/diagnostics/domain"
	"github.com/tumbig251800/atlas-wise-spark/internal/services/diagnostics/module"
)

var topicsCmd = &cobra.Command{
	Use:   "topics",
	Short: "Manage topic normalization",
}

var topicsAliasCmd = &cobra.Command{
	Use:   "alias <subject> <gradeLevel> <alias> <canonical>",
	Short: "Map a raw topic to its canonical form",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		a := domain.Alias{Subject: args[0], GradeLevel: args[1], Alias: args[2], Canonical: args[3]}
		if err := bind.Validate(a); err != nil {
			return err
		}
		ctx := cmd.Context()
		return withEngine(ctx, func(p module.Ports) error {
			if err := p.Aliases.UpsertAlias(ctx, a); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s / %s: %q -> %q\n", a.Subject, a.GradeLevel, a.Alias, a.Canonical)
			return nil
		})
	},
}

func init() {
	topicsCmd.AddCommand(topicsAliasCmd)
}
