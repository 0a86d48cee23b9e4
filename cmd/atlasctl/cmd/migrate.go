package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tumbig251800/atlas-wise-spark/internal/modkit"
	"github.com/tumbig251800/atlas-wise-spark/internal/services/diagnostics/repo"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the Postgres schema and the ClickHouse mirror table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		return withDeps(ctx, func(d modkit.Deps) error {
			if err := repo.Migrate(ctx, d.PG); err != nil {
				return err
			}
			mirror := repo.NewMirror(d.CH)
			if err := mirror.Migrate(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrated postgres (clickhouse mirror: %t)\n", mirror.Enabled())
			return nil
		})
	},
}
