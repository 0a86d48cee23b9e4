// Package cmd holds the atlasctl commands
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tumbig251800/atlas-wise-spark/internal/modkit"
	"github.com/tumbig251800/atlas-wise-spark/internal/services/diagnostics/module"
)

const serviceName = "atlasctl"

// opener builds the process deps; tests swap it
var opener = modkit.Open

var rootCmd = &cobra.Command{
	Use:           "atlasctl",
	Short:         "Operate the ATLAS diagnostic decision engine",
	SilenceUsage:  true,
	SilenceErrors: false,
}

// Execute runs the root command under ctx
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(evaluateCmd)
	rootCmd.AddCommand(enqueueCmd)
	rootCmd.AddCommand(decisionCmd)
	rootCmd.AddCommand(strikesCmd)
	rootCmd.AddCommand(topicsCmd)
	rootCmd.AddCommand(versionCmd)
}

// withDeps opens the deps for one command and closes them afterwards
func withDeps(ctx context.Context, fn func(modkit.Deps) error) error {
	deps, closeDeps, err := opener(ctx, serviceName)
	if err != nil {
		return err
	}
	defer func() { _ = closeDeps(context.Background()) }()
	return fn(deps)
}

// withEngine is withDeps plus the diagnostics ports
func withEngine(ctx context.Context, fn func(module.Ports) error) error {
	return withDeps(ctx, func(d modkit.Deps) error {
		return fn(module.New(d, module.Options{}).Typed())
	})
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}
