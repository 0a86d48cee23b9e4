// Command atlasctl is the operator CLI for the diagnostics engine
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/tumbig251800/atlas-wise-spark/cmd/atlasctl/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cmd.Execute(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
