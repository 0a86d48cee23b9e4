// Command atlas-diagnostics drains the diagnostic job queue
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/tumbig251800/atlas-wise-spark/internal/modkit"
	"github.com/tumbig251800/atlas-wise-spark/internal/platform/logger"

	"github.com/tumbig251800/atlas-wise-spark/internal/services/diagnostics/module"
)

func main() {
	var (
		fWorkers = flag.Int("workers", 0, "worker concurrency (overrides DIAG_WORKER_CONCURRENCY)")
		fBatch   = flag.Int("batch", 0, "jobs leased per poll (overrides DIAG_WORKER_BATCH)")
		fID      = flag.String("id", "", "worker id stamped on leases")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, closeDeps, err := modkit.Open(ctx, "atlas-diagnostics")
	if err != nil {
		logger.Get().Fatal().Err(err).Msg("bootstrap failed")
	}
	l := logger.Get()
	defer func() {
		if err := closeDeps(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	mod := module.New(deps, module.Options{
		WorkerID:    *fID,
		Concurrency: *fWorkers,
		Batch:       *fBatch,
	})

	l.Info().Msg("diagnostics worker starting")
	if err := mod.Typed().Worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		l.Error().Err(err).Msg("worker stopped")
		return
	}
	l.Info().Msg("diagnostics worker stopped")
}
