// Command atlas-api serves the diagnostics HTTP API
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/tumbig251800/atlas-wise-spark/internal/modkit"
	"github.com/tumbig251800/atlas-wise-spark/internal/modkit/httpkit"
	"github.com/tumbig251800/atlas-wise-spark/internal/platform/logger"
	phttp "github.com/tumbig251800/atlas-wise-spark/internal/platform/net/http"

	"github.com/tumbig251800/atlas-wise-spark/internal/services/api"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, closeDeps, err := modkit.Open(ctx, api.ServiceName)
	if err != nil {
		logger.Get().Fatal().Err(err).Msg("bootstrap failed")
	}
	l := logger.Get()
	defer func() {
		if err := closeDeps(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	// API_PORT, API_SHUTDOWN_GRACE and the API_* stack knobs
	apiCfg := deps.Cfg.Prefix("API_")
	srv := phttp.NewServer(deps.Cfg)

	api.Mount(srv.Router(), api.Options{
		Deps:           deps,
		Stack:          httpkit.StackFromConfig(deps.Cfg, deps.Metrics),
		EnableSwagger:  apiCfg.MayBool("SWAGGER", true),
		EnableProfiler: apiCfg.MayBool("PROFILER", false),
	})

	l.Info().Str("addr", srv.Addr()).Msg("api listening")
	if err := srv.Run(ctx); err != nil {
		l.Error().Err(err).Msg("http server stopped")
		return
	}
	l.Info().Msg("api stopped")
}
