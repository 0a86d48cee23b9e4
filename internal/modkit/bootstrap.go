package modkit

import (
	"context"
	"fmt"

	"github.com/tumbig251800/atlas-wise-spark/internal/platform/config"
	"github.com/tumbig251800/atlas-wise-spark/internal/platform/llm"
	"github.com/tumbig251800/atlas-wise-spark/internal/platform/logger"
	"github.com/tumbig251800/atlas-wise-spark/internal/platform/metrics"
	"github.com/tumbig251800/atlas-wise-spark/internal/platform/store"
)

// Closer releases what Open acquired
type Closer func(ctx context.Context) error

// Open loads the config overlay, initializes logging, opens the stores and
// builds metrics and the LLM provider for one process
func Open(ctx context.Context, service string) (Deps, Closer, error) {
	if err := config.LoadFromEnv(); err != nil {
		return Deps{}, nil, fmt.Errorf("config: %w", err)
	}
	lo := logger.FromEnv()
	if lo.Service == "" {
		lo.Service = service
	}
	logger.Init(lo)
	l := logger.Get()

	cfg := config.New()
	st, err := store.Open(ctx, store.ConfigFromEnv(service), store.WithLogger(*l))
	if err != nil {
		return Deps{}, nil, fmt.Errorf("store: %w", err)
	}
	if err := st.Guard(ctx); err != nil {
		_ = st.Close(ctx)
		return Deps{}, nil, fmt.Errorf("store guard: %w", err)
	}

	mc := cfg.Prefix("METRICS_")
	m := metrics.New(
		metrics.WithEnabled(mc.MayBool("ENABLED", true)),
		metrics.WithRuntimeCollectors(mc.MayBool("RUNTIME", true)),
	)

	p, err := llm.New(ctx, llm.ConfigFromEnv(), m)
	if err != nil {
		_ = st.Close(ctx)
		return Deps{}, nil, err
	}
	l.Info().
		Str("llm", p.Name()).
		Bool("clickhouse", st.CH != nil).
		Msg("dependencies ready")

	return Deps{
		Cfg:     cfg,
		PG:      st.PG,
		CH:      st.CH,
		LLM:     p,
		Metrics: m,
	}, st.Close, nil
}
