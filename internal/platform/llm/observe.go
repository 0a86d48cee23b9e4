package llm

import (
	"context"
	"time"

	"github.com/tumbig251800/atlas-wise-spark/internal/platform/logger"
)

// Observer receives one sample per completion
type Observer interface {
	ObserveLLM(provider, outcome string, took time.Duration)
}

type observed struct {
	inner Provider
	obs   Observer
	now   func() time.Time
}

// Observe wraps p so every completion is logged and handed to obs. obs may be
// nil
func Observe(p Provider, obs Observer) Provider {
	return &observed{inner: p, obs: obs, now: time.Now}
}

func (o *observed) Name() string  { return o.inner.Name() }
func (o *observed) Model() string { return o.inner.Model() }

func (o *observed) Complete(ctx context.Context, p Prompt) (*Reply, error) {
	start := o.now()
	r, err := o.inner.Complete(ctx, p)
	took := o.now().Sub(start)
	outcome := Outcome(err)

	if o.obs != nil {
		o.obs.ObserveLLM(o.inner.Name(), outcome, took)
	}

	l := logger.C(ctx)
	ev := l.Debug()
	if err != nil && outcome != "disabled" {
		ev = l.Warn().Err(err)
	}
	ev = ev.Str("provider", o.inner.Name()).
		Str("model", o.inner.Model()).
		Str("outcome", outcome).
		Dur("took", took)
	if p.Schema != nil {
		ev = ev.Str("schema", p.Schema.Name)
	}
	if r != nil {
		ev = ev.Int("tokens", r.Usage.Total()).Str("stop", r.Stop)
	}
	ev.Msg("llm completion")

	return r, err
}
