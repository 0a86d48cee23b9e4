// Package module mounts the meta endpoints: health, readiness and version
package module

import (
	"time"

	"github.com/tumbig251800/atlas-wise-spark/internal/modkit"
	"github.com/tumbig251800/atlas-wise-spark/internal/modkit/httpkit"
	"github.com/tumbig251800/atlas-wise-spark/internal/platform/store"

	metahttp "github.com/tumbig251800/atlas-wise-spark/internal/services/api/meta/http"
)

// Module implements modkit.Module
type Module struct {
	b modkit.Built
}

// New builds the meta module. Readiness pings whatever deps.PG and deps.CH
// hold; a nil backend reports skipped
func New(deps modkit.Deps, service string, opts ...modkit.Option) *Module {
	started := time.Now()
	checks := map[string]store.Pinger{}
	if p, ok := deps.PG.(store.Pinger); ok {
		checks["pg"] = p
	}
	if deps.CH != nil {
		checks["ch"] = deps.CH
	}
	register := func(r httpkit.Router) {
		metahttp.Register(r, metahttp.Deps{
			ServiceName: service,
			StartedAt:   started,
			Checks:      checks,
			Optional:    map[string]bool{"ch": true},
		})
	}
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("meta"),
		modkit.WithPrefix("/meta"),
		modkit.WithRegister(register),
	}, opts...)...)
	return &Module{b: b}
}

// MountRoutes implements modkit.Module
func (m *Module) MountRoutes(r httpkit.Router) { m.b.Mount(r) }

// Name implements modkit.Module
func (m *Module) Name() string { return m.b.Name }

// Ports implements modkit.Module; meta exposes none
func (m *Module) Ports() any { return nil }
