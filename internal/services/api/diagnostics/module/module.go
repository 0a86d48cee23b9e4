// Package module mounts the diagnostics API. The engine itself lives in
// services/diagnostics; its ports are injected with modkit.WithPorts
package module

import (
	"github.com/tumbig251800/atlas-wise-spark/internal/modkit"
	"github.com/tumbig251800/atlas-wise-spark/internal/modkit/httpkit"

	dhttp "github.com/tumbig251800/atlas-wise-spark/internal/services/api/diagnostics/http"
)

// Ports are the engine ports this module requires
type Ports = dhttp.Ports

// Module implements modkit.Module
type Module struct {
	b     modkit.Built
	ports Ports
}

// New builds the module. It panics when the injected ports are incomplete,
// since the API cannot serve without them
func New(_ modkit.Deps, opts ...modkit.Option) *Module {
	var m Module
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("diagnostics-api"),
		modkit.WithPrefix("/diagnostics"),
	}, opts...)...)

	p, ok := b.Ports.(Ports)
	if !ok || p.Evaluator == nil || p.Enqueuer == nil || p.Decisions == nil {
		panic("diagnostics API module requires the Evaluator, Enqueuer and Decisions ports")
	}
	m.ports = p

	own := func(r httpkit.Router) { dhttp.Register(r, m.ports) }
	if ext := b.Register; ext != nil {
		b.Register = func(r httpkit.Router) { own(r); ext(r) }
	} else {
		b.Register = own
	}
	m.b = b
	return &m
}

// MountRoutes implements modkit.Module
func (m *Module) MountRoutes(r httpkit.Router) { m.b.Mount(r) }

// Name implements modkit.Module
func (m *Module) Name() string { return m.b.Name }

// Ports returns the injected engine ports
func (m *Module) Ports() any { return m.ports }
