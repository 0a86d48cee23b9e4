// Package module wires the diagnostics service and exposes its ports
package module

import (
	"os"
	"strconv"

	"github.com/tumbig251800/atlas-wise-spark/internal/modkit"
	"github.com/tumbig251800/atlas-wise-spark/internal/modkit/httpkit"
	"github.com/tumbig251800/atlas-wise-spark/internal/services/diagnostics/service"
)

// Module defines the diagnostics module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs the module. Non-zero overrides win over config
func New(deps modkit.Deps, overrides Options, opts ...service.Option) *Module {
	o := merge(FromConfig(deps.Cfg), overrides)
	if o.WorkerID == "" {
		host, _ := os.Hostname()
		o.WorkerID = "diag-" + host + "-" + strconv.Itoa(os.Getpid())
	}

	svc := service.New(deps, service.Config{
		WorkerID:          o.WorkerID,
		Concurrency:       o.Concurrency,
		Batch:             o.Batch,
		Lease:             o.Lease,
		MaxAttempts:       o.MaxAttempts,
		RetryBase:         o.RetryBase,
		StrikeLockTimeout: o.StrikeLockTimeout,
		TopicTimeout:      o.TopicTimeout,
	}, opts...)

	return &Module{deps: deps, ports: Ports{
		Evaluator: svc,
		Enqueuer:  svc,
		Decisions: svc,
		Aliases:   svc,
		Worker:    svc,
	}}
}

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Typed returns the ports without the type assertion
func (m *Module) Typed() Ports { return m.ports }

// Name returns the module name
func (m *Module) Name() string { return "diagnostics" }

// Prefix returns the module config prefix
func (m *Module) Prefix() string { return "DIAG_" }

// MountRoutes returns no HTTP routes; the API module owns them
func (m *Module) MountRoutes(_ httpkit.Router) {}
