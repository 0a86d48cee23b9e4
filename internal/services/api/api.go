// Package api assembles the HTTP API: meta, diagnostics, docs and metrics
package api

import (
	"net/http"

	"github.com/tumbig251800/atlas-wise-spark/internal/modkit"
	"github.com/tumbig251800/atlas-wise-spark/internal/modkit/httpkit"
	"github.com/tumbig251800/atlas-wise-spark/internal/modkit/module"
	"github.com/tumbig251800/atlas-wise-spark/internal/modkit/swaggerkit"
	phttp "github.com/tumbig251800/atlas-wise-spark/internal/platform/net/http"

	diagapi "github.com/tumbig251800/atlas-wise-spark/internal/services/api/diagnostics/module"
	metamod "github.com/tumbig251800/atlas-wise-spark/internal/services/api/meta/module"
	dom "github.com/tumbig251800/atlas-wise-spark/internal/services/diagnostics/domain"
	diagmod "github.com/tumbig251800/atlas-wise-spark/internal/services/diagnostics/module"
)

// ServiceName is reported by the meta endpoints
const ServiceName = "atlas-api"

// Options are the API options
type Options struct {
	Deps           modkit.Deps
	Stack          httpkit.StackOptions
	EnableSwagger  bool
	EnableProfiler bool
	// Engine replaces the diagnostics module, mostly for tests
	Engine module.Module
}

// Mount builds the modules and mounts them on r. It returns the mounted
// modules in mount order
func Mount(r phttp.Router, opt Options) []module.Module {
	deps := opt.Deps

	engine := opt.Engine
	if engine == nil {
		engine = diagmod.New(deps, diagmod.Options{})
	}
	ports := diagapi.Ports{
		Evaluator: module.MustPortsOf[dom.EvaluatorPort](engine),
		Enqueuer:  module.MustPortsOf[dom.EnqueuePort](engine),
		Decisions: module.MustPortsOf[dom.DecisionsPort](engine),
	}
	if a, ok := module.PortsOf[dom.AliasPort](engine); ok {
		ports.Aliases = a
	}

	mods := []module.Module{
		metamod.New(deps, ServiceName),
		diagapi.New(deps, modkit.WithPorts(ports)),
	}

	swaggerkit.Mount(r, opt.EnableSwagger)
	phttp.MountProfiler(r, "/debug", opt.EnableProfiler)
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics.Handler())
	}
	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, "/api/v1/meta/health", http.StatusTemporaryRedirect)
	})

	httpkit.MountAPIV1(r, httpkit.CommonStack(opt.Stack), func(api httpkit.Router) {
		for _, m := range mods {
			m.MountRoutes(api)
		}
	})
	return mods
}
