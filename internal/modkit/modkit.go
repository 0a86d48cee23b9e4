// Package modkit is the module wiring layer: shared deps, build options and
// the Module contract every API and worker module satisfies
package modkit

import (
	"net/http"

	"github.com/tumbig251800/atlas-wise-spark/internal/modkit/module"
	pstrings "github.com/tumbig251800/atlas-wise-spark/internal/platform/strings"

	phttp "github.com/tumbig251800/atlas-wise-spark/internal/platform/net/http"
)

// Module is re-exported so callers only import modkit
type Module = module.Module

// Option configures a module at construction
type Option func(*Built)

// Built is the resolved module configuration
type Built struct {
	Name     string
	Prefix   string
	Mw       []func(http.Handler) http.Handler
	Ports    any
	Register func(phttp.Router)
}

// Build applies opts over zero defaults. Prefix is normalized when set
func Build(opts ...Option) Built {
	var b Built
	for _, o := range opts {
		o(&b)
	}
	if b.Prefix != "" {
		b.Prefix = pstrings.MustPrefix(b.Prefix)
	}
	return b
}

// Mount routes b's Register under its prefix and middleware
func (b Built) Mount(r phttp.Router) {
	if b.Register == nil {
		return
	}
	if b.Prefix == "" {
		r.Group(func(g phttp.Router) {
			g.Use(b.Mw...)
			b.Register(g)
		})
		return
	}
	r.Route(b.Prefix, func(sub phttp.Router) {
		sub.Use(b.Mw...)
		b.Register(sub)
	})
}

// WithName names the module for logs and port lookups
func WithName(name string) Option { return func(b *Built) { b.Name = name } }

// WithPrefix mounts the module under a path prefix
func WithPrefix(prefix string) Option { return func(b *Built) { b.Prefix = prefix } }

// WithMiddlewares appends module scoped middleware
func WithMiddlewares(mw ...func(http.Handler) http.Handler) Option {
	return func(b *Built) { b.Mw = append(b.Mw, mw...) }
}

// WithPorts injects ports owned by another module; the importing module
// asserts the concrete type
func WithPorts[T any](p T) Option { return func(b *Built) { b.Ports = p } }

// WithRegister adds routes after the module's own
func WithRegister(fn func(phttp.Router)) Option {
	return func(b *Built) {
		prev := b.Register
		b.Register = func(r phttp.Router) {
			if prev != nil {
				prev(r)
			}
			fn(r)
		}
	}
}
