package metrics

import "github.com/prometheus/client_golang/prometheus"

// Option configures a Manager
type Option func(*Manager)

// WithNamespace overrides the "atlas" namespace
func WithNamespace(ns string) Option {
	return func(m *Manager) {
		if ns != "" {
			m.namespace = ns
		}
	}
}

// WithSubsystem overrides the "diagnostics" subsystem
func WithSubsystem(sub string) Option {
	return func(m *Manager) {
		if sub != "" {
			m.subsystem = sub
		}
	}
}

// WithBuckets sets latency histogram buckets
func WithBuckets(b []float64) Option {
	return func(m *Manager) {
		if len(b) > 0 {
			m.buckets = b
		}
	}
}

// WithEnabled turns recording on or off; instruments are still registered
func WithEnabled(on bool) Option {
	return func(m *Manager) { m.enabled = on }
}

// WithRuntimeCollectors toggles the Go and process collectors
func WithRuntimeCollectors(on bool) Option {
	return func(m *Manager) { m.runtime = on }
}

// WithRegistry registers on r instead of a fresh registry
func WithRegistry(r *prometheus.Registry) Option {
	return func(m *Manager) {
		if r != nil {
			m.registry = r
		}
	}
}
