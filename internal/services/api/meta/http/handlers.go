// Package http serves the meta endpoints
package http

import (
	"context"
	"net/http"
	"slices"
	"sort"
	"time"

	"github.com/tumbig251800/atlas-wise-spark/internal/core/version"
	"github.com/tumbig251800/atlas-wise-spark/internal/modkit/httpkit"
	"github.com/tumbig251800/atlas-wise-spark/internal/platform/store"
)

// Deps are the handler dependencies
type Deps struct {
	ServiceName string
	StartedAt   time.Time
	// Checks are pinged by /ready, keyed by backend name
	Checks map[string]store.Pinger
	// Optional backends degrade readiness instead of failing it
	Optional map[string]bool
	// Expected lists backends reported as skipped when absent from Checks
	Expected []string
}

type handlers struct {
	deps Deps
	now  func() time.Time
}

// Register mounts the meta routes
func Register(r httpkit.Router, d Deps) {
	if d.Expected == nil {
		d.Expected = []string{"pg", "ch"}
	}
	h := &handlers{deps: d, now: time.Now}
	httpkit.Get(r, "/health", h.health)
	httpkit.Get(r, "/ready", h.ready)
	httpkit.Get(r, "/version", h.version)
}

// HealthResponse is the liveness payload
type HealthResponse struct {
	OK      bool   `json:"ok"`
	Service string `json:"service"`
	Started string `json:"started"`
	Uptime  int64  `json:"uptime"`
}

// ReadyCheck is one dependency probe: ok, fail or skipped
type ReadyCheck struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// ReadyResponse summarizes readiness: ok, degraded or fail
type ReadyResponse struct {
	Status string       `json:"status"`
	Checks []ReadyCheck `json:"checks"`
	Now    string       `json:"now"`
}

// @Summary Liveness
// @Tags Meta
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /meta/health [get]
func (h *handlers) health(_ *http.Request) (any, error) {
	return HealthResponse{
		OK:      true,
		Service: h.deps.ServiceName,
		Started: h.deps.StartedAt.UTC().Format(time.RFC3339),
		Uptime:  int64(h.now().Sub(h.deps.StartedAt) / time.Second),
	}, nil
}

// @Summary Readiness with dependency checks
// @Tags Meta
// @Produce json
// @Success 200 {object} ReadyResponse
// @Failure 503 {object} httpkit.Envelope
// @Router /meta/ready [get]
func (h *handlers) ready(r *http.Request) (any, error) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	names := append([]string(nil), h.deps.Expected...)
	for name := range h.deps.Checks {
		if !slices.Contains(names, name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	resp := ReadyResponse{Status: "ok", Now: h.now().UTC().Format(time.RFC3339)}
	for _, name := range names {
		c := ReadyCheck{Name: name, Status: "skipped"}
		if p, ok := h.deps.Checks[name]; ok {
			c.Status = "ok"
			if err := p.Ping(ctx); err != nil {
				c.Status, c.Error = "fail", err.Error()
				if h.deps.Optional[name] {
					if resp.Status == "ok" {
						resp.Status = "degraded"
					}
				} else {
					resp.Status = "fail"
				}
			}
		}
		resp.Checks = append(resp.Checks, c)
	}
	if resp.Status == "fail" {
		return httpkit.Response{Status: http.StatusServiceUnavailable, Body: resp}, nil
	}
	return resp, nil
}

// @Summary Build and decision engine version
// @Tags Meta
// @Produce json
// @Success 200 {object} version.BuildInfo
// @Router /meta/version [get]
func (h *handlers) version(_ *http.Request) (any, error) {
	return version.Info(h.deps.ServiceName), nil
}
