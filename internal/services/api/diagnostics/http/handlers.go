// Package http is the HTTP transport of the diagnostic engine
package http

import (
	stdhttp "net/http"

	"github.com/tumbig251800/atlas-wise-spark/internal/modkit/httpkit"
	perr "github.com/tumbig251800/atlas-wise-spark/internal/platform/errors"
	dom "github.com/tumbig251800/atlas-wise-spark/internal/services/diagnostics/domain"
)

// Ports are the engine ports the handlers call
type Ports struct {
	Evaluator dom.EvaluatorPort
	Enqueuer  dom.EnqueuePort
	Decisions dom.DecisionsPort
	Aliases   dom.AliasPort
}

// JobAccepted is returned when a session was queued
type JobAccepted struct {
	JobID string `json:"jobId"`
	LogID string `json:"logId"`
}

// Register mounts the diagnostics routes
func Register(r httpkit.Router, p Ports) {
	h := &handlers{p: p}
	httpkit.PostJSON(r, "/jobs", h.enqueue)
	httpkit.PostJSON(r, "/evaluate", h.evaluate)
	httpkit.Get(r, "/decisions/{logId}", h.decision)
	httpkit.Get(r, "/strikes/{teacherId}", h.strikes)
	httpkit.PostJSON(r, "/topics/aliases", h.alias)
}

type handlers struct{ p Ports }

// @Summary Queue a session for evaluation
// @Tags diagnostics
// @Accept json
// @Produce json
// @Param payload body domain.Input true "Session and remedial statuses"
// @Success 202 {object} JobAccepted
// @Router /diagnostics/jobs [post]
func (h *handlers) enqueue(r *stdhttp.Request, in dom.Input) (any, error) {
	id, err := h.p.Enqueuer.Enqueue(r.Context(), in)
	if err != nil {
		return nil, err
	}
	return httpkit.Accepted(JobAccepted{JobID: id, LogID: in.TeachingLogID}), nil
}

// @Summary Evaluate a session synchronously
// @Tags diagnostics
// @Accept json
// @Produce json
// @Param payload body domain.Input true "Session and remedial statuses"
// @Success 200 {object} domain.Result
// @Failure 404 {object} httpkit.Envelope
// @Router /diagnostics/evaluate [post]
func (h *handlers) evaluate(r *stdhttp.Request, in dom.Input) (any, error) {
	return h.p.Evaluator.Evaluate(r.Context(), in)
}

// @Summary Stored decision object of a session
// @Tags diagnostics
// @Produce json
// @Param logId path string true "teaching log id"
// @Success 200 {object} decision.Object
// @Failure 404 {object} httpkit.Envelope
// @Router /diagnostics/decisions/{logId} [get]
func (h *handlers) decision(r *stdhttp.Request) (any, error) {
	return h.p.Decisions.Decision(r.Context(), httpkit.Param(r, "logId"))
}

// @Summary Active and referred strike counters of a teacher
// @Tags diagnostics
// @Produce json
// @Param teacherId path string true "teacher id"
// @Success 200 {array} domain.ActiveStrike
// @Router /diagnostics/strikes/{teacherId} [get]
func (h *handlers) strikes(r *stdhttp.Request) (any, error) {
	rows, err := h.p.Decisions.ActiveStrikes(r.Context(), httpkit.Param(r, "teacherId"))
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []dom.ActiveStrike{}
	}
	return rows, nil
}

// @Summary Map a topic spelling to its canonical name
// @Tags diagnostics
// @Accept json
// @Produce json
// @Param payload body domain.Alias true "Alias"
// @Success 200 {object} domain.Alias
// @Router /diagnostics/topics/aliases [post]
func (h *handlers) alias(r *stdhttp.Request, a dom.Alias) (any, error) {
	if h.p.Aliases == nil {
		return nil, perr.Unavailablef("alias table is not configured")
	}
	if err := h.p.Aliases.UpsertAlias(r.Context(), a); err != nil {
		return nil, err
	}
	return a, nil
}
