package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/tumbig251800/atlas-wise-spark/internal/modkit"
	"github.com/tumbig251800/atlas-wise-spark/internal/platform/metrics"
	phttp "github.com/tumbig251800/atlas-wise-spark/internal/platform/net/http"
	dom "github.com/tumbig251800/atlas-wise-spark/internal/services/diagnostics/domain"
)

type engine struct{}

func (engine) Evaluate(context.Context, dom.Input) (dom.Result, error) { return dom.Result{}, nil }
func (engine) Enqueue(context.Context, dom.Input) (string, error)      { return "job-9", nil }
func (engine) Decision(_ context.Context, id string) (json.RawMessage, error) {
	return json.RawMessage(`{"id":"` + id + `"}`), nil
}
func (engine) ActiveStrikes(context.Context, string) ([]dom.ActiveStrike, error) { return nil, nil }

type engineModule struct{}

func (engineModule) MountRoutes(phttp.Router) {}
func (engineModule) Name() string             { return "diagnostics" }
func (engineModule) Ports() any {
	return struct {
		Evaluator dom.EvaluatorPort
		Enqueuer  dom.EnqueuePort
		Decisions dom.DecisionsPort
	}{engine{}, engine{}, engine{}}
}

func TestMount(t *testing.T) {
	m := metrics.New(metrics.WithRuntimeCollectors(false))
	r := phttp.AdaptChi(chi.NewRouter())
	mods := Mount(r, Options{
		Deps:          modkit.Deps{Metrics: m},
		EnableSwagger: true,
		Engine:        engineModule{},
	})
	if len(mods) != 2 || mods[0].Name() != "meta" || mods[1].Name() != "diagnostics-api" {
		t.Fatalf("modules %v", mods)
	}

	cases := []struct {
		method, path, body string
		want               int
		contains           string
	}{
		{http.MethodGet, "/api/v1/meta/health", "", http.StatusOK, `"service":"atlas-api"`},
		{http.MethodGet, "/api/v1/meta/ready", "", http.StatusOK, `"status":"ok"`},
		{http.MethodGet, "/api/v1/diagnostics/decisions/abc", "", http.StatusOK, `"id":"abc"`},
		{http.MethodPost, "/api/v1/diagnostics/jobs", `{"logId":"0b9d2f4e-6c1a-4e55-8a7b-3c2d1e0f9a8b"}`, http.StatusAccepted, `"jobId":"job-9"`},
		{http.MethodPost, "/api/v1/diagnostics/topics/aliases", `{"subject":"m","gradeLevel":"P.4","alias":"a","canonical":"A"}`, http.StatusServiceUnavailable, `alias table`},
		{http.MethodGet, "/api/docs/doc.json", "", http.StatusOK, `"/diagnostics/jobs"`},
		{http.MethodGet, "/metrics", "", http.StatusOK, `atlas_http_requests_total`},
		{http.MethodGet, "/debug/pprof/cmdline", "", http.StatusNotFound, ""},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		r.Mux().ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body)))
		if rec.Code != tc.want {
			t.Fatalf("%s %s = %d, want %d: %s", tc.method, tc.path, rec.Code, tc.want, rec.Body.String())
		}
		if !strings.Contains(rec.Body.String(), tc.contains) {
			t.Fatalf("%s %s body %q lacks %q", tc.method, tc.path, rec.Body.String(), tc.contains)
		}
	}
}
