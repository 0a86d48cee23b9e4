package http_test

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tumbig251800/atlas-wise-spark/internal/platform/config"
	phttp "github.com/tumbig251800/atlas-wise-spark/internal/platform/net/http"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := l.Addr().String()
	_ = l.Close()
	return addr
}

func TestServer_RunStopsOnCancel(t *testing.T) {
	addr := freeAddr(t)
	t.Setenv("API_PORT", addr)
	t.Setenv("API_SHUTDOWN_GRACE", "1s")

	srv := phttp.NewServer(config.New())
	if srv.Addr() != addr {
		t.Fatalf("Addr = %q, want %q", srv.Addr(), addr)
	}
	srv.Router().Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	var resp *http.Response
	var err error
	for i := 0; i < 50; i++ {
		resp, err = http.Get("http://" + addr + "/ping")
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("server never answered: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestServer_RunReportsListenError(t *testing.T) {
	t.Setenv("API_PORT", "256.0.0.1:bad")
	if err := phttp.NewServer(config.New()).Run(context.Background()); err == nil {
		t.Fatal("expected a listen error")
	}
}

func TestServer_OptsSeeMux(t *testing.T) {
	called := false
	srv := phttp.NewServer(config.New(), func(m *chi.Mux) {
		called = true
		m.Get("/from-opt", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) })
	})
	if !called {
		t.Fatal("opt not applied")
	}
	rec := httptest.NewRecorder()
	srv.Router().Mux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/from-opt", nil))
	if rec.Code != http.StatusTeapot {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestRouter_RoutesAndParams(t *testing.T) {
	r := phttp.AdaptChi(chi.NewRouter())
	var seenParam, seenPattern string
	r.Route("/api/v1", func(api phttp.Router) {
		api.Group(func(g phttp.Router) {
			g.Use(func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
					w.Header().Set("X-Group", "1")
					next.ServeHTTP(w, req)
				})
			})
			g.Get("/decisions/{logId}", func(w http.ResponseWriter, req *http.Request) {
				seenParam = phttp.Param(req, "logId")
				seenPattern = phttp.RoutePattern(req)
				w.WriteHeader(http.StatusOK)
			})
		})
		api.Post("/jobs", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusAccepted) })
		api.Delete("/jobs", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	})

	cases := []struct {
		method, path string
		want         int
		group        bool
	}{
		{http.MethodGet, "/api/v1/decisions/abc", http.StatusOK, true},
		{http.MethodPost, "/api/v1/jobs", http.StatusAccepted, false},
		{http.MethodDelete, "/api/v1/jobs", http.StatusNoContent, false},
		{http.MethodGet, "/api/v1/jobs", http.StatusMethodNotAllowed, false},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		r.Mux().ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
		if rec.Code != tc.want {
			t.Fatalf("%s %s = %d, want %d", tc.method, tc.path, rec.Code, tc.want)
		}
		if got := rec.Header().Get("X-Group") == "1"; got != tc.group {
			t.Fatalf("%s %s group middleware = %v", tc.method, tc.path, got)
		}
	}
	if seenParam != "abc" || seenPattern != "/api/v1/decisions/{logId}" {
		t.Fatalf("param %q pattern %q", seenParam, seenPattern)
	}
}

func TestRoutePattern_Unrouted(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/raw/path", nil)
	if got := phttp.RoutePattern(req); got != "/raw/path" {
		t.Fatalf("RoutePattern = %q", got)
	}
}

func TestMountProfiler(t *testing.T) {
	for _, enabled := range []bool{true, false} {
		r := phttp.AdaptChi(chi.NewRouter())
		phttp.MountProfiler(r, "/debug", enabled)

		rec := httptest.NewRecorder()
		r.Mux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/pprof/cmdline", nil))
		want := http.StatusNotFound
		if enabled {
			want = http.StatusOK
		}
		if rec.Code != want {
			t.Fatalf("enabled=%v: status %d, want %d", enabled, rec.Code, want)
		}
	}
}
