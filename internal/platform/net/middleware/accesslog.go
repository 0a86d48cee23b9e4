package middleware

import (
	"net/http"
	"time"

	"github.com/tumbig251800/atlas-wise-spark/internal/platform/logger"
	"github.com/tumbig251800/atlas-wise-spark/internal/platform/metrics"
	phttp "github.com/tumbig251800/atlas-wise-spark/internal/platform/net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// AccessLogOptions configures AccessLog
type AccessLogOptions struct {
	// Slow promotes requests at or above this duration to warn, 0 disables
	Slow time.Duration
	// Metrics receives one observation per request when set
	Metrics *metrics.Manager
}

// AccessLog writes one zerolog line per request and feeds the HTTP metrics.
// The route label is the matched pattern so path ids do not explode cardinality
func AccessLog(opt AccessLogOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			took := time.Since(start)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := phttp.RoutePattern(r)
			opt.Metrics.HTTPRequest(r.Method, route, status, took)

			log := logger.C(r.Context())
			evt := log.Info()
			switch {
			case status >= http.StatusInternalServerError:
				evt = log.Error()
			case opt.Slow > 0 && took >= opt.Slow:
				evt = log.Warn()
			}
			evt.Int("status", status).
				Dur("elapsed", took).
				Str("method", r.Method).
				Str("route", route).
				Str("path", r.URL.Path).
				Int("bytes", ww.BytesWritten()).
				Msg("request done")
		})
	}
}
