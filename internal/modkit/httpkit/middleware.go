package httpkit

import (
	"compress/flate"
	"net/http"
	"time"

	"github.com/tumbig251800/atlas-wise-spark/internal/platform/config"
	"github.com/tumbig251800/atlas-wise-spark/internal/platform/metrics"
	"github.com/tumbig251800/atlas-wise-spark/internal/platform/net/middleware"
)

// StackOptions tunes CommonStack
type StackOptions struct {
	Metrics        *metrics.Manager
	RequestTimeout time.Duration
	SlowRequest    time.Duration
	AllowedOrigins []string
	// MaxInflight caps concurrent requests, 0 disables the throttle
	MaxInflight int
}

// StackFromConfig reads API_REQUEST_TIMEOUT, API_SLOW_REQUEST,
// API_CORS_ORIGINS and API_MAX_INFLIGHT
func StackFromConfig(cfg config.Conf, m *metrics.Manager) StackOptions {
	return StackOptions{
		Metrics:        m,
		RequestTimeout: cfg.MayDuration("API_REQUEST_TIMEOUT", 30*time.Second),
		SlowRequest:    cfg.MayDuration("API_SLOW_REQUEST", 500*time.Millisecond),
		AllowedOrigins: cfg.MayCSV("API_CORS_ORIGINS", nil),
		MaxInflight:    cfg.MayInt("API_MAX_INFLIGHT", 0),
	}
}

// CommonStack is the middleware every API route runs behind, outermost first
func CommonStack(o StackOptions) []func(http.Handler) http.Handler {
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 30 * time.Second
	}
	stack := []func(http.Handler) http.Handler{
		middleware.RealIP(),
		middleware.RequestID(),
		middleware.AccessLog(middleware.AccessLogOptions{Slow: o.SlowRequest, Metrics: o.Metrics}),
		middleware.RecoverJSON,
		middleware.CORS(middleware.CORSOptions{AllowedOrigins: o.AllowedOrigins}),
		middleware.NoCache(),
		middleware.Compress(flate.BestSpeed),
		middleware.StripSlashes(),
	}
	if o.MaxInflight > 0 {
		stack = append(stack, middleware.Throttle(o.MaxInflight, o.MaxInflight*4, o.RequestTimeout))
	}
	return append(stack, middleware.Timeout(o.RequestTimeout))
}
