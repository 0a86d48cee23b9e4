// Package httpkit is what modules import for routing and responses, so they
// never reach into internal/platform/net/http directly
package httpkit

import (
	"net/http"

	phttp "github.com/tumbig251800/atlas-wise-spark/internal/platform/net/http"
)

type (
	// Envelope is the wire envelope
	Envelope = phttp.Envelope
	// Response is what return-style handlers produce
	Response = phttp.Response
	// Handler is the platform handler type
	Handler = phttp.Handler
	// Router is the routing seam
	Router = phttp.Router
)

// OK is a 200
func OK(data any) Response { return phttp.OK(data) }

// Accepted is a 202
func Accepted(data any) Response { return phttp.Accepted(data) }

// Error maps err to its status
func Error(err error) Response { return phttp.Error(err) }

// Param returns a path parameter such as {logId}
func Param(r *http.Request, name string) string { return phttp.Param(r, name) }
