// Package net holds the request scoped values shared by the HTTP layers
package net

import (
	"context"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// WithRequestID stores id where both chi and RequestID can find it
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, chimw.RequestIDKey, id)
}

// RequestID returns the request id set by the request id middleware, or ""
func RequestID(ctx context.Context) string {
	return chimw.GetReqID(ctx)
}
