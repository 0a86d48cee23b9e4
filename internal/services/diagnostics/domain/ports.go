// Package domain defines the diagnostic engine's types and the ports other
// modules call
package domain

import (
	"context"
	"encoding/json"
)

// EvaluatorPort runs the pipeline for one session and returns the result
type EvaluatorPort interface {
	Evaluate(ctx context.Context, in Input) (Result, error)
}

// EnqueuePort queues a session for the worker, idempotent per session
type EnqueuePort interface {
	Enqueue(ctx context.Context, in Input) (jobID string, err error)
}

// DecisionsPort reads stored decision objects and counters
type DecisionsPort interface {
	Decision(ctx context.Context, teachingLogID string) (json.RawMessage, error)
	ActiveStrikes(ctx context.Context, teacherID string) ([]ActiveStrike, error)
}

// AliasPort maintains the topic alias table
type AliasPort interface {
	UpsertAlias(ctx context.Context, a Alias) error
}

// WorkerPort is the queue run loop
type WorkerPort interface {
	Run(ctx context.Context) error
}
