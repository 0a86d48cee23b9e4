package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrDisabled is returned by the "none" provider
	ErrDisabled = errors.New("llm: provider disabled")

	errEmptyReply = errors.New("empty reply")
)

// RateLimitError is a 429 from the provider
type RateLimitError struct {
	Err error
}

func (e *RateLimitError) Error() string { return fmt.Sprintf("llm: rate limited: %v", e.Err) }
func (e *RateLimitError) Unwrap() error { return e.Err }

// InvalidReplyError is a reply that is not JSON or fails schema validation
type InvalidReplyError struct {
	Content json.RawMessage
	Err     error
}

func (e *InvalidReplyError) Error() string { return fmt.Sprintf("llm: invalid reply: %v", e.Err) }
func (e *InvalidReplyError) Unwrap() error { return e.Err }

// UnavailableError covers transport failures and 5xx responses
type UnavailableError struct {
	Err error
}

func (e *UnavailableError) Error() string {
	if e.Err == nil {
		return "llm: provider unavailable"
	}
	return fmt.Sprintf("llm: provider unavailable: %v", e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// Outcome buckets an error for logs and metrics
func Outcome(err error) string {
	var (
		rl  *RateLimitError
		inv *InvalidReplyError
		un  *UnavailableError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrDisabled):
		return "disabled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.As(err, &rl):
		return "rate_limited"
	case errors.As(err, &inv):
		return "invalid"
	case errors.As(err, &un):
		return "unavailable"
	default:
		return "error"
	}
}

// fromStatus maps an HTTP status from a provider SDK error
func fromStatus(status int, err error) error {
	if status == http.StatusTooManyRequests {
		return &RateLimitError{Err: err}
	}
	return &UnavailableError{Err: err}
}
