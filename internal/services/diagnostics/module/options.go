package module

import (
	"time"

	"github.com/tumbig251800/atlas-wise-spark/internal/platform/config"
)

// Options controls the diagnostics pipeline and worker
type Options struct {
	WorkerID          string
	Concurrency       int
	Batch             int
	Lease             time.Duration
	MaxAttempts       int
	RetryBase         time.Duration
	StrikeLockTimeout time.Duration
	TopicTimeout      time.Duration
}

// FromConfig reads with the DIAG_ prefix
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("DIAG_")
	return Options{
		WorkerID:          c.MayString("WORKER_ID", ""),
		Concurrency:       c.MayInt("WORKER_CONCURRENCY", 4),
		Batch:             c.MayInt("WORKER_BATCH", 16),
		Lease:             c.MayDuration("WORKER_LEASE", 60*time.Second),
		MaxAttempts:       c.MayInt("WORKER_MAX_ATTEMPTS", 8),
		RetryBase:         c.MayDuration("WORKER_RETRY_BASE", 500*time.Millisecond),
		StrikeLockTimeout: c.MayDuration("STRIKE_LOCK_TIMEOUT", 3*time.Second),
		TopicTimeout:      c.MayDuration("TOPIC_TIMEOUT", 8*time.Second),
	}
}

// merge applies the non-zero fields of o over base
func merge(base, o Options) Options {
	if o.WorkerID != "" {
		base.WorkerID = o.WorkerID
	}
	if o.Concurrency != 0 {
		base.Concurrency = o.Concurrency
	}
	if o.Batch != 0 {
		base.Batch = o.Batch
	}
	if o.Lease != 0 {
		base.Lease = o.Lease
	}
	if o.MaxAttempts != 0 {
		base.MaxAttempts = o.MaxAttempts
	}
	if o.RetryBase != 0 {
		base.RetryBase = o.RetryBase
	}
	if o.StrikeLockTimeout != 0 {
		base.StrikeLockTimeout = o.StrikeLockTimeout
	}
	if o.TopicTimeout != 0 {
		base.TopicTimeout = o.TopicTimeout
	}
	return base
}
