package service

import (
	"context"
	"sync"
	"time"

	"github.com/tumbig251800/atlas-wise-spark/internal/platform/logger"

	perr "github.com/tumbig251800/atlas-wise-spark/internal/platform/errors"
	dom "github.com/tumbig251800/atlas-wise-spark/internal/services/diagnostics/domain"
)

// Run leases due jobs on a ticker and evaluates them with bounded
// concurrency. It returns once ctx is done and in-flight jobs have finished
func (s *Svc) Run(ctx context.Context) error {
	log := logger.Named("diagnostics-worker")
	sem := make(chan struct{}, max(1, s.cfg.Concurrency))
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			jobs, err := s.repo.LeaseJobs(ctx, s.cfg.WorkerID, max(1, s.cfg.Batch), s.lease())
			if err != nil {
				if ctx.Err() == nil {
					log.Error().Err(err).Msg("lease jobs failed")
				}
				continue
			}
			for i := range jobs {
				select {
				case sem <- struct{}{}:
				case <-ctx.Done():
					return ctx.Err()
				}
				j := jobs[i]
				wg.Add(1)
				s.metrics.Inflight(1)
				go func() {
					defer func() {
						<-sem
						s.metrics.Inflight(-1)
						wg.Done()
					}()
					s.handleJob(ctx, j)
				}()
			}
		}
	}
}

// handleJob evaluates one job and settles it: delete on success or a
// permanent failure, requeue with backoff otherwise. A job interrupted by
// shutdown is left leased and picked up again once the lease expires
func (s *Svc) handleJob(ctx context.Context, j dom.Job) {
	log := logger.Named("diagnostics-worker").With().
		Str("job_id", j.JobID).
		Str("teaching_log_id", j.TeachingLogID).
		Int("attempts", j.Attempts).
		Logger()

	in, err := j.Input()
	if err == nil {
		_, err = s.Evaluate(ctx, in)
	} else {
		err = perr.Wrap(err, perr.ErrorCodeJSON, "decode job statuses")
	}
	if err != nil && ctx.Err() != nil {
		return
	}

	switch {
	case err == nil:
		s.settle(ctx, log, j, "done")
	case permanent(err):
		log.Warn().Err(err).Msg("dropping job")
		s.settle(ctx, log, j, "dropped")
	case j.Attempts+1 >= max(1, s.cfg.MaxAttempts):
		log.Error().Err(err).Msg("job exhausted its attempts")
		s.settle(ctx, log, j, "dropped")
	default:
		next := s.now().Add(backoff(j.Attempts, s.cfg.RetryBase))
		if rqErr := s.repo.RequeueJob(ctx, j.JobID, err.Error(), next); rqErr != nil {
			log.Error().Err(rqErr).Msg("requeue failed")
			return
		}
		log.Warn().Err(err).Time("next_attempt_at", next).Msg("job requeued")
		s.metrics.Job("retry")
	}
}

func (s *Svc) settle(ctx context.Context, log logger.Logger, j dom.Job, result string) {
	if err := s.repo.CompleteJob(ctx, j.JobID); err != nil {
		log.Error().Err(err).Msg("complete job failed")
		return
	}
	s.metrics.Job(result)
}

func (s *Svc) lease() time.Duration {
	if s.cfg.Lease > 0 {
		return s.cfg.Lease
	}
	return time.Minute
}

// permanent reports failures a retry cannot fix
func permanent(err error) bool {
	switch perr.CodeOf(err) {
	case perr.ErrorCodeNotFound, perr.ErrorCodeInvalidArgument, perr.ErrorCodeValidation, perr.ErrorCodeJSON:
		return true
	}
	return false
}

// backoff doubles from base per attempt, capped at maxBackoff
func backoff(attempts int, base time.Duration) time.Duration {
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	d := base
	for i := 0; i < attempts && d < maxBackoff; i++ {
		d *= 2
	}
	return min(d, maxBackoff)
}
