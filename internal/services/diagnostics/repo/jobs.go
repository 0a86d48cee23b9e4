package repo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/tumbig251800/atlas-wise-spark/internal/platform/store"
	"github.com/tumbig251800/atlas-wise-spark/internal/services/diagnostics/domain"

	perr "github.com/tumbig251800/atlas-wise-spark/internal/platform/errors"
)

// EnqueueJob idempotently creates (or refreshes) the job for a session. A
// repeat enqueue replaces the remedial statuses and makes the job due now
func (r *queries) EnqueueJob(ctx context.Context, teachingLogID string, statuses json.RawMessage) (string, error) {
	const sql = `
		INSERT INTO diagnostic_jobs (teaching_log_id, remedial_statuses)
		VALUES ($1, $2::jsonb)
		ON CONFLICT (teaching_log_id) DO UPDATE
		SET remedial_statuses = EXCLUDED.remedial_statuses,
		    next_attempt_at   = LEAST(diagnostic_jobs.next_attempt_at, now()),
		    updated_at        = now()
		RETURNING job_id::text
	`
	var doc *string
	if len(statuses) > 0 {
		s := string(statuses)
		doc = &s
	}
	id, err := store.Scalar[string](ctx, r.q, sql, teachingLogID, doc)
	if err != nil {
		return "", perr.FromPostgres(err, "enqueue job")
	}
	return id, nil
}

// LeaseJobs leases up to limit due jobs. Expired leases are taken over
func (r *queries) LeaseJobs(ctx context.Context, workerID string, limit int, leaseFor time.Duration) ([]domain.Job, error) {
	if workerID == "" {
		workerID = uuid.NewString()
	}
	const sql = `
		WITH ready AS (
			SELECT job_id
			  FROM diagnostic_jobs
			 WHERE (leased_by IS NULL OR lease_expires_at < now())
			   AND next_attempt_at <= now()
			 ORDER BY next_attempt_at ASC
			 LIMIT $1
			 FOR UPDATE SKIP LOCKED
		), upd AS (
			UPDATE diagnostic_jobs j
			   SET leased_by        = $2,
			       lease_expires_at = now() + make_interval(secs => $3),
			       updated_at       = now()
			 WHERE j.job_id IN (SELECT job_id FROM ready)
			RETURNING j.*
		)
		SELECT job_id::text, teaching_log_id::text, COALESCE(remedial_statuses::text, ''),
		       attempts, next_attempt_at, leased_by, lease_expires_at, created_at
		  FROM upd
	`
	jobs, err := store.Many(ctx, r.q, func(row store.Row) (domain.Job, error) {
		var (
			j   domain.Job
			doc string
		)
		err := row.Scan(&j.JobID, &j.TeachingLogID, &doc,
			&j.Attempts, &j.NextAttemptAt, &j.LeasedBy, &j.LeaseExpires, &j.CreatedAt)
		if doc != "" {
			j.Statuses = json.RawMessage(doc)
		}
		return j, err
	}, sql, limit, workerID, leaseFor.Seconds())
	if err != nil {
		return nil, perr.FromPostgres(err, "lease jobs")
	}
	return jobs, nil
}

// CompleteJob removes a finished or abandoned job
func (r *queries) CompleteJob(ctx context.Context, jobID string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM diagnostic_jobs WHERE job_id = $1`, jobID); err != nil {
		return perr.FromPostgres(err, "complete job")
	}
	return nil
}

// RequeueJob releases the lease and schedules another attempt
func (r *queries) RequeueJob(ctx context.Context, jobID, lastErr string, next time.Time) error {
	const sql = `
		UPDATE diagnostic_jobs
		   SET attempts         = attempts + 1,
		       last_error       = NULLIF($2, ''),
		       next_attempt_at  = $3,
		       leased_by        = NULL,
		       lease_expires_at = NULL,
		       updated_at       = now()
		 WHERE job_id = $1
	`
	if _, err := r.q.Exec(ctx, sql, jobID, lastErr, next); err != nil {
		return perr.FromPostgres(err, "requeue job")
	}
	return nil
}
