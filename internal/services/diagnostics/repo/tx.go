package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/tumbig251800/atlas-wise-spark/internal/core/strike"
	"github.com/tumbig251800/atlas-wise-spark/internal/modkit/repokit"
	"github.com/tumbig251800/atlas-wise-spark/internal/services/diagnostics/domain"
)

// Store runs the multi-statement writes of an evaluation, each in its own
// transaction. Plain reads go through Repo
type Store struct {
	db     repokit.TxRunner
	locked repokit.TxRunner
	binder repokit.Binder[Repo]
	repo   Repo
}

// NewStore builds a Store. Counter transactions give up waiting for a row lock
// after lockTimeout
func NewStore(db repokit.TxRunner, binder repokit.Binder[Repo], lockTimeout time.Duration) *Store {
	return &Store{
		db:     db,
		locked: repokit.WithBeginHooks(db, LockTimeout(lockTimeout)),
		binder: binder,
		repo:   binder.Bind(db),
	}
}

// LockTimeout bounds row lock waits for the rest of the transaction
func LockTimeout(d time.Duration) repokit.BeginHook {
	ms := fmt.Sprintf("%dms", d.Milliseconds())
	return func(ctx context.Context, q repokit.Queryer) error {
		if d <= 0 {
			return nil
		}
		_, err := q.Exec(ctx, `SELECT set_config('lock_timeout', $1, true)`, ms)
		return err
	}
}

// Repo returns the non-transactional repo
func (s *Store) Repo() Repo { return s.repo }

// ClassResult is the class ladder outcome plus the pivot row id when one was
// recorded
type ClassResult struct {
	Outcome strike.ClassOutcome
	PivotID string
}

// ApplyClassStrike locks the class counter, applies the transition, records a
// pivot when one fires, and persists the new state in one transaction. Only a
// striking session opens a counter. The skip actions and a reset with no
// counter hold the lock and write nothing. Running a session again reports
// what it recorded the first time instead of striking twice
func (s *Store) ApplyClassStrike(
	ctx context.Context,
	k strike.Key,
	meta domain.StrikeMeta,
	classID string,
	in strike.ClassInput,
) (ClassResult, error) {
	var res ClassResult
	err := s.locked.Tx(ctx, func(q repokit.Queryer) error {
		r := s.binder.Bind(q)
		strikes := in.Strikes()
		if strikes {
			if err := r.EnsureClassStrike(ctx, k, meta); err != nil {
				return err
			}
		}
		rowID, cur, err := r.LockClassStrike(ctx, k)
		if err != nil {
			return err
		}
		if strikes {
			id, p, found, err := r.PivotByTrigger(ctx, in.SessionID)
			if err != nil {
				return err
			}
			if found {
				res = ClassResult{Outcome: strike.ReplayPivot(p.Evidence, p.Reason), PivotID: id}
				return nil
			}
		}

		out, next, write := strike.EvaluateClass(cur, in)
		if out.Pivot {
			id, err := r.InsertPivot(ctx, domain.Pivot{
				TeacherID:        k.TeacherID,
				ClassID:          classID,
				Subject:          meta.Subject,
				NormalizedTopic:  k.NormalizedTopic,
				Evidence:         out.Evidence,
				Reason:           out.Reason,
				TriggerSessionID: in.SessionID,
			})
			if err != nil {
				return err
			}
			res.PivotID = id
		}
		if write && rowID != "" {
			if err := r.SaveClassStrike(ctx, rowID, next, meta.GapType); err != nil {
				return err
			}
		}
		res.Outcome = out
		return nil
	})
	if err != nil {
		return ClassResult{}, err
	}
	return res, nil
}

// ApplyStudentOutcome records one student's reported outcome and moves the
// student's counter in the same transaction. applied is false when the
// session already reported this student; the counter is then left alone
func (s *Store) ApplyStudentOutcome(
	ctx context.Context,
	k strike.Key,
	meta domain.StrikeMeta,
	m domain.Remedial,
	eligible bool,
) (next strike.StudentState, applied bool, err error) {
	err = s.locked.Tx(ctx, func(q repokit.Queryer) error {
		r := s.binder.Bind(q)
		rowID, cur, err := r.LockStudentStrike(ctx, k)
		if err != nil {
			return err
		}
		inserted, err := r.InsertRemedial(ctx, m)
		if err != nil {
			return err
		}
		if !inserted {
			next = cur
			return nil
		}
		applied = true
		var step strike.StudentStep
		next, step = strike.EvaluateStudent(cur, m.Status, eligible)
		switch step {
		case strike.StepInsert:
			return r.InsertStudentStrike(ctx, k, meta, m.TeachingLogID)
		case strike.StepUpdate:
			return r.UpdateStudentStrike(ctx, rowID, next, m.TeachingLogID, meta.GapType)
		case strike.StepNone:
		}
		return nil
	})
	if err != nil {
		return strike.StudentState{}, false, err
	}
	return next, applied, nil
}

// WriteEvents writes the canonical row and the per-student rows atomically
func (s *Store) WriteEvents(ctx context.Context, canonical domain.Event, students []domain.Event) error {
	return s.db.Tx(ctx, func(q repokit.Queryer) error {
		r := s.binder.Bind(q)
		if err := r.UpsertCanonicalEvent(ctx, canonical); err != nil {
			return err
		}
		for _, e := range students {
			if err := r.InsertStudentEvent(ctx, e); err != nil {
				return err
			}
		}
		return nil
	})
}
