package repo

import (
	"context"

	"github.com/tumbig251800/atlas-wise-spark/internal/core/strike"
	"github.com/tumbig251800/atlas-wise-spark/internal/platform/store"
	"github.com/tumbig251800/atlas-wise-spark/internal/services/diagnostics/domain"

	perr "github.com/tumbig251800/atlas-wise-spark/internal/platform/errors"
)

const activeWhere = `
	teacher_id = $1 AND scope = $2 AND scope_id = $3 AND normalized_topic = $4 AND status = 'active'
`

// EnsureClassStrike opens the active class counter at zero unless one exists
func (r *queries) EnsureClassStrike(ctx context.Context, k strike.Key, meta domain.StrikeMeta) error {
	const sql = `
		INSERT INTO strike_counter (
			teacher_id, scope, scope_id, normalized_topic, topic, subject, gap_type, strike_count, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, 0, 'active')
		ON CONFLICT (teacher_id, scope, scope_id, normalized_topic) WHERE status = 'active'
		DO NOTHING
	`
	if _, err := r.q.Exec(ctx, sql,
		k.TeacherID, string(k.Scope), k.ScopeID, k.NormalizedTopic, meta.Topic, meta.Subject, meta.GapType,
	); err != nil {
		return perr.FromPostgres(err, "ensure class strike")
	}
	return nil
}

// LockClassStrike locks the active class counter for the rest of the
// transaction. A missing row returns an empty id and the zero state
func (r *queries) LockClassStrike(ctx context.Context, k strike.Key) (string, strike.ClassState, error) {
	sql := `SELECT id::text, strike_count, COALESCE(last_session_id::text, '')
	          FROM strike_counter WHERE` + activeWhere + `FOR UPDATE`
	var (
		id string
		st strike.ClassState
	)
	err := r.q.QueryRow(ctx, sql, k.TeacherID, string(k.Scope), k.ScopeID, k.NormalizedTopic).
		Scan(&id, &st.Count, &st.LastSessionID)
	switch {
	case perr.IsNoRows(err):
		return "", strike.ClassState{}, nil
	case err != nil:
		return "", strike.ClassState{}, perr.FromPostgres(err, "lock class strike")
	}
	return id, st, nil
}

// SaveClassStrike writes the next class state to a locked row
func (r *queries) SaveClassStrike(ctx context.Context, rowID string, st strike.ClassState, gapType string) error {
	const sql = `
		UPDATE strike_counter
		   SET strike_count    = $2,
		       last_session_id = NULLIF($3, '')::uuid,
		       gap_type        = $4,
		       first_strike_at = CASE WHEN $2::int = 0 THEN NULL ELSE COALESCE(first_strike_at, now()) END,
		       last_updated    = now()
		 WHERE id = $1
	`
	if err := store.ExecOne(ctx, r.q, sql, rowID, st.Count, st.LastSessionID, gapType); err != nil {
		return perr.FromPostgres(err, "save class strike")
	}
	return nil
}

// InsertPivot records an immutable pivot event and returns its id
func (r *queries) InsertPivot(ctx context.Context, p domain.Pivot) (string, error) {
	const sql = `
		INSERT INTO pivot_events (
			teacher_id, class_id, subject, normalized_topic, evidence_refs, reason_code, trigger_session_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id::text
	`
	id, err := store.Scalar[string](ctx, r.q, sql,
		p.TeacherID, p.ClassID, p.Subject, p.NormalizedTopic, p.Evidence, p.Reason, p.TriggerSessionID)
	if err != nil {
		return "", perr.FromPostgres(err, "insert pivot")
	}
	return id, nil
}

// PivotByTrigger finds the pivot a session already raised
func (r *queries) PivotByTrigger(ctx context.Context, sessionID string) (string, domain.Pivot, bool, error) {
	const sql = `
		SELECT id::text, teacher_id::text, class_id, subject, normalized_topic, evidence_refs, reason_code
		  FROM pivot_events WHERE trigger_session_id = $1
	`
	var (
		id string
		p  = domain.Pivot{TriggerSessionID: sessionID}
	)
	err := r.q.QueryRow(ctx, sql, sessionID).
		Scan(&id, &p.TeacherID, &p.ClassID, &p.Subject, &p.NormalizedTopic, &p.Evidence, &p.Reason)
	switch {
	case perr.IsNoRows(err):
		return "", domain.Pivot{}, false, nil
	case err != nil:
		return "", domain.Pivot{}, false, perr.FromPostgres(err, "find pivot")
	}
	return id, p, true, nil
}

// LockStudentStrike locks the active student counter if there is one
func (r *queries) LockStudentStrike(ctx context.Context, k strike.Key) (string, strike.StudentState, error) {
	sql := `SELECT id::text, strike_count, status FROM strike_counter WHERE` + activeWhere + `FOR UPDATE`
	var (
		id     string
		st     strike.StudentState
		status string
	)
	err := r.q.QueryRow(ctx, sql, k.TeacherID, string(k.Scope), k.ScopeID, k.NormalizedTopic).
		Scan(&id, &st.Count, &status)
	switch {
	case perr.IsNoRows(err):
		return "", strike.StudentState{}, nil
	case err != nil:
		return "", strike.StudentState{}, perr.FromPostgres(err, "lock student strike")
	}
	st.Exists = true
	st.Status = strike.Status(status)
	return id, st, nil
}

// InsertStudentStrike opens a student counter at its first strike
func (r *queries) InsertStudentStrike(ctx context.Context, k strike.Key, meta domain.StrikeMeta, sessionID string) error {
	const sql = `
		INSERT INTO strike_counter (
			teacher_id, scope, scope_id, normalized_topic, topic, subject, gap_type,
			strike_count, status, last_session_id, first_strike_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, 1, 'active', $8, now())
		ON CONFLICT (teacher_id, scope, scope_id, normalized_topic) WHERE status = 'active'
		DO NOTHING
	`
	tag, err := r.q.Exec(ctx, sql,
		k.TeacherID, string(k.Scope), k.ScopeID, k.NormalizedTopic, meta.Topic, meta.Subject, meta.GapType, sessionID)
	if err != nil {
		return perr.FromPostgres(err, "insert student strike")
	}
	if tag.RowsAffected() != 1 {
		return perr.Newf(perr.ErrorCodeConflict, "student %s counter opened concurrently", k.ScopeID)
	}
	return nil
}

// UpdateStudentStrike writes the next student state to a locked row
func (r *queries) UpdateStudentStrike(ctx context.Context, rowID string, st strike.StudentState, sessionID, gapType string) error {
	const sql = `
		UPDATE strike_counter
		   SET strike_count    = $2,
		       status          = $3,
		       last_session_id = $4,
		       gap_type        = COALESCE(NULLIF($5, ''), gap_type),
		       last_updated    = now()
		 WHERE id = $1
	`
	if err := store.ExecOne(ctx, r.q, sql, rowID, st.Count, string(st.Status), sessionID, gapType); err != nil {
		return perr.FromPostgres(err, "update student strike")
	}
	return nil
}

// ActiveStrikes lists a teacher's open counters, referred ones included
func (r *queries) ActiveStrikes(ctx context.Context, teacherID string) ([]domain.ActiveStrike, error) {
	const sql = `
		SELECT id::text, scope, scope_id, normalized_topic, subject, gap_type,
		       strike_count, status, COALESCE(last_session_id::text, ''), last_updated
		  FROM strike_counter
		 WHERE teacher_id = $1 AND status <> 'resolved'
		 ORDER BY last_updated DESC
	`
	out, err := store.Many(ctx, r.q, func(row store.Row) (domain.ActiveStrike, error) {
		var a domain.ActiveStrike
		err := row.Scan(&a.ID, &a.Scope, &a.ScopeID, &a.NormalizedTopic, &a.Subject, &a.GapType,
			&a.Count, &a.Status, &a.LastSessionID, &a.LastUpdated)
		return a, err
	}, sql, teacherID)
	if err != nil {
		return nil, perr.FromPostgres(err, "list strikes")
	}
	return out, nil
}
