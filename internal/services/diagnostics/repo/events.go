package repo

import (
	"context"
	"encoding/json"

	"github.com/tumbig251800/atlas-wise-spark/internal/platform/store"
	"github.com/tumbig251800/atlas-wise-spark/internal/services/diagnostics/domain"

	perr "github.com/tumbig251800/atlas-wise-spark/internal/platform/errors"
)

// InsertRemedial records one student's reported outcome for a session.
// inserted is false when the session already reported that student
func (r *queries) InsertRemedial(ctx context.Context, m domain.Remedial) (inserted bool, err error) {
	const sql = `
		INSERT INTO remedial_tracking (
			teacher_id, teaching_log_id, student_id, topic, normalized_topic,
			subject, grade_level, classroom, remedial_status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (teaching_log_id, student_id) DO NOTHING
	`
	tag, err := r.q.Exec(ctx, sql,
		m.TeacherID, m.TeachingLogID, m.StudentID, m.Topic, m.NormalizedTopic,
		m.Subject, m.GradeLevel, m.Classroom, string(m.Status),
	)
	if err != nil {
		return false, perr.FromPostgres(err, "insert remedial")
	}
	return tag.RowsAffected() == 1, nil
}

// UpsertCanonicalEvent writes the one session-level row. Re-running a session
// replaces it
func (r *queries) UpsertCanonicalEvent(ctx context.Context, e domain.Event) error {
	if e.Decision == nil {
		return perr.InvalidArgf("canonical event for %s has no decision object", e.TeachingLogID)
	}
	doc, err := json.Marshal(e.Decision)
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeJSON, "encode decision object")
	}
	const sql = `
		INSERT INTO diagnostic_events (
			teaching_log_id, teacher_id, student_id, subject, topic, normalized_topic,
			grade_level, classroom, status_color, status_label, gap_type,
			priority_level, intervention_size, threshold_pct, decision_object
		) VALUES ($1, $2, NULL, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14::jsonb)
		ON CONFLICT (teaching_log_id) WHERE student_id IS NULL DO UPDATE
		SET teacher_id        = EXCLUDED.teacher_id,
		    subject           = EXCLUDED.subject,
		    topic             = EXCLUDED.topic,
		    normalized_topic  = EXCLUDED.normalized_topic,
		    grade_level       = EXCLUDED.grade_level,
		    classroom         = EXCLUDED.classroom,
		    status_color      = EXCLUDED.status_color,
		    status_label      = EXCLUDED.status_label,
		    gap_type          = EXCLUDED.gap_type,
		    priority_level    = EXCLUDED.priority_level,
		    intervention_size = EXCLUDED.intervention_size,
		    threshold_pct     = EXCLUDED.threshold_pct,
		    decision_object   = EXCLUDED.decision_object,
		    updated_at        = now()
	`
	if _, err := r.q.Exec(ctx, sql,
		e.TeachingLogID, e.TeacherID, e.Subject, e.Topic, e.NormalizedTopic,
		e.GradeLevel, e.Classroom, e.StatusColor, e.StatusLabel, e.GapType,
		e.PriorityLevel, e.InterventionSize, e.ThresholdPct, string(doc),
	); err != nil {
		return perr.FromPostgres(err, "upsert canonical event")
	}
	return nil
}

// InsertStudentEvent writes a per-student row once; repeats are ignored
func (r *queries) InsertStudentEvent(ctx context.Context, e domain.Event) error {
	const sql = `
		INSERT INTO diagnostic_events (
			teaching_log_id, teacher_id, student_id, subject, topic, normalized_topic,
			grade_level, classroom, status_color, status_label, gap_type,
			priority_level, intervention_size, threshold_pct
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (teaching_log_id, student_id) DO NOTHING
	`
	if _, err := r.q.Exec(ctx, sql,
		e.TeachingLogID, e.TeacherID, e.StudentID, e.Subject, e.Topic, e.NormalizedTopic,
		e.GradeLevel, e.Classroom, e.StatusColor, e.StatusLabel, e.GapType,
		e.PriorityLevel, e.InterventionSize, e.ThresholdPct,
	); err != nil {
		return perr.FromPostgres(err, "insert student event")
	}
	return nil
}

// Decision returns the stored decision object of a session
func (r *queries) Decision(ctx context.Context, teachingLogID string) (json.RawMessage, error) {
	const sql = `
		SELECT decision_object::text FROM diagnostic_events
		 WHERE teaching_log_id = $1 AND student_id IS NULL
	`
	doc, err := store.Scalar[string](ctx, r.q, sql, teachingLogID)
	switch {
	case perr.IsNoRows(err):
		return nil, perr.NotFoundf("no decision for teaching log %s", teachingLogID)
	case err != nil:
		return nil, perr.FromPostgres(err, "load decision")
	}
	return json.RawMessage(doc), nil
}
