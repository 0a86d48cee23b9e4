package repo

import (
	"context"

	"github.com/tumbig251800/atlas-wise-spark/internal/platform/store"
	"github.com/tumbig251800/atlas-wise-spark/internal/services/diagnostics/domain"

	perr "github.com/tumbig251800/atlas-wise-spark/internal/platform/errors"
)

// Session loads one teaching log. A missing row is a NotFound error
func (r *queries) Session(ctx context.Context, id string) (domain.Session, error) {
	const sql = `
		SELECT id::text, teacher_id::text, subject, grade_level, classroom, topic,
		       mastery_score, teaching_date, major_gap, total_students,
		       COALESCE(remedial_ids, '')
		  FROM teaching_logs
		 WHERE id = $1
	`
	s, err := store.One(ctx, r.q, func(row store.Row) (domain.Session, error) {
		var (
			s     domain.Session
			total *int
		)
		err := row.Scan(&s.ID, &s.TeacherID, &s.Subject, &s.GradeLevel, &s.Classroom, &s.Topic,
			&s.Mastery, &s.TeachingDate, &s.MajorGap, &total, &s.RemedialRaw)
		if total != nil {
			s.TotalStudents = *total
		}
		return s, err
	}, sql, id)
	if perr.IsCode(err, perr.ErrorCodeNotFound) {
		return domain.Session{}, perr.NotFoundf("teaching log %s not found", id)
	}
	if err != nil {
		return domain.Session{}, perr.FromPostgres(err, "load teaching log")
	}
	return s, nil
}

// History returns up to limit earlier sessions for the same teacher, subject
// and grade, newest first. Classroom filtering happens in the caller since
// stored classroom values are not normalized
func (r *queries) History(ctx context.Context, s domain.Session, limit int) ([]domain.HistoryRow, error) {
	const sql = `
		SELECT id::text, topic, classroom, mastery_score, teaching_date
		  FROM teaching_logs
		 WHERE teacher_id = $1 AND subject = $2 AND grade_level = $3 AND id <> $4
		 ORDER BY teaching_date DESC, created_at DESC
		 LIMIT $5
	`
	rows, err := store.Many(ctx, r.q, func(row store.Row) (domain.HistoryRow, error) {
		var h domain.HistoryRow
		err := row.Scan(&h.ID, &h.Topic, &h.Classroom, &h.Mastery, &h.TeachingDate)
		return h, err
	}, sql, s.TeacherID, s.Subject, s.GradeLevel, s.ID, limit)
	if err != nil {
		return nil, perr.FromPostgres(err, "load history")
	}
	return rows, nil
}
