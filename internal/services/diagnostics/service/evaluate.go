package service

import (
	"context"

	"github.com/tumbig251800/atlas-wise-spark/internal/core/classroom"
	"github.com/tumbig251800/atlas-wise-spark/internal/core/decision"
	"github.com/tumbig251800/atlas-wise-spark/internal/core/gap"
	"github.com/tumbig251800/atlas-wise-spark/internal/core/priority"
	"github.com/tumbig251800/atlas-wise-spark/internal/core/severity"
	"github.com/tumbig251800/atlas-wise-spark/internal/core/strike"
	"github.com/tumbig251800/atlas-wise-spark/internal/core/topic"
	"github.com/tumbig251800/atlas-wise-spark/internal/platform/logger"

	perr "github.com/tumbig251800/atlas-wise-spark/internal/platform/errors"
	dom "github.com/tumbig251800/atlas-wise-spark/internal/services/diagnostics/domain"
)

// Evaluate runs the full pipeline for one session. Only a missing session, a
// bad input or a failed event write is an error; the topic normalizer and the
// class ladder degrade instead
func (s *Svc) Evaluate(ctx context.Context, in dom.Input) (dom.Result, error) {
	if err := checkInput(in); err != nil {
		return dom.Result{}, err
	}
	ctx = logger.WithTeachingLog(ctx, in.TeachingLogID)
	log := logger.C(ctx).With().Str("component", "diagnostics").Logger()
	start := s.now()

	sess, err := s.repo.Session(ctx, in.TeachingLogID)
	if err != nil {
		return dom.Result{}, err
	}
	cat, err := gap.Parse(sess.MajorGap)
	if err != nil {
		return dom.Result{}, perr.WithField(perr.Wrap(err, perr.ErrorCodeValidation, "unknown major gap"), "major_gap")
	}

	clean := classroom.Normalize(sess.Classroom)
	classID := classroom.ClassID(sess.GradeLevel, clean)

	rows, err := s.repo.History(ctx, sess, dom.HistoryLimit)
	if err != nil {
		return dom.Result{}, err
	}
	history := make([]dom.HistoryRow, 0, len(rows))
	for _, h := range rows {
		if classroom.Normalize(h.Classroom) == clean {
			history = append(history, h)
		}
	}
	topics := make([]string, len(history))
	for i, h := range history {
		topics[i] = h.Topic
	}

	var degraded []string
	nt, topicDegraded := s.topics.Normalize(ctx, TopicRequest{
		Topic:   sess.Topic,
		History: topics,
		Subject: sess.Subject,
		Grade:   sess.GradeLevel,
	})
	if topicDegraded {
		degraded = append(degraded, decision.DegradedTopicNormalizer)
		s.metrics.Degraded(decision.DegradedTopicNormalizer)
	}

	trend, topicChanged := buildTrend(history, nt.Canonical, sess.Topic)
	now := s.now()
	verdict := severity.Final(severity.Input{
		Gap:          cat,
		Mastery:      sess.Mastery,
		Trend:        trend,
		TopicChanged: topicChanged,
		Now:          now,
	})
	prio := priority.For(cat)
	remedialIDs := sess.RemedialIDs()
	sized := priority.Sizing(len(remedialIDs), sess.TotalStudents)

	meta := dom.StrikeMeta{Subject: sess.Subject, Topic: sess.Topic, GapType: sess.MajorGap}
	cs := decision.ClassStrike{}
	res, err := s.store.ApplyClassStrike(ctx,
		strike.Key{TeacherID: sess.TeacherID, Scope: strike.ScopeClass, ScopeID: classID, NormalizedTopic: nt.Canonical},
		meta, classID,
		strike.ClassInput{
			SessionID:   sess.ID,
			GapRate:     sized.GapRate,
			IsSystemGap: cat == gap.System,
			IsA2Gap:     cat == gap.AttitudeSevere,
		},
	)
	if err != nil {
		ev := log.Warn().Err(err).Str("class_id", classID)
		if perr.IsLockNotAvailable(err) {
			ev = ev.Bool("lock_timeout", true)
		}
		ev.Msg("class strike unavailable")
		degraded = append(degraded, decision.DegradedClassStrike)
		s.metrics.Degraded(decision.DegradedClassStrike)
	} else {
		cs = decision.ClassStrike{Available: true, Outcome: res.Outcome, PivotEventID: res.PivotID}
		s.metrics.StrikeAction(string(res.Outcome.Action), res.Outcome.Pivot)
		if res.Outcome.Pivot {
			log.Info().Str("class_id", classID).Str("pivot_event_id", res.PivotID).
				Strs("evidence", res.Outcome.Evidence).Msg("class pivot forced")
		}
	}

	obj := decision.Build(decision.Inputs{
		ComputedAt:    now,
		TeachingLogID: sess.ID,
		ClassID:       classID,
		Subject:       sess.Subject,
		Topic:         nt,
		Intervention:  sized,
		Strike:        cs,
		Degraded:      degraded,
	})

	base := dom.Event{
		TeachingLogID:    sess.ID,
		TeacherID:        sess.TeacherID,
		Subject:          sess.Subject,
		Topic:            sess.Topic,
		NormalizedTopic:  nt.Canonical,
		GradeLevel:       sess.GradeLevel,
		Classroom:        clean,
		StatusColor:      string(verdict.Color),
		StatusLabel:      verdict.Label,
		GapType:          sess.MajorGap,
		PriorityLevel:    prio.Level,
		InterventionSize: string(sized.Size),
		ThresholdPct:     sized.Pct,
	}
	canonical := base
	canonical.InterventionSize = obj.InterventionSize
	canonical.Decision = &obj
	students := make([]dom.Event, 0, len(remedialIDs))
	for _, id := range remedialIDs {
		e := base
		e.StudentID = id
		students = append(students, e)
	}
	if err := s.store.WriteEvents(ctx, canonical, students); err != nil {
		log.Error().Err(err).Msg("diagnostic events write failed")
		return dom.Result{}, perr.WithOp(err, "write events")
	}

	if err := s.mirror.Decision(ctx, canonical, obj); err != nil {
		log.Warn().Err(err).Msg("decision mirror failed")
	}

	s.trackRemedial(ctx, sess, cat, nt.Canonical, clean, in.RemedialStatuses)

	s.metrics.Evaluation(string(verdict.Color), s.now().Sub(start))
	log.Info().
		Str("color", string(verdict.Color)).
		Str("class_strike_action", string(obj.ClassStrikeAction)).
		Str("intervention_size", obj.InterventionSize).
		Str("normalized_topic", nt.Canonical).
		Str("normalization_method", nt.Method).
		Msg("session evaluated")

	return dom.Result{
		Color:                   string(verdict.Color),
		Label:                   verdict.Label,
		PriorityLevel:           prio.Level,
		RecommendedAction:       prio.RecommendedAction,
		InterventionSize:        string(sized.Size),
		ThresholdPct:            sized.Pct,
		NormalizedTopic:         nt.Canonical,
		NormalizationMethod:     nt.Method,
		NormalizationConfidence: nt.Confidence,
		DecisionObject:          obj,
	}, nil
}

// trackRemedial records each reported outcome and moves that student's
// ladder. A student the session already reported is skipped. Failures are
// logged; the session's events are already written
func (s *Svc) trackRemedial(
	ctx context.Context,
	sess dom.Session,
	cat gap.Category,
	normalized, clean string,
	statuses []dom.RemedialStatus,
) {
	if len(statuses) == 0 {
		return
	}
	log := logger.C(ctx).With().Str("component", "diagnostics").Logger()

	meta := dom.StrikeMeta{Subject: sess.Subject, Topic: sess.Topic, GapType: sess.MajorGap}
	for _, rs := range statuses {
		row := dom.Remedial{
			TeacherID:       sess.TeacherID,
			TeachingLogID:   sess.ID,
			StudentID:       rs.StudentID,
			Topic:           sess.Topic,
			NormalizedTopic: normalized,
			Subject:         sess.Subject,
			GradeLevel:      sess.GradeLevel,
			Classroom:       clean,
			Status:          rs.Status,
		}
		k := studentKey(sess.TeacherID, rs.StudentID, normalized)
		st, applied, err := s.store.ApplyStudentOutcome(ctx, k, meta, row, cat.StrikeEligible())
		switch {
		case err != nil:
			log.Warn().Err(err).Str("student_id", rs.StudentID).Msg("student strike update failed")
		case !applied:
			log.Debug().Str("student_id", rs.StudentID).Msg("remedial outcome already recorded")
		case st.Status == strike.StatusReferred:
			log.Info().Str("student_id", rs.StudentID).Int("strike_count", st.Count).Msg("student referred")
		}
	}
}

// buildTrend keeps the history rows on the same topic and orders them oldest
// first. history is newest first. changed reports whether the previous
// session taught something else
func buildTrend(history []dom.HistoryRow, normalized, current string) (tr severity.Trend, changed bool) {
	cur := topic.Lower(current)
	var same []dom.HistoryRow
	for i, h := range history {
		t := topic.Lower(h.Topic)
		match := t == topic.Lower(normalized) || t == cur
		if match {
			same = append(same, h)
		}
		if i == 0 {
			changed = !match
		}
	}
	tr.SameTopic = len(same) > 0
	for i := len(same) - 1; i >= 0; i-- {
		tr.Scores = append(tr.Scores, same[i].Mastery)
		tr.Dates = append(tr.Dates, same[i].TeachingDate)
	}
	return tr, changed
}
