package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tumbig251800/atlas-wise-spark/internal/core/decision"
	"github.com/tumbig251800/atlas-wise-spark/internal/core/priority"
	"github.com/tumbig251800/atlas-wise-spark/internal/core/severity"
	"github.com/tumbig251800/atlas-wise-spark/internal/core/strike"
	"github.com/tumbig251800/atlas-wise-spark/internal/core/topic"

	perr "github.com/tumbig251800/atlas-wise-spark/internal/platform/errors"
	dom "github.com/tumbig251800/atlas-wise-spark/internal/services/diagnostics/domain"
)

func eval(t *testing.T, h *harness, id string, statuses ...dom.RemedialStatus) dom.Result {
	t.Helper()
	res, err := h.svc.Evaluate(context.Background(), dom.Input{TeachingLogID: id, RemedialStatuses: statuses})
	if err != nil {
		t.Fatalf("Evaluate(%s): %v", id, err)
	}
	return res
}

func TestEvaluate_MissingSession(t *testing.T) {
	t.Parallel()
	h := newHarness(nil)

	_, err := h.svc.Evaluate(context.Background(), dom.Input{TeachingLogID: "nope"})
	if perr.CodeOf(err) != perr.ErrorCodeNotFound {
		t.Fatalf("code = %v, want not found (err=%v)", perr.CodeOf(err), err)
	}
	if len(h.repo.canon) != 0 {
		t.Fatalf("missing session wrote events")
	}
}

func TestEvaluate_RejectsBadInput(t *testing.T) {
	t.Parallel()
	h := newHarness(nil)

	cases := []dom.Input{
		{TeachingLogID: "  "},
		{TeachingLogID: "s1", RemedialStatuses: []dom.RemedialStatus{{StudentID: "", Status: strike.Stay}}},
		{TeachingLogID: "s1", RemedialStatuses: []dom.RemedialStatus{{StudentID: "st-01", Status: "maybe"}}},
	}
	for i, in := range cases {
		_, err := h.svc.Evaluate(context.Background(), in)
		if perr.CodeOf(err) != perr.ErrorCodeInvalidArgument {
			t.Fatalf("case %d: code = %v, want invalid argument", i, perr.CodeOf(err))
		}
	}
}

func TestEvaluate_UnknownGapIsValidation(t *testing.T) {
	t.Parallel()
	h := newHarness(nil)
	h.session("s1", func(s *dom.Session) { s.MajorGap = "x-gap" })

	_, err := h.svc.Evaluate(context.Background(), dom.Input{TeachingLogID: "s1"})
	if perr.CodeOf(err) != perr.ErrorCodeValidation {
		t.Fatalf("code = %v, want validation", perr.CodeOf(err))
	}
	if !permanent(err) {
		t.Fatalf("unknown gap should not be retried")
	}
}

func TestEvaluate_ClassLadderForcesPivot(t *testing.T) {
	t.Parallel()
	h := newHarness(nil)
	h.session("s1", func(s *dom.Session) { s.RemedialRaw = remedial(5); s.TeachingDate = epoch.AddDate(0, 0, -14) })
	h.session("s2", func(s *dom.Session) { s.RemedialRaw = remedial(14); s.TeachingDate = epoch.AddDate(0, 0, -7) })
	h.session("s3", func(s *dom.Session) { s.RemedialRaw = remedial(15) })

	a := eval(t, h, "s1")
	b := eval(t, h, "s2")
	c := eval(t, h, "s3")

	if a.DecisionObject.ClassStrikeAction != strike.ActionReset {
		t.Fatalf("s1 action = %s, want reset", a.DecisionObject.ClassStrikeAction)
	}
	if b.DecisionObject.ClassStrikeAction != strike.ActionPlanFail || *b.DecisionObject.ClassStrikeCount != 1 {
		t.Fatalf("s2 = %s/%d, want plan_fail/1", b.DecisionObject.ClassStrikeAction, *b.DecisionObject.ClassStrikeCount)
	}
	if b.DecisionObject.InterventionSize != decision.SizePlanFail {
		t.Fatalf("s2 size = %s", b.DecisionObject.InterventionSize)
	}

	obj := c.DecisionObject
	if obj.ClassStrikeAction != strike.ActionForcePivot || !obj.PivotTriggered {
		t.Fatalf("s3 action = %s pivot=%v", obj.ClassStrikeAction, obj.PivotTriggered)
	}
	if *obj.ClassStrikeCount != 0 {
		t.Fatalf("count after pivot = %d, want 0", *obj.ClassStrikeCount)
	}
	if obj.InterventionSize != decision.SizeForcePivot || obj.SignalColor == nil || *obj.SignalColor != severity.Red {
		t.Fatalf("pivot object size=%s color=%v", obj.InterventionSize, obj.SignalColor)
	}
	if got := strings.Join(obj.EvidenceRefs, ","); got != "s2,s3" {
		t.Fatalf("evidence = %s, want s2,s3", got)
	}
	if len(obj.ReasonCodes) != 1 || obj.ReasonCodes[0] != strike.ReasonForcePivot {
		t.Fatalf("reasons = %v", obj.ReasonCodes)
	}
	if obj.PivotEventID == nil || *obj.PivotEventID == "" {
		t.Fatalf("pivot event id missing")
	}
	if obj.ClassID != "P.4/2" || obj.GapRate != 50 {
		t.Fatalf("class id %q gap rate %v", obj.ClassID, obj.GapRate)
	}

	// the result keeps the sized band, the stored canonical row the ladder's
	if c.InterventionSize != string(priority.Pivot) || c.ThresholdPct != 50 {
		t.Fatalf("result size = %s/%d", c.InterventionSize, c.ThresholdPct)
	}
	if got := h.repo.canon["s3"].InterventionSize; got != decision.SizeForcePivot {
		t.Fatalf("canonical size = %s", got)
	}
	if got := h.repo.students["s3/st-01"].InterventionSize; got != string(priority.Pivot) {
		t.Fatalf("student size = %s", got)
	}

	if len(h.repo.pivots) != 1 {
		t.Fatalf("pivots = %d, want 1", len(h.repo.pivots))
	}
	p := h.repo.pivots[0]
	if p.ClassID != "P.4/2" || p.TriggerSessionID != "s3" || p.NormalizedTopic != "Fractions" {
		t.Fatalf("pivot row = %+v", p)
	}
	if c := h.repo.counter(strike.ScopeClass, "P.4/2"); c == nil || c.count != 0 {
		t.Fatalf("class counter not reset: %+v", c)
	}

	var hooked int
	for _, sql := range h.tx.execs {
		if strings.Contains(sql, "lock_timeout") {
			hooked++
		}
	}
	if hooked != 3 {
		t.Fatalf("lock_timeout hook ran %d times, want 3", hooked)
	}
}

func TestEvaluate_CanonicalRowIsIdempotent(t *testing.T) {
	t.Parallel()
	h := newHarness(nil)
	h.session("s1", func(s *dom.Session) { s.RemedialRaw = remedial(4) })

	eval(t, h, "s1")
	h.clock.Advance(time.Hour)
	second := eval(t, h, "s1")

	if len(h.repo.canon) != 1 {
		t.Fatalf("canonical rows = %d, want 1", len(h.repo.canon))
	}
	if len(h.repo.students) != 4 {
		t.Fatalf("student rows = %d, want 4", len(h.repo.students))
	}
	got := h.repo.canon["s1"].Decision
	if !got.ComputedAt.Equal(second.DecisionObject.ComputedAt) {
		t.Fatalf("canonical row kept the first decision: %v", got.ComputedAt)
	}

	raw, err := h.svc.Decision(context.Background(), "s1")
	if err != nil || !strings.Contains(string(raw), `"teaching_log_id":"s1"`) {
		t.Fatalf("Decision = %s, %v", raw, err)
	}
}

func TestEvaluate_SkipsLeaveCounterAlone(t *testing.T) {
	t.Parallel()
	h := newHarness(nil)
	h.session("s1", func(s *dom.Session) { s.RemedialRaw = remedial(15); s.TeachingDate = epoch.AddDate(0, 0, -2) })
	h.session("s2", func(s *dom.Session) {
		s.RemedialRaw = remedial(18)
		s.MajorGap = "a2-gap"
		s.TeachingDate = epoch.AddDate(0, 0, -1)
	})
	h.session("s3", func(s *dom.Session) { s.RemedialRaw = remedial(18); s.MajorGap = "system-gap" })

	eval(t, h, "s1")
	txs := h.tx.txs
	a2 := eval(t, h, "s2")
	sys := eval(t, h, "s3")

	if a2.Color != string(severity.Red) || a2.Label != severity.LabelImmediateRefer || a2.PriorityLevel != priority.LevelReferral {
		t.Fatalf("a2 verdict = %s/%s/%d", a2.Color, a2.Label, a2.PriorityLevel)
	}
	if a2.DecisionObject.ClassStrikeAction != strike.ActionSkipA2 || *a2.DecisionObject.ClassStrikeCount != 1 {
		t.Fatalf("a2 ladder = %s/%d", a2.DecisionObject.ClassStrikeAction, *a2.DecisionObject.ClassStrikeCount)
	}
	if sys.Color != string(severity.Blue) || sys.DecisionObject.ClassStrikeAction != strike.ActionSkipSystemGap {
		t.Fatalf("system gap = %s/%s", sys.Color, sys.DecisionObject.ClassStrikeAction)
	}
	if a2.DecisionObject.PivotTriggered || sys.DecisionObject.PivotTriggered || len(h.repo.pivots) != 0 {
		t.Fatalf("skip produced a pivot")
	}
	if c := h.repo.counter(strike.ScopeClass, "P.4/2"); c == nil || c.count != 1 || c.last != "s1" {
		t.Fatalf("counter moved: %+v", c)
	}
	// each skip locks the counter in its own transaction, then writes events
	if got := h.tx.txs - txs; got != 4 {
		t.Fatalf("skips ran %d transactions, want 4", got)
	}
}

func TestEvaluate_RetryAfterFailedWriteStrikesOnce(t *testing.T) {
	t.Parallel()
	h := newHarness(nil)
	h.session("s1", func(s *dom.Session) { s.RemedialRaw = remedial(15) })
	h.repo.writeErr, h.repo.writeErrN = perr.Unavailablef("pg down"), 1

	stay := dom.RemedialStatus{StudentID: "st-01", Status: strike.Stay}
	if _, err := h.svc.Evaluate(context.Background(), dom.Input{
		TeachingLogID: "s1", RemedialStatuses: []dom.RemedialStatus{stay},
	}); err == nil {
		t.Fatal("first run should fail on the event write")
	}

	res := eval(t, h, "s1", stay)
	obj := res.DecisionObject
	if obj.ClassStrikeAction != strike.ActionPlanFail || *obj.ClassStrikeCount != 1 || obj.PivotTriggered {
		t.Fatalf("retry = %s/%d pivot=%v evidence=%v",
			obj.ClassStrikeAction, *obj.ClassStrikeCount, obj.PivotTriggered, obj.EvidenceRefs)
	}
	if len(h.repo.pivots) != 0 {
		t.Fatalf("retry wrote %d pivots", len(h.repo.pivots))
	}
	if c := h.repo.counter(strike.ScopeClass, "P.4/2"); c == nil || c.count != 1 || c.last != "s1" {
		t.Fatalf("class counter = %+v", c)
	}

	// a third run for the same session, with its outcomes, changes nothing
	eval(t, h, "s1", stay)
	if len(h.repo.remedial) != 1 {
		t.Fatalf("remedial rows = %d, want 1", len(h.repo.remedial))
	}
	if c := h.repo.counter(strike.ScopeStudent, "st-01"); c == nil || c.count != 1 {
		t.Fatalf("student counter = %+v", c)
	}
}

func TestEvaluate_RerunOfPivotSessionReplaysIt(t *testing.T) {
	t.Parallel()
	h := newHarness(nil)
	h.session("s1", func(s *dom.Session) { s.RemedialRaw = remedial(15); s.TeachingDate = epoch.AddDate(0, 0, -1) })
	h.session("s2", func(s *dom.Session) { s.RemedialRaw = remedial(15) })

	eval(t, h, "s1")
	first := eval(t, h, "s2").DecisionObject
	again := eval(t, h, "s2").DecisionObject

	if again.ClassStrikeAction != strike.ActionForcePivot || !again.PivotTriggered {
		t.Fatalf("rerun action = %s pivot=%v", again.ClassStrikeAction, again.PivotTriggered)
	}
	if got := strings.Join(again.EvidenceRefs, ","); got != "s1,s2" {
		t.Fatalf("rerun evidence = %s, want s1,s2", got)
	}
	if first.PivotEventID == nil || again.PivotEventID == nil || *first.PivotEventID != *again.PivotEventID {
		t.Fatalf("pivot ids differ: %v vs %v", first.PivotEventID, again.PivotEventID)
	}
	if len(h.repo.pivots) != 1 {
		t.Fatalf("pivots = %d, want 1", len(h.repo.pivots))
	}
	if c := h.repo.counter(strike.ScopeClass, "P.4/2"); c == nil || c.count != 0 {
		t.Fatalf("class counter = %+v", c)
	}
}

func TestEvaluate_ResetOpensNoCounter(t *testing.T) {
	t.Parallel()
	h := newHarness(nil)
	h.session("s1", func(s *dom.Session) { s.RemedialRaw = remedial(3) })

	res := eval(t, h, "s1")
	if res.DecisionObject.ClassStrikeAction != strike.ActionReset {
		t.Fatalf("action = %s, want reset", res.DecisionObject.ClassStrikeAction)
	}
	if len(h.repo.counters) != 0 {
		t.Fatalf("reset opened %d counters", len(h.repo.counters))
	}
}

func TestEvaluate_LockFailureDegrades(t *testing.T) {
	t.Parallel()
	h := newHarness(nil)
	h.repo.lockErr = errors.New("canceling statement due to lock timeout")
	h.session("s1", func(s *dom.Session) { s.RemedialRaw = remedial(15) })

	res := eval(t, h, "s1")
	obj := res.DecisionObject
	if obj.ClassStrikeCount != nil || obj.ClassStrikeAction != strike.ActionUnknown {
		t.Fatalf("degraded ladder = %v/%s", obj.ClassStrikeCount, obj.ClassStrikeAction)
	}
	if obj.InterventionSize != string(priority.Pivot) || obj.SignalColor != nil {
		t.Fatalf("degraded object size=%s color=%v", obj.InterventionSize, obj.SignalColor)
	}
	if len(obj.Degraded) != 1 || obj.Degraded[0] != decision.DegradedClassStrike {
		t.Fatalf("degraded = %v", obj.Degraded)
	}
	if _, ok := h.repo.canon["s1"]; !ok {
		t.Fatalf("events not written after lock failure")
	}
}

func TestEvaluate_WriteFailureIsError(t *testing.T) {
	t.Parallel()
	h := newHarness(nil)
	boom := errors.New("connection reset")
	h.repo.writeErr = boom
	h.session("s1", nil)

	_, err := h.svc.Evaluate(context.Background(), dom.Input{
		TeachingLogID:    "s1",
		RemedialStatuses: []dom.RemedialStatus{{StudentID: "st-01", Status: strike.Stay}},
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if len(h.repo.remedial) != 0 {
		t.Fatalf("remedial rows written after a failed event write")
	}
}

func TestEvaluate_StudentLadder(t *testing.T) {
	t.Parallel()
	h := newHarness(nil)
	for i, id := range []string{"s1", "s2", "s3", "s4", "s5"} {
		h.session(id, func(s *dom.Session) {
			s.RemedialRaw = "st-01,st-02"
			s.TeachingDate = epoch.AddDate(0, 0, i)
		})
	}
	h.session("ok", func(s *dom.Session) { s.MajorGap = "success"; s.Mastery = 5 })

	stay := dom.RemedialStatus{StudentID: "st-01", Status: strike.Stay}
	eval(t, h, "s1", stay, dom.RemedialStatus{StudentID: "st-02", Status: strike.Stay})
	eval(t, h, "s2", stay)
	eval(t, h, "s3", stay)

	var referred *counterRow
	for _, c := range h.repo.counters {
		if c.key.ScopeID == "st-01" && c.status == strike.StatusReferred {
			referred = c
		}
	}
	if referred == nil || referred.count != strike.ReferAt {
		t.Fatalf("st-01 not referred at %d: %+v", strike.ReferAt, referred)
	}
	if c := h.repo.counter(strike.ScopeStudent, "st-01"); c != nil {
		t.Fatalf("referred counter still active: %+v", c)
	}

	// a referral closes the ladder, the next stay opens a fresh one
	eval(t, h, "s4", stay)
	if c := h.repo.counter(strike.ScopeStudent, "st-01"); c == nil || c.count != 1 {
		t.Fatalf("new ladder = %+v", c)
	}

	eval(t, h, "s5", dom.RemedialStatus{StudentID: "st-02", Status: strike.Pass})
	if c := h.repo.counter(strike.ScopeStudent, "st-02"); c != nil {
		t.Fatalf("st-02 still active after pass: %+v", c)
	}

	before := len(h.repo.counters)
	eval(t, h, "ok", dom.RemedialStatus{StudentID: "st-03", Status: strike.Stay})
	if len(h.repo.counters) != before {
		t.Fatalf("success gap opened a student counter")
	}

	if len(h.repo.remedial) != 7 {
		t.Fatalf("remedial rows = %d, want 7", len(h.repo.remedial))
	}
	strikes, err := h.svc.ActiveStrikes(context.Background(), "teacher-1")
	if err != nil {
		t.Fatalf("ActiveStrikes: %v", err)
	}
	var open int
	for _, s := range strikes {
		if s.Scope == string(strike.ScopeStudent) {
			open++
		}
	}
	// the referred st-01 row and the fresh st-01 ladder
	if open != 2 {
		t.Fatalf("student strikes listed = %d, want 2 (%+v)", open, strikes)
	}
}

func TestEvaluate_AliasExactLookup(t *testing.T) {
	t.Parallel()
	h := newHarness(nil)
	ctx := context.Background()
	if err := h.svc.UpsertAlias(ctx, dom.Alias{Subject: "math", GradeLevel: "P.4", Alias: "เศษส่วน", Canonical: "Fractions"}); err != nil {
		t.Fatalf("UpsertAlias: %v", err)
	}
	h.session("s1", func(s *dom.Session) { s.Topic = "  เศษส่วน " })

	res := eval(t, h, "s1")
	if res.NormalizedTopic != "Fractions" || res.NormalizationMethod != topic.MethodExact || res.NormalizationConfidence != topic.ConfidenceExact {
		t.Fatalf("normalized = %s/%s/%v", res.NormalizedTopic, res.NormalizationMethod, res.NormalizationConfidence)
	}
	if res.DecisionObject.OriginalTopic != "  เศษส่วน " {
		t.Fatalf("original topic = %q", res.DecisionObject.OriginalTopic)
	}
	if c := h.repo.counter(strike.ScopeClass, "P.4/2"); c == nil || c.key.NormalizedTopic != "Fractions" {
		t.Fatalf("class counter keyed by %+v", c)
	}
}

func TestEvaluate_Trend(t *testing.T) {
	t.Parallel()
	day := 24 * time.Hour

	t.Run("regression in the same room", func(t *testing.T) {
		t.Parallel()
		h := newHarness(nil)
		h.session("h1", func(s *dom.Session) { s.Mastery = 4; s.Classroom = "ป.4/2"; s.TeachingDate = epoch.Add(-14 * day) })
		h.session("h2", func(s *dom.Session) { s.Mastery = 3; s.Classroom = "2-ก.พ."; s.TeachingDate = epoch.Add(-7 * day) })
		// another room, would break the regression if it were not filtered
		h.session("other", func(s *dom.Session) { s.Mastery = 1; s.Classroom = "3"; s.TeachingDate = epoch.Add(-day) })
		h.session("s1", func(s *dom.Session) { s.Mastery = 2; s.Classroom = "2-Feb" })

		res := eval(t, h, "s1")
		if res.Color != string(severity.Red) || res.Label != severity.LabelRegression {
			t.Fatalf("verdict = %s/%s", res.Color, res.Label)
		}
		if got := h.repo.canon["s1"].Classroom; got != "2" {
			t.Fatalf("stored classroom = %q", got)
		}
	})

	t.Run("static performance after a week", func(t *testing.T) {
		t.Parallel()
		h := newHarness(nil)
		h.session("h1", func(s *dom.Session) { s.Mastery = 3; s.TeachingDate = epoch.Add(-8 * day) })
		h.session("s1", func(s *dom.Session) { s.Mastery = 3 })

		if res := eval(t, h, "s1"); res.Label != severity.LabelStatic {
			t.Fatalf("label = %s", res.Label)
		}
	})

	t.Run("learning curve after a detour", func(t *testing.T) {
		t.Parallel()
		h := newHarness(nil)
		h.session("h1", func(s *dom.Session) { s.Mastery = 4; s.TeachingDate = epoch.Add(-8 * day) })
		h.session("h2", func(s *dom.Session) { s.Mastery = 4; s.Topic = "Decimals"; s.TeachingDate = epoch.Add(-day) })
		h.session("s1", func(s *dom.Session) { s.Mastery = 3 })

		// two distinct topics and no provider: the lowercase fallback still
		// matches the history rows
		res := eval(t, h, "s1")
		if res.Color != string(severity.Yellow) || res.Label != severity.LabelLearningCurve {
			t.Fatalf("verdict = %s/%s", res.Color, res.Label)
		}
		if res.NormalizationMethod != topic.MethodRaw || res.NormalizedTopic != "fractions" {
			t.Fatalf("normalized = %s/%s", res.NormalizedTopic, res.NormalizationMethod)
		}
	})
}

func TestBuildTrend(t *testing.T) {
	t.Parallel()
	d := func(n int) time.Time { return epoch.AddDate(0, 0, n) }
	history := []dom.HistoryRow{
		{ID: "c", Topic: "Fractions ", Mastery: 2, TeachingDate: d(-1)},
		{ID: "b", Topic: "Decimals", Mastery: 5, TeachingDate: d(-2)},
		{ID: "a", Topic: "fractions", Mastery: 4, TeachingDate: d(-3)},
	}

	tr, changed := buildTrend(history, "Fractions", "FRACTIONS")
	if changed || !tr.SameTopic {
		t.Fatalf("changed=%v same=%v", changed, tr.SameTopic)
	}
	if len(tr.Scores) != 2 || tr.Scores[0] != 4 || tr.Scores[1] != 2 {
		t.Fatalf("scores = %v, want [4 2]", tr.Scores)
	}
	if !tr.Dates[0].Equal(d(-3)) {
		t.Fatalf("dates not oldest first: %v", tr.Dates)
	}

	tr, changed = buildTrend(history, "geometry", "Geometry")
	if !changed || tr.SameTopic || len(tr.Scores) != 0 {
		t.Fatalf("unrelated topic: changed=%v trend=%+v", changed, tr)
	}

	if _, changed = buildTrend(nil, "x", "x"); changed {
		t.Fatalf("empty history counted as a change")
	}
}
