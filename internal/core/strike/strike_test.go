package strike

import (
	"fmt"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

// ledger replays evaluations against keyed state the way the repo does
type ledger struct {
	state  map[Key]ClassState
	stored []int
}

func newLedger() *ledger { return &ledger{state: map[Key]ClassState{}} }

func (l *ledger) apply(k Key, in ClassInput) ClassOutcome {
	out, next, write := EvaluateClass(l.state[k], in)
	if write {
		l.state[k] = next
		l.stored = append(l.stored, next.Count)
	}
	return out
}

func classKey(topic string) Key {
	return Key{TeacherID: "t1", Scope: ScopeClass, ScopeID: "ป.4/2", NormalizedTopic: topic}
}

func TestClassLadder(t *testing.T) {
	Convey("Given a class counter", t, func() {
		l := newLedger()
		k := classKey("fractions")

		Convey("Scenario A: 16, 46, 50 escalates to a pivot", func() {
			a := l.apply(k, ClassInput{SessionID: "s1", GapRate: 16})
			b := l.apply(k, ClassInput{SessionID: "s2", GapRate: 46})
			c := l.apply(k, ClassInput{SessionID: "s3", GapRate: 50})

			So(a.Action, ShouldEqual, ActionReset)
			So(a.Count, ShouldEqual, 0)
			So(b.Action, ShouldEqual, ActionPlanFail)
			So(b.Count, ShouldEqual, 1)
			So(b.Pivot, ShouldBeFalse)
			So(c.Action, ShouldEqual, ActionForcePivot)
			So(c.Count, ShouldEqual, 0)
			So(c.Pivot, ShouldBeTrue)
			So(c.Reason, ShouldEqual, ReasonForcePivot)
			So(c.Evidence, ShouldResemble, []string{"s2", "s3"})
			So(l.state[k], ShouldResemble, ClassState{})
		})

		Convey("Scenario B: 50, 30, 45 never pivots", func() {
			a := l.apply(k, ClassInput{SessionID: "s1", GapRate: 50})
			b := l.apply(k, ClassInput{SessionID: "s2", GapRate: 30})
			c := l.apply(k, ClassInput{SessionID: "s3", GapRate: 45})

			So(a.Action, ShouldEqual, ActionPlanFail)
			So(a.Count, ShouldEqual, 1)
			So(b.Action, ShouldEqual, ActionReset)
			So(b.Count, ShouldEqual, 0)
			So(c.Action, ShouldEqual, ActionPlanFail)
			So(c.Count, ShouldEqual, 1)
			So(c.Pivot, ShouldBeFalse)
		})

		Convey("Scenario C: a system gap freezes the counter", func() {
			a := l.apply(k, ClassInput{SessionID: "s1", GapRate: 50})
			b := l.apply(k, ClassInput{SessionID: "s2", GapRate: 60, IsSystemGap: true})
			c := l.apply(k, ClassInput{SessionID: "s3", GapRate: 50})

			So(a.Action, ShouldEqual, ActionPlanFail)
			So(b.Action, ShouldEqual, ActionSkipSystemGap)
			So(b.Count, ShouldEqual, 1)
			So(c.Action, ShouldEqual, ActionForcePivot)
			So(c.Evidence, ShouldResemble, []string{"s1", "s3"})
		})

		Convey("Scenario D: topics keep separate counters", func() {
			kx := classKey("fractions")
			ky := classKey("decimals")
			x := l.apply(kx, ClassInput{SessionID: "s1", GapRate: 50})
			y := l.apply(ky, ClassInput{SessionID: "s2", GapRate: 50})

			So(x.Action, ShouldEqual, ActionPlanFail)
			So(y.Action, ShouldEqual, ActionPlanFail)
			So(l.state[kx].Count, ShouldEqual, 1)
			So(l.state[ky].Count, ShouldEqual, 1)
		})

		Convey("Exactly 40 percent is not a strike", func() {
			l.apply(k, ClassInput{SessionID: "s1", GapRate: 50})
			out := l.apply(k, ClassInput{SessionID: "s2", GapRate: 40})
			So(out.Action, ShouldEqual, ActionReset)
		})
	})
}

func TestClassLadder_SkipsNeverWrite(t *testing.T) {
	Convey("For any prior state", t, func() {
		for _, prior := range []ClassState{{}, {Count: 1, LastSessionID: "prev"}} {
			for _, rate := range []float64{0, 40, 41, 100} {
				name := fmt.Sprintf("count=%d rate=%v", prior.Count, rate)

				Convey("a2-gap leaves it untouched: "+name, func() {
					out, next, write := EvaluateClass(prior, ClassInput{SessionID: "s", GapRate: rate, IsA2Gap: true, IsSystemGap: true})
					So(write, ShouldBeFalse)
					So(next, ShouldResemble, prior)
					So(out.Action, ShouldEqual, ActionSkipA2)
					So(out.Count, ShouldEqual, prior.Count)
				})

				Convey("system-gap leaves it untouched: "+name, func() {
					out, next, write := EvaluateClass(prior, ClassInput{SessionID: "s", GapRate: rate, IsSystemGap: true})
					So(write, ShouldBeFalse)
					So(next, ShouldResemble, prior)
					So(out.Action, ShouldEqual, ActionSkipSystemGap)
				})
			}
		}
	})
}

func TestClassLadder_ReplayedSession(t *testing.T) {
	Convey("Given a session that already recorded its strike", t, func() {
		l := newLedger()
		k := classKey("fractions")
		first := l.apply(k, ClassInput{SessionID: "s1", GapRate: 50})

		Convey("running it again reports the same plan_fail without writing", func() {
			again := l.apply(k, ClassInput{SessionID: "s1", GapRate: 50})
			So(first.Action, ShouldEqual, ActionPlanFail)
			So(again.Action, ShouldEqual, ActionPlanFail)
			So(again.Count, ShouldEqual, 1)
			So(again.Pivot, ShouldBeFalse)
			So(l.stored, ShouldResemble, []int{1})
		})
		Convey("the next session still pivots with both sessions as evidence", func() {
			l.apply(k, ClassInput{SessionID: "s1", GapRate: 50})
			c := l.apply(k, ClassInput{SessionID: "s2", GapRate: 60})
			So(c.Pivot, ShouldBeTrue)
			So(c.Evidence, ShouldResemble, []string{"s1", "s2"})
		})
	})
}

func TestClassInput_Strikes(t *testing.T) {
	Convey("Only a plain gap rate above 40 strikes", t, func() {
		So(ClassInput{GapRate: 41}.Strikes(), ShouldBeTrue)
		So(ClassInput{GapRate: 40}.Strikes(), ShouldBeFalse)
		So(ClassInput{GapRate: 90, IsA2Gap: true}.Strikes(), ShouldBeFalse)
		So(ClassInput{GapRate: 90, IsSystemGap: true}.Strikes(), ShouldBeFalse)
	})
}

func TestClassLadder_StoredCountStaysBinary(t *testing.T) {
	Convey("Over a long mixed sequence", t, func() {
		l := newLedger()
		k := classKey("fractions")
		rates := []float64{50, 60, 70, 10, 45, 45, 45, 0, 41, 100, 100, 100}
		pivots := 0
		for i, r := range rates {
			if l.apply(k, ClassInput{SessionID: fmt.Sprintf("s%d", i), GapRate: r}).Pivot {
				pivots++
			}
		}

		Convey("only 0 or 1 is ever stored", func() {
			for _, c := range l.stored {
				So(c, ShouldBeIn, []int{0, 1})
			}
		})
		Convey("each pair of consecutive strikes pivots once", func() {
			So(pivots, ShouldEqual, 4)
		})
	})
}

func TestStudentLadder(t *testing.T) {
	Convey("Given a student counter", t, func() {
		Convey("stay with no row inserts count 1", func() {
			next, step := EvaluateStudent(StudentState{}, Stay, true)
			So(step, ShouldEqual, StepInsert)
			So(next, ShouldResemble, StudentState{Exists: true, Count: 1, Status: StatusActive})
		})

		Convey("three stays refer the student and cap at 3", func() {
			s := StudentState{}
			for range 4 {
				s, _ = EvaluateStudent(s, Stay, true)
			}
			So(s.Count, ShouldEqual, ReferAt)
			So(s.Status, ShouldEqual, StatusReferred)
		})

		Convey("pass resolves an existing row", func() {
			next, step := EvaluateStudent(StudentState{Exists: true, Count: 2, Status: StatusActive}, Pass, true)
			So(step, ShouldEqual, StepUpdate)
			So(next.Count, ShouldEqual, 0)
			So(next.Status, ShouldEqual, StatusResolved)
		})

		Convey("pass without a row is a no-op", func() {
			_, step := EvaluateStudent(StudentState{}, Pass, true)
			So(step, ShouldEqual, StepNone)
		})

		Convey("stay under an ineligible category is ignored", func() {
			cur := StudentState{Exists: true, Count: 1, Status: StatusActive}
			next, step := EvaluateStudent(cur, Stay, false)
			So(step, ShouldEqual, StepNone)
			So(next, ShouldResemble, cur)
		})

		Convey("unknown outcomes are ignored", func() {
			_, step := EvaluateStudent(StudentState{}, Outcome("maybe"), true)
			So(step, ShouldEqual, StepNone)
			So(Outcome("maybe").Valid(), ShouldBeFalse)
		})
	})
}
