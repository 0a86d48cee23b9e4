// Package strike holds the escalation rules for class and student strike
// counters. Functions here are pure: the caller loads the stored state under a
// row lock, applies a transition, and persists the result in the same
// transaction.
package strike

// Scope of a counter
type Scope string

// Scopes
const (
	ScopeClass   Scope = "class"
	ScopeStudent Scope = "student"
)

// Status of a counter row
type Status string

// Statuses
const (
	StatusActive   Status = "active"
	StatusResolved Status = "resolved"
	StatusReferred Status = "referred"
)

// Action is the outcome of a class evaluation
type Action string

// Actions. Unknown is never produced here; callers use it when the
// transaction itself failed
const (
	ActionSkipA2        Action = "skip_a2"
	ActionSkipSystemGap Action = "skip_system_gap"
	ActionPlanFail      Action = "plan_fail"
	ActionForcePivot    Action = "force_pivot"
	ActionReset         Action = "reset"
	ActionUnknown       Action = "unknown"
)

// ReasonForcePivot is the reason code on pivots raised by the class ladder
const ReasonForcePivot = "FORCE_CLASS_PIVOT"

// PlanFailAbove is the gap rate, in percent, above which a session counts as
// a strike
const PlanFailAbove = 40.0

// PivotAt is the class strike count that forces a pivot
const PivotAt = 2

// ReferAt is the student strike count that refers the student
const ReferAt = 3

// Key identifies one counter. Counters with different keys never interact
type Key struct {
	TeacherID       string
	Scope           Scope
	ScopeID         string
	NormalizedTopic string
}

// ClassState is what is stored for a class counter
type ClassState struct {
	Count         int
	LastSessionID string
}

// ClassInput is one session's contribution to a class counter
type ClassInput struct {
	SessionID   string
	GapRate     float64
	IsSystemGap bool
	IsA2Gap     bool
}

// ClassOutcome is the observable result of an evaluation
type ClassOutcome struct {
	Action   Action
	Count    int
	Pivot    bool
	Evidence []string
	Reason   string
}

// Strikes reports whether in counts against the class counter at all
func (in ClassInput) Strikes() bool {
	return !in.IsA2Gap && !in.IsSystemGap && in.GapRate > PlanFailAbove
}

// EvaluateClass applies the class transition rules in order. write reports
// whether next must be persisted; it is false for the skip actions and for a
// session replaying the strike it already recorded
func EvaluateClass(cur ClassState, in ClassInput) (out ClassOutcome, next ClassState, write bool) {
	switch {
	case in.IsA2Gap:
		return ClassOutcome{Action: ActionSkipA2, Count: cur.Count}, cur, false
	case in.IsSystemGap:
		return ClassOutcome{Action: ActionSkipSystemGap, Count: cur.Count}, cur, false
	case in.GapRate > PlanFailAbove && cur.Count > 0 && cur.LastSessionID == in.SessionID:
		return ClassOutcome{Action: ActionPlanFail, Count: cur.Count}, cur, false
	case in.GapRate > PlanFailAbove:
		n := cur.Count + 1
		if n >= PivotAt {
			return ClassOutcome{
				Action:   ActionForcePivot,
				Count:    0,
				Pivot:    true,
				Evidence: []string{cur.LastSessionID, in.SessionID},
				Reason:   ReasonForcePivot,
			}, ClassState{}, true
		}
		next = ClassState{Count: n, LastSessionID: in.SessionID}
		return ClassOutcome{Action: ActionPlanFail, Count: n}, next, true
	default:
		return ClassOutcome{Action: ActionReset, Count: 0}, ClassState{}, true
	}
}

// ReplayPivot is the outcome reported again for a session whose pivot is
// already recorded
func ReplayPivot(evidence []string, reason string) ClassOutcome {
	return ClassOutcome{Action: ActionForcePivot, Count: 0, Pivot: true, Evidence: evidence, Reason: reason}
}

// Outcome is a reported remedial result for one student
type Outcome string

// Outcomes
const (
	Pass Outcome = "pass"
	Stay Outcome = "stay"
)

// Valid reports whether o is pass or stay
func (o Outcome) Valid() bool { return o == Pass || o == Stay }

// StudentState is the active counter row for a student, Exists is false when
// there is none
type StudentState struct {
	Exists bool
	Count  int
	Status Status
}

// StudentStep is what to do with a student counter
type StudentStep int

// Steps
const (
	StepNone StudentStep = iota
	StepInsert
	StepUpdate
)

// EvaluateStudent applies a remedial outcome to a student counter. eligible
// is the session's gap category StrikeEligible value
func EvaluateStudent(cur StudentState, o Outcome, eligible bool) (next StudentState, step StudentStep) {
	switch o {
	case Pass:
		if !cur.Exists {
			return cur, StepNone
		}
		return StudentState{Exists: true, Count: 0, Status: StatusResolved}, StepUpdate
	case Stay:
		if !eligible {
			return cur, StepNone
		}
		if !cur.Exists {
			return StudentState{Exists: true, Count: 1, Status: StatusActive}, StepInsert
		}
		n := min(cur.Count+1, ReferAt)
		st := StatusActive
		if n >= ReferAt {
			st = StatusReferred
		}
		return StudentState{Exists: true, Count: n, Status: st}, StepUpdate
	}
	return cur, StepNone
}
