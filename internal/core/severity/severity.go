// Package severity turns a session's gap category and mastery trend into a
// color coded verdict.
package severity

import (
	"time"

	"github.com/tumbig251800/atlas-wise-spark/internal/core/gap"
)

// Color is the dashboard signal color
type Color string

// Colors
const (
	Blue   Color = "blue"
	Green  Color = "green"
	Yellow Color = "yellow"
	Orange Color = "orange"
	Red    Color = "red"
)

// Labels
const (
	LabelSystemGap      = "System-Gap (External Factor)"
	LabelSuccess        = "Success"
	LabelLearningCurve  = "Learning Curve (New Topic)"
	LabelRegression     = "Critical Regression"
	LabelStatic         = "Static Performance"
	LabelNeedsMonitor   = "Needs Monitoring"
	LabelImmediateRefer = "Immediate Referral"
)

// StaticWindow is how long a flat score must persist before it is flagged
const StaticWindow = 7 * 24 * time.Hour

// Trend is the prior mastery history for the same topic, oldest first
type Trend struct {
	Scores    []int
	Dates     []time.Time
	SameTopic bool
}

// Input is everything Classify looks at
type Input struct {
	Gap          gap.Category
	Mastery      int
	Trend        Trend
	TopicChanged bool
	Now          time.Time
}

// Verdict is a color and its human label
type Verdict struct {
	Color Color  `json:"color"`
	Label string `json:"label"`
}

// Classify applies the ordered rules, first match wins. It does not apply
// the a2-gap override, see Final
func Classify(in Input) Verdict {
	cur := in.Mastery
	scores := in.Trend.Scores
	n := len(scores)

	if in.Gap == gap.System {
		return Verdict{Blue, LabelSystemGap}
	}
	if cur >= 4 && in.Gap == gap.Success {
		return Verdict{Green, LabelSuccess}
	}
	if in.TopicChanged && n > 0 && cur < scores[n-1] {
		return Verdict{Yellow, LabelLearningCurve}
	}
	if in.Trend.SameTopic && n >= 2 {
		prev, last := scores[n-2], scores[n-1]
		if last <= prev && cur < last {
			return Verdict{Red, LabelRegression}
		}
	}
	if in.Trend.SameTopic && n >= 1 && len(in.Trend.Dates) >= 1 && cur == scores[n-1] {
		if in.Now.Sub(in.Trend.Dates[0]) >= StaticWindow {
			return Verdict{Orange, LabelStatic}
		}
	}
	if cur >= 4 {
		return Verdict{Green, LabelSuccess}
	}
	return Verdict{Orange, LabelNeedsMonitor}
}

// Final is Classify plus the a2-gap override, which always reports the
// highest severity
func Final(in Input) Verdict {
	if in.Gap == gap.AttitudeSevere {
		return Verdict{Red, LabelImmediateRefer}
	}
	return Classify(in)
}
