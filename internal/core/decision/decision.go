// Package decision assembles the versioned audit record produced for every
// evaluated teaching session. Consumers read numbers from this record only.
package decision

import (
	"time"

	"github.com/tumbig251800/atlas-wise-spark/internal/core/priority"
	"github.com/tumbig251800/atlas-wise-spark/internal/core/severity"
	"github.com/tumbig251800/atlas-wise-spark/internal/core/strike"
	"github.com/tumbig251800/atlas-wise-spark/internal/core/version"
)

// Intervention sizes that only appear on the decision object
const (
	SizeForcePivot = "force-pivot"
	SizePlanFail   = "plan-fail"
)

// Degraded dependency markers
const (
	DegradedClassStrike     = "class_strike"
	DegradedTopicNormalizer = "topic_normalizer"
)

// Topic is the normalizer output embedded in the record
type Topic struct {
	Canonical  string
	Original   string
	Method     string
	Confidence float64
}

// ClassStrike is the class ladder result. Available is false when the
// counter transaction failed or timed out
type ClassStrike struct {
	Available    bool
	Outcome      strike.ClassOutcome
	PivotEventID string
}

// Inputs gathers everything Build merges
type Inputs struct {
	ComputedAt    time.Time
	TeachingLogID string
	ClassID       string
	Subject       string
	Topic         Topic
	Intervention  priority.Intervention
	Strike        ClassStrike
	Degraded      []string
}

// Object is the stored decision record
type Object struct {
	EngineVersion           string          `json:"engine_version"`
	ComputedAt              time.Time       `json:"computed_at"`
	TeachingLogID           string          `json:"teaching_log_id"`
	ClassID                 string          `json:"class_id"`
	Subject                 string          `json:"subject"`
	NormalizedTopic         string          `json:"normalized_topic"`
	OriginalTopic           string          `json:"original_topic"`
	NormalizationMethod     string          `json:"normalization_method"`
	NormalizationConfidence float64         `json:"normalization_confidence"`
	GapRate                 float64         `json:"gap_rate"`
	ClassStrikeCount        *int            `json:"class_strike_count"`
	ClassStrikeAction       strike.Action   `json:"class_strike_action"`
	InterventionSize        string          `json:"intervention_size"`
	SignalColor             *severity.Color `json:"signal_color"`
	PivotTriggered          bool            `json:"pivot_triggered"`
	PivotEventID            *string         `json:"pivot_event_id"`
	ReasonCodes             []string        `json:"reason_codes"`
	EvidenceRefs            []string        `json:"evidence_refs"`
	Degraded                []string        `json:"degraded,omitempty"`
}

// Build merges the inputs into an Object. It is a pure function of in
func Build(in Inputs) Object {
	o := Object{
		EngineVersion:           version.Engine,
		ComputedAt:              in.ComputedAt.UTC(),
		TeachingLogID:           in.TeachingLogID,
		ClassID:                 in.ClassID,
		Subject:                 in.Subject,
		NormalizedTopic:         in.Topic.Canonical,
		OriginalTopic:           in.Topic.Original,
		NormalizationMethod:     in.Topic.Method,
		NormalizationConfidence: in.Topic.Confidence,
		GapRate:                 in.Intervention.GapRate,
		InterventionSize:        string(in.Intervention.Size),
		ReasonCodes:             []string{},
		EvidenceRefs:            []string{},
		ClassStrikeAction:       strike.ActionUnknown,
	}
	if len(in.Degraded) > 0 {
		o.Degraded = append([]string(nil), in.Degraded...)
	}

	if !in.Strike.Available {
		return o
	}

	out := in.Strike.Outcome
	n := out.Count
	o.ClassStrikeCount = &n
	o.ClassStrikeAction = out.Action

	switch out.Action {
	case strike.ActionForcePivot:
		o.InterventionSize = SizeForcePivot
		o.SignalColor = colorPtr(severity.Red)
		o.PivotTriggered = true
		if in.Strike.PivotEventID != "" {
			id := in.Strike.PivotEventID
			o.PivotEventID = &id
		}
		if out.Reason != "" {
			o.ReasonCodes = []string{out.Reason}
		}
		o.EvidenceRefs = append(o.EvidenceRefs, out.Evidence...)
	case strike.ActionPlanFail:
		o.InterventionSize = SizePlanFail
		o.SignalColor = colorPtr(severity.Orange)
	case strike.ActionReset, strike.ActionSkipA2, strike.ActionSkipSystemGap, strike.ActionUnknown:
	}
	return o
}

func colorPtr(c severity.Color) *severity.Color { return &c }
