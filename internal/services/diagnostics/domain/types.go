package domain

import (
	"encoding/json"
	"time"

	"github.com/tumbig251800/atlas-wise-spark/internal/core/decision"
	"github.com/tumbig251800/atlas-wise-spark/internal/core/strike"
	pstrings "github.com/tumbig251800/atlas-wise-spark/internal/platform/strings"
)

// HistoryLimit is how many prior sessions are read for the trend
const HistoryLimit = 20

// Session is one teaching_logs row
type Session struct {
	ID            string
	TeacherID     string
	Subject       string
	GradeLevel    string
	Classroom     string
	Topic         string
	Mastery       int
	TeachingDate  time.Time
	MajorGap      string
	TotalStudents int // 0 when the column is null
	RemedialRaw   string
}

// RemedialIDs splits the comma separated remedial_ids column
func (s Session) RemedialIDs() []string {
	return pstrings.SplitTrim(s.RemedialRaw, ",")
}

// HistoryRow is a prior session of the same teacher, subject and grade
type HistoryRow struct {
	ID           string
	Topic        string
	Classroom    string
	Mastery      int
	TeachingDate time.Time
}

// RemedialStatus is a reported outcome for one student
type RemedialStatus struct {
	StudentID string         `json:"studentId" validate:"required"`
	Status    strike.Outcome `json:"status" validate:"required,oneof=pass stay"`
}

// Input asks for one session to be evaluated
type Input struct {
	TeachingLogID    string           `json:"logId" validate:"required,uuid"`
	RemedialStatuses []RemedialStatus `json:"remedialStatuses" validate:"omitempty,dive"`
}

// Result is the synchronous answer for one evaluation
type Result struct {
	Color                   string          `json:"color"`
	Label                   string          `json:"label"`
	PriorityLevel           int             `json:"priorityLevel"`
	RecommendedAction       string          `json:"recommendedAction"`
	InterventionSize        string          `json:"interventionSize"`
	ThresholdPct            int             `json:"thresholdPct"`
	NormalizedTopic         string          `json:"normalizedTopic"`
	NormalizationMethod     string          `json:"normalizationMethod"`
	NormalizationConfidence float64         `json:"normalizationConfidence"`
	DecisionObject          decision.Object `json:"decisionObject"`
}

// Event is a diagnostic_events row. StudentID is empty on the canonical row,
// Decision is only set there
type Event struct {
	TeachingLogID    string
	TeacherID        string
	StudentID        string
	Subject          string
	Topic            string
	NormalizedTopic  string
	GradeLevel       string
	Classroom        string
	StatusColor      string
	StatusLabel      string
	GapType          string
	PriorityLevel    int
	InterventionSize string
	ThresholdPct     int
	Decision         *decision.Object
}

// Remedial is a remedial_tracking row
type Remedial struct {
	TeacherID       string
	TeachingLogID   string
	StudentID       string
	Topic           string
	NormalizedTopic string
	Subject         string
	GradeLevel      string
	Classroom       string
	Status          strike.Outcome
}

// StrikeMeta is the descriptive part of a counter row, written on insert
type StrikeMeta struct {
	Subject string
	Topic   string
	GapType string
}

// Pivot is an immutable pivot_events row
type Pivot struct {
	TeacherID        string
	ClassID          string
	Subject          string
	NormalizedTopic  string
	Evidence         []string
	Reason           string
	TriggerSessionID string
}

// ActiveStrike is a counter row listed for operators
type ActiveStrike struct {
	ID              string    `json:"id"`
	Scope           string    `json:"scope"`
	ScopeID         string    `json:"scopeId"`
	NormalizedTopic string    `json:"normalizedTopic"`
	Subject         string    `json:"subject"`
	GapType         string    `json:"gapType"`
	Count           int       `json:"strikeCount"`
	Status          string    `json:"status"`
	LastSessionID   string    `json:"lastSessionId,omitempty"`
	LastUpdated     time.Time `json:"lastUpdated"`
}

// Alias maps a folded topic key to its canonical name
type Alias struct {
	Subject    string `json:"subject" validate:"required,notblank"`
	GradeLevel string `json:"gradeLevel" validate:"required,notblank"`
	Alias      string `json:"alias" validate:"required,notblank"`
	Canonical  string `json:"canonical" validate:"required,notblank"`
}

// Job is a leased diagnostic_jobs row
type Job struct {
	JobID         string
	TeachingLogID string
	Statuses      json.RawMessage
	Attempts      int
	NextAttemptAt time.Time
	LeasedBy      string
	LeaseExpires  time.Time
	CreatedAt     time.Time
}

// Input decodes the job back into an evaluation request
func (j Job) Input() (Input, error) {
	in := Input{TeachingLogID: j.TeachingLogID}
	if len(j.Statuses) == 0 || string(j.Statuses) == "null" {
		return in, nil
	}
	err := json.Unmarshal(j.Statuses, &in.RemedialStatuses)
	return in, err
}
