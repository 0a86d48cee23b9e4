// Package priority maps a gap category to a priority level and recommended
// action, and sizes the intervention from the remedial headcount.
package priority

import (
	"math"

	"github.com/tumbig251800/atlas-wise-spark/internal/core/gap"
)

// Priority levels, 1 is most urgent
const (
	LevelReferral   = 1
	LevelEngagement = 2
	LevelReteach    = 3
	LevelArchive    = 4
)

// Priority is a level and the action shown to the teacher
type Priority struct {
	Level             int    `json:"level"`
	RecommendedAction string `json:"recommendedAction"`
}

// For returns the priority for a category. Invalid categories get the
// archive priority
func For(c gap.Category) Priority {
	switch c {
	case gap.AttitudeSevere:
		return Priority{LevelReferral, "Immediate Referral — ส่งต่อผู้บริหารทันที"}
	case gap.Attitude:
		return Priority{LevelEngagement, "Gamification/Role-play เพื่อดึงความสนใจ"}
	case gap.Knowledge:
		return Priority{LevelReteach, "Re-teach: สอนซ้ำ/สาธิตใหม่"}
	case gap.Practice:
		return Priority{LevelReteach, "Drill: ฝึกปฏิบัติซ้ำ"}
	case gap.System:
		return Priority{LevelArchive, "แยกรายงานเข้า Executive Dashboard"}
	case gap.Success:
		return Priority{LevelArchive, "บันทึกเข้า Knowledge Library"}
	}
	return Priority{LevelArchive, "บันทึกเข้า Knowledge Library"}
}

// Size is an intervention band
type Size string

// Bands
const (
	Individual Size = "individual"
	SmallGroup Size = "small-group"
	Pivot      Size = "pivot"
)

// DefaultClassSize is used when a session has no usable student count
const DefaultClassSize = 30

// Band thresholds in whole percent, both exclusive
const (
	SmallGroupAbove = 20
	PivotAbove      = 40
)

// Intervention is the sized result. GapRate is the exact percentage, Pct the
// rounded one used for banding and display
type Intervention struct {
	Size      Size    `json:"size"`
	Pct       int     `json:"pct"`
	GapRate   float64 `json:"gapRate"`
	ClassSize int     `json:"classSize"`
}

// ClassSize returns total when positive, else DefaultClassSize
func ClassSize(total int) int {
	if total > 0 {
		return total
	}
	return DefaultClassSize
}

// Sizing buckets remedialCount out of the class size
func Sizing(remedialCount, total int) Intervention {
	size := ClassSize(total)
	if remedialCount < 0 {
		remedialCount = 0
	}
	rate := float64(remedialCount) / float64(size) * 100
	pct := int(math.Floor(rate + 0.5))

	band := Individual
	switch {
	case pct > PivotAbove:
		band = Pivot
	case pct > SmallGroupAbove:
		band = SmallGroup
	}
	return Intervention{Size: band, Pct: pct, GapRate: rate, ClassSize: size}
}
