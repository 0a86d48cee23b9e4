// Package classroom cleans classroom labels that spreadsheets tend to mangle
// and derives the class scope id used by the strike counter.
package classroom

import (
	"regexp"
	"strings"
)

var (
	thaiSuffix  = regexp.MustCompile(`^(\d+)-[ก-ฮ]`)
	monthSuffix = regexp.MustCompile(`(?i)^(\d+)-(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)`)
	gradeRoom   = regexp.MustCompile(`^ป\.\d+/(\d+)$`)
)

// Normalize returns the room number for values like "2-ก.พ.", "2-Feb" or
// "ป.4/2". Anything else comes back trimmed
func Normalize(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return v
	}
	if m := thaiSuffix.FindStringSubmatch(v); m != nil {
		return m[1]
	}
	if m := monthSuffix.FindStringSubmatch(v); m != nil {
		return m[1]
	}
	if m := gradeRoom.FindStringSubmatch(v); m != nil {
		return m[1]
	}
	return v
}

// ClassID is the class scope id, grade and cleaned room joined by a slash
func ClassID(grade, cleanRoom string) string {
	return grade + "/" + cleanRoom
}

// Same reports whether two raw classroom values normalize to the same room
func Same(a, b string) bool {
	return Normalize(a) == Normalize(b)
}
