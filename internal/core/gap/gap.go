// Package gap defines the closed set of learning-gap categories a teacher can
// attach to a teaching session.
package gap

import "fmt"

// Category is the major gap recorded for a session
type Category uint8

// Categories. The zero value is invalid so an unparsed Category is never
// mistaken for a real one
const (
	_ Category = iota
	Knowledge
	Practice
	Attitude
	AttitudeSevere
	System
	Success
)

var names = [...]string{
	Knowledge:      "k-gap",
	Practice:       "p-gap",
	Attitude:       "a-gap",
	AttitudeSevere: "a2-gap",
	System:         "system-gap",
	Success:        "success",
}

// All lists every valid category in declaration order
func All() []Category {
	return []Category{Knowledge, Practice, Attitude, AttitudeSevere, System, Success}
}

// Parse maps the stored string form to a Category
func Parse(s string) (Category, error) {
	for c, n := range names {
		if n != "" && n == s {
			return Category(c), nil
		}
	}
	return 0, fmt.Errorf("gap: unknown category %q", s)
}

// MustParse is Parse for literals in tests and fixtures
func MustParse(s string) Category {
	c, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Valid reports whether c is one of the declared categories
func (c Category) Valid() bool {
	return c >= Knowledge && c <= Success
}

// String returns the stored form, e.g. "k-gap"
func (c Category) String() string {
	if !c.Valid() {
		return fmt.Sprintf("gap(%d)", uint8(c))
	}
	return names[c]
}

// StrikeEligible reports whether a student "stay" outcome under this category
// advances the student strike ladder
func (c Category) StrikeEligible() bool {
	switch c {
	case Knowledge, Practice, Attitude:
		return true
	case AttitudeSevere, System, Success:
		return false
	}
	return false
}

// MarshalText implements encoding.TextMarshaler
func (c Category) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("gap: invalid category %d", uint8(c))
	}
	return []byte(names[c]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (c *Category) UnmarshalText(b []byte) error {
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}
