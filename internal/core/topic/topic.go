// Package topic folds free-text lesson topics into comparison keys and finds
// the closest known canonical topic.
//
// Key pipeline
// 1 drop invalid UTF-8
// 2 NFKC
// 3 case fold
// 4 drop format runes (ZWSP, ZWJ, BOM)
// 5 width fold
// 6 collapse whitespace and trim
//
// Combining marks are kept: Thai vowels and tone marks are Mn runes and
// carry meaning.
package topic

import (
	"strings"
	"sync"
	"unicode"

	"github.com/agext/levenshtein"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// FuzzyThreshold is the minimum similarity for a fuzzy match
const FuzzyThreshold = 0.85

// Normalization methods, recorded on every decision
const (
	MethodExact = "exact-lookup"
	MethodFuzzy = "fuzzy-match"
	MethodAI    = "ai-fallback"
	MethodRaw   = "raw-lowercase"
)

// Fixed confidences. Fuzzy matches report their similarity instead
const (
	ConfidenceExact    = 1.0
	ConfidenceAI       = 0.7
	ConfidenceFallback = 0.5
)

var chainPool = sync.Pool{
	New: func() any {
		return transform.Chain(
			norm.NFKC,
			cases.Fold(),
			runes.Remove(runes.In(unicode.Cf)),
			width.Fold,
		)
	},
}

// Key returns the comparison key for s
func Key(s string) string {
	s = strings.ToValidUTF8(strings.TrimSpace(s), "")
	if s == "" {
		return ""
	}
	tr := chainPool.Get().(transform.Transformer)
	out, _, err := transform.String(tr, s)
	tr.Reset()
	chainPool.Put(tr)
	if err != nil {
		out = strings.ToLower(s)
	}
	return strings.Join(strings.Fields(out), " ")
}

// Lower is the plain lower(trim(s)) form stored topics are compared by
func Lower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Distinct returns the trimmed, non-empty, de-duplicated topics with the
// current topic first
func Distinct(current string, history []string) []string {
	seen := make(map[string]struct{}, len(history)+1)
	out := make([]string, 0, len(history)+1)
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	add(current)
	for _, h := range history {
		add(h)
	}
	return out
}

// Match is a fuzzy candidate hit
type Match struct {
	Canonical string
	Score     float64
}

// BestMatch compares key against the folded form of each candidate and
// returns the closest one at or above FuzzyThreshold. Ties keep the first
// candidate so the result only depends on candidate order
func BestMatch(key string, candidates []string) (Match, bool) {
	if key == "" {
		return Match{}, false
	}
	var best Match
	for _, c := range candidates {
		ck := Key(c)
		if ck == "" {
			continue
		}
		score := levenshtein.Similarity(key, ck, nil)
		if score > best.Score {
			best = Match{Canonical: c, Score: score}
		}
	}
	if best.Score < FuzzyThreshold {
		return Match{}, false
	}
	return best, true
}
