// Package strings holds small slice and path helpers shared by the HTTP and
// domain layers
package strings

import std "strings"

// IfEmpty returns def when in has no elements
func IfEmpty[T any](in []T, def []T) []T {
	if len(in) == 0 {
		return def
	}
	return in
}

// MustPrefix normalizes a mount path to one leading slash and no trailing one.
// It panics on an empty or root path, which would shadow every other module
func MustPrefix(s string) string {
	s = "/" + std.Trim(std.TrimSpace(s), "/")
	if s == "/" {
		panic("strings: mount prefix is required")
	}
	return s
}

// SplitTrim splits s on sep, trims each part and drops empty ones.
// It returns nil when nothing is left
func SplitTrim(s, sep string) []string {
	var out []string
	for _, p := range std.Split(s, sep) {
		if p = std.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
