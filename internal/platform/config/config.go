// Package config reads settings from the environment, with an optional YAML
// overlay file for values that are not set in the environment.
//
// The overlay is a flat map keyed by the same names as the env vars:
//
//	DIAG_WORKER_CONCURRENCY: 8
//	LLM_PROVIDER: anthropic
package config

import (
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/tumbig251800/atlas-wise-spark/internal/platform/logger"
)

// FileEnv names the env var that points at the overlay file
const FileEnv = "ATLAS_CONFIG_FILE"

var overlay atomic.Pointer[koanf.Koanf]

// LoadFile loads path as the overlay, replacing any previous one. An empty
// path clears the overlay
func LoadFile(path string) error {
	if strings.TrimSpace(path) == "" {
		overlay.Store(nil)
		return nil
	}
	k := koanf.New("::")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return err
	}
	overlay.Store(k)
	return nil
}

// LoadFromEnv loads the overlay named by ATLAS_CONFIG_FILE, if any
func LoadFromEnv() error {
	return LoadFile(os.Getenv(FileEnv))
}

// Conf is a prefixed view, e.g. New().Prefix("DIAG_")
type Conf struct{ prefix string }

// New returns the root view
func New() Conf { return Conf{} }

// Prefix returns a child view with p appended to the prefix
func (c Conf) Prefix(p string) Conf { return Conf{prefix: c.prefix + p} }

func (c Conf) key(k string) string { return c.prefix + k }

// lookup returns the trimmed value for k, env first then overlay
func (c Conf) lookup(k string) string {
	name := c.key(k)
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v
	}
	if ko := overlay.Load(); ko != nil && ko.Exists(name) {
		return strings.TrimSpace(ko.String(name))
	}
	return ""
}

// Has reports whether k is set anywhere
func (c Conf) Has(k string) bool { return c.lookup(k) != "" }

// MustString panics when k is missing
func (c Conf) MustString(k string) string {
	v := c.lookup(k)
	if v == "" {
		logger.Get().Panic().Str("key", c.key(k)).Msg("missing required config")
	}
	return v
}

// MustInt panics when k is missing or not an int
func (c Conf) MustInt(k string) int {
	s := c.MustString(k)
	v, err := strconv.Atoi(s)
	if err != nil {
		logger.Get().Panic().Str("key", c.key(k)).Str("value", s).Msg("invalid int value")
	}
	return v
}

// MustURL panics when k is missing or not an absolute URL
func (c Conf) MustURL(k string) *url.URL {
	s := c.MustString(k)
	u, err := url.Parse(s)
	if err != nil || !u.IsAbs() {
		logger.Get().Panic().Str("key", c.key(k)).Msg("invalid absolute URL")
	}
	return u
}

// MayString returns the value or def
func (c Conf) MayString(k, def string) string {
	if v := c.lookup(k); v != "" {
		return v
	}
	return def
}

// may parses k with parse, warning and falling back to def on bad input
func may[T any](c Conf, k string, def T, kind string, parse func(string) (T, error)) T {
	s := c.lookup(k)
	if s == "" {
		return def
	}
	v, err := parse(s)
	if err != nil {
		logger.Get().Warn().Str("key", c.key(k)).Str("value", s).Msgf("invalid %s; using default", kind)
		return def
	}
	return v
}

// MayInt returns the int value or def
func (c Conf) MayInt(k string, def int) int {
	return may(c, k, def, "int", strconv.Atoi)
}

// MayFloat64 returns the float value or def
func (c Conf) MayFloat64(k string, def float64) float64 {
	return may(c, k, def, "float", func(s string) (float64, error) { return strconv.ParseFloat(s, 64) })
}

// MayBool returns the bool value or def
func (c Conf) MayBool(k string, def bool) bool {
	return may(c, k, def, "bool", strconv.ParseBool)
}

// MayDuration returns the duration value (250ms, 3s) or def
func (c Conf) MayDuration(k string, def time.Duration) time.Duration {
	return may(c, k, def, "duration", time.ParseDuration)
}

// MayCSV splits a comma separated value, dropping blanks
func (c Conf) MayCSV(k string, def []string) []string {
	s := c.lookup(k)
	if s == "" {
		return def
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

// MayEnum returns the value when it is one of allowed (case-insensitive, the
// allowed spelling is returned), def when unset, and panics otherwise
func (c Conf) MayEnum(k, def string, allowed ...string) string {
	v := c.MayString(k, def)
	if v == "" {
		return v
	}
	for _, a := range allowed {
		if strings.EqualFold(v, a) {
			return a
		}
	}
	logger.Get().Panic().Str("key", c.key(k)).Str("value", v).Strs("allowed", allowed).Msg("invalid enum value")
	return ""
}
