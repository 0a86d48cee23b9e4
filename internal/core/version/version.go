// Package version carries the decision engine version and build metadata.
package version

// Engine is embedded in every decision object. Bump it whenever the shape or
// meaning of a decision field changes
const Engine = "v1.4"

// BuildInfo describes the running binary
type BuildInfo struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Engine  string `json:"engine"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// Info returns build information for the named binary. version, commit and
// date are set with -ldflags, e.g.
// -X 'github.com/tumbig251800/atlas-wise-spark/internal/core/version.version=v0.3.0'
func Info(service string) BuildInfo {
	return BuildInfo{
		Service: service,
		Version: version,
		Engine:  Engine,
		Commit:  commit,
		Date:    date,
	}
}

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)
