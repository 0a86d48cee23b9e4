// Package module holds the Module contract and typed port lookup. It sits
// below modkit so a module can export its port types without an import cycle
package module

import (
	phttp "github.com/tumbig251800/atlas-wise-spark/internal/platform/net/http"
)

// Module mounts routes and exposes a port set for cross wiring
type Module interface {
	MountRoutes(r phttp.Router)
	Ports() any
	Name() string
}
