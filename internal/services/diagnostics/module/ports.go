package module

import dom "github.com/tumbig251800/atlas-wise-spark/internal/services/diagnostics/domain"

// Ports holds the ports exposed by the diagnostics module
type Ports struct {
	Evaluator dom.EvaluatorPort
	Enqueuer  dom.EnqueuePort
	Decisions dom.DecisionsPort
	Aliases   dom.AliasPort
	Worker    dom.WorkerPort
}
