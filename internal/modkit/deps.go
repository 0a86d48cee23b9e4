package modkit

import (
	"github.com/tumbig251800/atlas-wise-spark/internal/modkit/repokit"
	"github.com/tumbig251800/atlas-wise-spark/internal/platform/config"
	"github.com/tumbig251800/atlas-wise-spark/internal/platform/llm"
	"github.com/tumbig251800/atlas-wise-spark/internal/platform/metrics"
	"github.com/tumbig251800/atlas-wise-spark/internal/platform/store"
)

// Deps are the shared dependencies handed to every module. CH, LLM and
// Metrics may be nil; consumers treat nil as disabled
type Deps struct {
	Cfg     config.Conf
	PG      repokit.TxRunner
	CH      store.Clickhouse
	LLM     llm.Provider
	Metrics *metrics.Manager
}
