package pg

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tumbig251800/atlas-wise-spark/internal/platform/logger"
)

// QueryEvent describes one finished statement
type QueryEvent struct {
	SQL       string
	Args      []any
	ElapsedUS int64
	Err       error
	Slow      bool
}

// QueryTracer receives query events
type QueryTracer interface {
	OnQuery(ctx context.Context, ev QueryEvent)
}

// Tracer logs slow and failed statements, and every statement when verbose
func Tracer(root logger.Logger, verbose bool) QueryTracer {
	return &zlTracer{log: root.With().Str("component", "pg").Logger(), verbose: verbose}
}

type zlTracer struct {
	log     logger.Logger
	verbose bool
}

func (z *zlTracer) OnQuery(_ context.Context, ev QueryEvent) {
	var evt *zerolog.Event
	switch {
	case ev.Err != nil && !isNoRows(ev.Err):
		evt = z.log.Warn().Err(ev.Err)
	case ev.Slow:
		evt = z.log.Warn()
	case z.verbose:
		evt = z.log.Debug()
	default:
		return
	}
	evt.Float64("elapsed_ms", float64(ev.ElapsedUS)/1000).
		Bool("slow", ev.Slow).
		Str("sql", compact(ev.SQL)).
		Int("args", len(ev.Args)).
		Msg("pg query")
}

func isNoRows(err error) bool {
	return strings.Contains(err.Error(), "no rows in result set")
}

// compact folds whitespace runs so statements log on one line
func compact(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
