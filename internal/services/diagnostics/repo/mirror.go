package repo

import (
	"context"
	"fmt"

	"github.com/tumbig251800/atlas-wise-spark/internal/core/decision"
	"github.com/tumbig251800/atlas-wise-spark/internal/platform/store"
	"github.com/tumbig251800/atlas-wise-spark/internal/services/diagnostics/domain"
)

// DecisionsTable is the ClickHouse table canonical decisions are copied to
const DecisionsTable = "diagnostic_decisions"

// Mirror copies canonical decisions into ClickHouse. A Mirror over a nil
// client does nothing
type Mirror struct {
	ch store.Clickhouse
}

// NewMirror wraps ch, which may be nil
func NewMirror(ch store.Clickhouse) *Mirror { return &Mirror{ch: ch} }

// Enabled reports whether a client is attached
func (m *Mirror) Enabled() bool { return m != nil && m.ch != nil }

// Migrate creates the mirror table
func (m *Mirror) Migrate(ctx context.Context) error {
	if !m.Enabled() {
		return nil
	}
	for _, stmt := range Statements(chSchemaSQL) {
		if err := m.ch.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ch migrate: %w", err)
		}
	}
	return nil
}

// Decision appends one canonical decision
func (m *Mirror) Decision(ctx context.Context, e domain.Event, o decision.Object) error {
	if !m.Enabled() {
		return nil
	}
	var pivot uint8
	if o.PivotTriggered {
		pivot = 1
	}
	degraded := o.Degraded
	if degraded == nil {
		degraded = []string{}
	}
	row := []any{
		e.TeachingLogID, e.TeacherID, e.Subject, o.ClassID, o.NormalizedTopic,
		o.NormalizationMethod, e.StatusColor, e.GapType, o.InterventionSize,
		o.GapRate, string(o.ClassStrikeAction), pivot, degraded,
		o.EngineVersion, o.ComputedAt,
	}
	return m.ch.Insert(ctx, DecisionsTable, [][]any{row})
}
