// Package repo is the Postgres persistence for the diagnostic engine
package repo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/tumbig251800/atlas-wise-spark/internal/core/strike"
	"github.com/tumbig251800/atlas-wise-spark/internal/modkit/repokit"
	"github.com/tumbig251800/atlas-wise-spark/internal/services/diagnostics/domain"
)

// Repo is the persistence surface used by the service layer. Methods run on
// whatever Queryer the repo was bound to, so the Lock* methods only hold their
// lock when bound inside a transaction
type Repo interface {
	Session(ctx context.Context, id string) (domain.Session, error)
	History(ctx context.Context, s domain.Session, limit int) ([]domain.HistoryRow, error)

	AliasCanonical(ctx context.Context, subject, grade, aliasKey string) (string, bool, error)
	AliasCanonicals(ctx context.Context, subject, grade string) ([]string, error)
	UpsertAlias(ctx context.Context, a domain.Alias, aliasKey string) error

	EnsureClassStrike(ctx context.Context, k strike.Key, meta domain.StrikeMeta) error
	LockClassStrike(ctx context.Context, k strike.Key) (rowID string, st strike.ClassState, err error)
	SaveClassStrike(ctx context.Context, rowID string, st strike.ClassState, gapType string) error
	InsertPivot(ctx context.Context, p domain.Pivot) (string, error)
	PivotByTrigger(ctx context.Context, sessionID string) (id string, p domain.Pivot, found bool, err error)

	LockStudentStrike(ctx context.Context, k strike.Key) (rowID string, st strike.StudentState, err error)
	InsertStudentStrike(ctx context.Context, k strike.Key, meta domain.StrikeMeta, sessionID string) error
	UpdateStudentStrike(ctx context.Context, rowID string, st strike.StudentState, sessionID, gapType string) error
	ActiveStrikes(ctx context.Context, teacherID string) ([]domain.ActiveStrike, error)

	InsertRemedial(ctx context.Context, r domain.Remedial) (inserted bool, err error)
	UpsertCanonicalEvent(ctx context.Context, e domain.Event) error
	InsertStudentEvent(ctx context.Context, e domain.Event) error
	Decision(ctx context.Context, teachingLogID string) (json.RawMessage, error)

	EnqueueJob(ctx context.Context, teachingLogID string, statuses json.RawMessage) (string, error)
	LeaseJobs(ctx context.Context, workerID string, limit int, leaseFor time.Duration) ([]domain.Job, error)
	CompleteJob(ctx context.Context, jobID string) error
	RequeueJob(ctx context.Context, jobID, lastErr string, next time.Time) error
}

type (
	// PG is the Postgres implementation of Repo
	PG      struct{}
	queries struct{ q repokit.Queryer }
)

// NewPG returns a binder for the Postgres implementation
func NewPG() repokit.Binder[Repo] { return PG{} }

// Bind attaches a Queryer
func (PG) Bind(q repokit.Queryer) Repo { return &queries{q: q} }
