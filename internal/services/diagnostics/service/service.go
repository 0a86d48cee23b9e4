// Package service implements the diagnostic pipeline, the enqueue side of the
// job queue and the worker that drains it
package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/tumbig251800/atlas-wise-spark/internal/core/strike"
	"github.com/tumbig251800/atlas-wise-spark/internal/core/topic"
	"github.com/tumbig251800/atlas-wise-spark/internal/modkit"
	"github.com/tumbig251800/atlas-wise-spark/internal/modkit/repokit"
	"github.com/tumbig251800/atlas-wise-spark/internal/platform/metrics"

	perr "github.com/tumbig251800/atlas-wise-spark/internal/platform/errors"
	dom "github.com/tumbig251800/atlas-wise-spark/internal/services/diagnostics/domain"
	drepo "github.com/tumbig251800/atlas-wise-spark/internal/services/diagnostics/repo"
)

// Service is every port the module exposes
type Service interface {
	dom.EvaluatorPort
	dom.EnqueuePort
	dom.DecisionsPort
	dom.AliasPort
	dom.WorkerPort
}

// Config controls the pipeline and the worker
type Config struct {
	WorkerID          string
	Concurrency       int
	Batch             int
	Lease             time.Duration
	MaxAttempts       int
	RetryBase         time.Duration
	StrikeLockTimeout time.Duration
	TopicTimeout      time.Duration
}

// maxBackoff caps the requeue delay
const maxBackoff = 30 * time.Second

// Svc implements Service
type Svc struct {
	store   *drepo.Store
	repo    drepo.Repo
	topics  *Normalizer
	mirror  *drepo.Mirror
	metrics *metrics.Manager
	now     func() time.Time
	cfg     Config
}

// Option tweaks construction, mostly for tests
type Option func(*options)

type options struct {
	binder repokit.Binder[drepo.Repo]
	now    func() time.Time
}

// WithBinder replaces the Postgres repo
func WithBinder(b repokit.Binder[drepo.Repo]) Option {
	return func(o *options) { o.binder = b }
}

// WithClock injects the wall clock
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New constructs the service
func New(deps modkit.Deps, cfg Config, opts ...Option) *Svc {
	o := options{binder: drepo.NewPG(), now: time.Now}
	for _, fn := range opts {
		fn(&o)
	}
	st := drepo.NewStore(deps.PG, o.binder, cfg.StrikeLockTimeout)
	return &Svc{
		store:   st,
		repo:    st.Repo(),
		topics:  NewNormalizer(st.Repo(), deps.LLM, cfg.TopicTimeout, deps.Metrics),
		mirror:  drepo.NewMirror(deps.CH),
		metrics: deps.Metrics,
		now:     o.now,
		cfg:     cfg,
	}
}

// Enqueue queues a session for the worker
func (s *Svc) Enqueue(ctx context.Context, in dom.Input) (string, error) {
	if err := checkInput(in); err != nil {
		return "", err
	}
	var statuses json.RawMessage
	if len(in.RemedialStatuses) > 0 {
		b, err := json.Marshal(in.RemedialStatuses)
		if err != nil {
			return "", perr.Wrap(err, perr.ErrorCodeJSON, "encode remedial statuses")
		}
		statuses = b
	}
	return s.repo.EnqueueJob(ctx, in.TeachingLogID, statuses)
}

// Decision returns the stored decision object of a session
func (s *Svc) Decision(ctx context.Context, teachingLogID string) (json.RawMessage, error) {
	if strings.TrimSpace(teachingLogID) == "" {
		return nil, perr.InvalidArgf("teaching log id is required")
	}
	return s.repo.Decision(ctx, teachingLogID)
}

// ActiveStrikes lists a teacher's open counters
func (s *Svc) ActiveStrikes(ctx context.Context, teacherID string) ([]dom.ActiveStrike, error) {
	if strings.TrimSpace(teacherID) == "" {
		return nil, perr.InvalidArgf("teacher id is required")
	}
	return s.repo.ActiveStrikes(ctx, teacherID)
}

// UpsertAlias maps an alias to a canonical topic. The canonical name is also
// mapped to itself so it hits the exact lookup
func (s *Svc) UpsertAlias(ctx context.Context, a dom.Alias) error {
	a.Canonical = strings.TrimSpace(a.Canonical)
	aliasKey, canonKey := topic.Key(a.Alias), topic.Key(a.Canonical)
	if aliasKey == "" || canonKey == "" || a.Subject == "" || a.GradeLevel == "" {
		return perr.InvalidArgf("subject, grade, alias and canonical are required")
	}
	if err := s.repo.UpsertAlias(ctx, a, aliasKey); err != nil {
		return err
	}
	if canonKey == aliasKey {
		return nil
	}
	return s.repo.UpsertAlias(ctx, a, canonKey)
}

func checkInput(in dom.Input) error {
	if strings.TrimSpace(in.TeachingLogID) == "" {
		return perr.WithField(perr.InvalidArgf("logId is required"), "logId")
	}
	for i, rs := range in.RemedialStatuses {
		if strings.TrimSpace(rs.StudentID) == "" {
			return perr.WithField(perr.InvalidArgf("remedial status %d has no student id", i), "remedialStatuses")
		}
		if !rs.Status.Valid() {
			return perr.WithField(perr.InvalidArgf("remedial status %q is not pass or stay", rs.Status), "remedialStatuses")
		}
	}
	return nil
}

func studentKey(teacherID, studentID, normalized string) strike.Key {
	return strike.Key{TeacherID: teacherID, Scope: strike.ScopeStudent, ScopeID: studentID, NormalizedTopic: normalized}
}
