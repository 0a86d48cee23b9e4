package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tumbig251800/atlas-wise-spark/internal/core/strike"
	"github.com/tumbig251800/atlas-wise-spark/internal/modkit"
	"github.com/tumbig251800/atlas-wise-spark/internal/modkit/repokit"
	"github.com/tumbig251800/atlas-wise-spark/internal/platform/config"
	"github.com/tumbig251800/atlas-wise-spark/internal/platform/llm"
	"github.com/tumbig251800/atlas-wise-spark/internal/platform/store"
	"github.com/tumbig251800/atlas-wise-spark/internal/platform/testkit"

	perr "github.com/tumbig251800/atlas-wise-spark/internal/platform/errors"
	dom "github.com/tumbig251800/atlas-wise-spark/internal/services/diagnostics/domain"
	drepo "github.com/tumbig251800/atlas-wise-spark/internal/services/diagnostics/repo"
)

// fakeTx serializes transactions and records every statement it is asked to
// run directly, which is only ever the begin hook
type fakeTx struct {
	mu    sync.Mutex
	execs []string
	txs   int
}

type fakeTag struct{}

func (fakeTag) String() string      { return "" }
func (fakeTag) RowsAffected() int64 { return 1 }

func (f *fakeTx) Exec(_ context.Context, sql string, _ ...any) (store.CommandTag, error) {
	f.execs = append(f.execs, sql)
	return fakeTag{}, nil
}

func (f *fakeTx) Query(context.Context, string, ...any) (store.Rows, error) {
	return nil, fmt.Errorf("fakeTx: Query not supported")
}

func (f *fakeTx) QueryRow(context.Context, string, ...any) store.Row { return nil }

func (f *fakeTx) Tx(_ context.Context, fn func(q store.RowQuerier) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.txs++
	return fn(f)
}

type counterRow struct {
	id     string
	key    strike.Key
	count  int
	last   string
	status strike.Status
	gap    string
}

// memRepo is an in-memory Repo. Every binding shares the same state
type memRepo struct {
	mu sync.Mutex

	sessions map[string]dom.Session
	aliases  map[string]string
	counters []*counterRow
	pivots   []dom.Pivot
	pivotIDs []string
	canon    map[string]dom.Event
	students map[string]dom.Event
	remedial []dom.Remedial
	jobs     map[string]*dom.Job
	requeues map[string]time.Time

	lockErr   error
	writeErr  error
	writeErrN int // when > 0, writeErr is returned this many times only
	aliasErr  error
	seq       int
}

func newMemRepo() *memRepo {
	return &memRepo{
		sessions: map[string]dom.Session{},
		aliases:  map[string]string{},
		canon:    map[string]dom.Event{},
		students: map[string]dom.Event{},
		jobs:     map[string]*dom.Job{},
		requeues: map[string]time.Time{},
	}
}

func (m *memRepo) Bind(repokit.Queryer) drepo.Repo { return m }

func (m *memRepo) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func (m *memRepo) Session(_ context.Context, id string) (dom.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return dom.Session{}, perr.NotFoundf("teaching log %s not found", id)
	}
	return s, nil
}

func (m *memRepo) History(_ context.Context, s dom.Session, limit int) ([]dom.HistoryRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []dom.HistoryRow
	for _, o := range m.sessions {
		if o.ID == s.ID || o.TeacherID != s.TeacherID || o.Subject != s.Subject || o.GradeLevel != s.GradeLevel {
			continue
		}
		out = append(out, dom.HistoryRow{
			ID: o.ID, Topic: o.Topic, Classroom: o.Classroom, Mastery: o.Mastery, TeachingDate: o.TeachingDate,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TeachingDate.After(out[j].TeachingDate) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func aliasKey(subject, grade, key string) string { return subject + "|" + grade + "|" + key }

func (m *memRepo) AliasCanonical(_ context.Context, subject, grade, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.aliasErr != nil {
		return "", false, m.aliasErr
	}
	c, ok := m.aliases[aliasKey(subject, grade, key)]
	return c, ok, nil
}

func (m *memRepo) AliasCanonicals(_ context.Context, subject, grade string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.aliasErr != nil {
		return nil, m.aliasErr
	}
	seen := map[string]bool{}
	var out []string
	for k, c := range m.aliases {
		if strings.HasPrefix(k, subject+"|"+grade+"|") && !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *memRepo) UpsertAlias(_ context.Context, a dom.Alias, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.aliases[aliasKey(a.Subject, a.GradeLevel, key)] = a.Canonical
	return nil
}

func (m *memRepo) active(k strike.Key) *counterRow {
	for _, c := range m.counters {
		if c.key == k && c.status == strike.StatusActive {
			return c
		}
	}
	return nil
}

func (m *memRepo) EnsureClassStrike(_ context.Context, k strike.Key, meta dom.StrikeMeta) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lockErr != nil {
		return m.lockErr
	}
	if m.active(k) == nil {
		m.counters = append(m.counters, &counterRow{
			id: m.nextID("counter"), key: k, status: strike.StatusActive, gap: meta.GapType,
		})
	}
	return nil
}

func (m *memRepo) LockClassStrike(_ context.Context, k strike.Key) (string, strike.ClassState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lockErr != nil {
		return "", strike.ClassState{}, m.lockErr
	}
	c := m.active(k)
	if c == nil {
		return "", strike.ClassState{}, nil
	}
	return c.id, strike.ClassState{Count: c.count, LastSessionID: c.last}, nil
}

func (m *memRepo) byID(id string) *counterRow {
	for _, c := range m.counters {
		if c.id == id {
			return c
		}
	}
	return nil
}

func (m *memRepo) SaveClassStrike(_ context.Context, id string, st strike.ClassState, gapType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.byID(id)
	if c == nil {
		return perr.NotFoundf("counter %s", id)
	}
	c.count, c.last, c.gap = st.Count, st.LastSessionID, gapType
	return nil
}

func (m *memRepo) InsertPivot(_ context.Context, p dom.Pivot) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.pivots {
		if o.TriggerSessionID == p.TriggerSessionID {
			return "", perr.Newf(perr.ErrorCodeConflict, "pivot for %s exists", p.TriggerSessionID)
		}
	}
	id := m.nextID("pivot")
	m.pivots = append(m.pivots, p)
	m.pivotIDs = append(m.pivotIDs, id)
	return id, nil
}

func (m *memRepo) PivotByTrigger(_ context.Context, sessionID string) (string, dom.Pivot, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, p := range m.pivots {
		if p.TriggerSessionID == sessionID {
			return m.pivotIDs[i], p, true, nil
		}
	}
	return "", dom.Pivot{}, false, nil
}

func (m *memRepo) LockStudentStrike(_ context.Context, k strike.Key) (string, strike.StudentState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c := m.active(k); c != nil {
		return c.id, strike.StudentState{Exists: true, Count: c.count, Status: c.status}, nil
	}
	return "", strike.StudentState{}, nil
}

func (m *memRepo) InsertStudentStrike(_ context.Context, k strike.Key, meta dom.StrikeMeta, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters = append(m.counters, &counterRow{
		id: m.nextID("counter"), key: k, count: 1, last: sessionID, status: strike.StatusActive, gap: meta.GapType,
	})
	return nil
}

func (m *memRepo) UpdateStudentStrike(_ context.Context, id string, st strike.StudentState, sessionID, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.byID(id)
	if c == nil {
		return perr.NotFoundf("counter %s", id)
	}
	c.count, c.status, c.last = st.Count, st.Status, sessionID
	return nil
}

func (m *memRepo) ActiveStrikes(_ context.Context, teacherID string) ([]dom.ActiveStrike, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []dom.ActiveStrike
	for _, c := range m.counters {
		if c.key.TeacherID == teacherID && c.status != strike.StatusResolved {
			out = append(out, dom.ActiveStrike{
				ID: c.id, Scope: string(c.key.Scope), ScopeID: c.key.ScopeID,
				NormalizedTopic: c.key.NormalizedTopic, Count: c.count, Status: string(c.status),
			})
		}
	}
	return out, nil
}

func (m *memRepo) InsertRemedial(_ context.Context, r dom.Remedial) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.remedial {
		if o.TeachingLogID == r.TeachingLogID && o.StudentID == r.StudentID {
			return false, nil
		}
	}
	m.remedial = append(m.remedial, r)
	return true, nil
}

func (m *memRepo) UpsertCanonicalEvent(_ context.Context, e dom.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		err := m.writeErr
		if m.writeErrN > 0 {
			if m.writeErrN--; m.writeErrN == 0 {
				m.writeErr = nil
			}
		}
		return err
	}
	m.canon[e.TeachingLogID] = e
	return nil
}

func (m *memRepo) InsertStudentEvent(_ context.Context, e dom.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := e.TeachingLogID + "/" + e.StudentID
	if _, ok := m.students[k]; !ok {
		m.students[k] = e
	}
	return nil
}

func (m *memRepo) Decision(_ context.Context, id string) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.canon[id]
	if !ok {
		return nil, perr.NotFoundf("no decision for teaching log %s", id)
	}
	return json.Marshal(e.Decision)
}

func (m *memRepo) EnqueueJob(_ context.Context, logID string, statuses json.RawMessage) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, j := range m.jobs {
		if j.TeachingLogID == logID {
			j.Statuses = statuses
			return j.JobID, nil
		}
	}
	id := m.nextID("job")
	m.jobs[id] = &dom.Job{JobID: id, TeachingLogID: logID, Statuses: statuses}
	return id, nil
}

func (m *memRepo) LeaseJobs(_ context.Context, worker string, limit int, _ time.Duration) ([]dom.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []dom.Job
	for _, j := range m.jobs {
		if j.LeasedBy == "" && len(out) < limit {
			j.LeasedBy = worker
			out = append(out, *j)
		}
	}
	return out, nil
}

func (m *memRepo) CompleteJob(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.jobs, id)
	return nil
}

func (m *memRepo) RequeueJob(_ context.Context, id, _ string, next time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j, ok := m.jobs[id]; ok {
		j.Attempts++
		j.LeasedBy = ""
		j.NextAttemptAt = next
	}
	m.requeues[id] = next
	return nil
}

func (m *memRepo) counter(scope strike.Scope, scopeID string) *counterRow {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.counters {
		if c.key.Scope == scope && c.key.ScopeID == scopeID && c.status == strike.StatusActive {
			return c
		}
	}
	return nil
}

var _ drepo.Repo = (*memRepo)(nil)

type harness struct {
	svc   *Svc
	repo  *memRepo
	tx    *fakeTx
	clock *testkit.Clock
	llm   *llm.Mock
}

var epoch = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func newHarness(provider llm.Provider) *harness {
	h := &harness{repo: newMemRepo(), tx: &fakeTx{}, clock: testkit.NewClock(epoch)}
	if m, ok := provider.(*llm.Mock); ok {
		h.llm = m
	}
	h.svc = New(modkit.Deps{Cfg: config.New(), PG: h.tx, LLM: provider}, Config{
		WorkerID:          "test",
		Concurrency:       2,
		Batch:             8,
		MaxAttempts:       3,
		RetryBase:         time.Second,
		StrikeLockTimeout: 3 * time.Second,
		TopicTimeout:      50 * time.Millisecond,
	}, WithBinder(h.repo), WithClock(h.clock.Now))
	return h
}

// session adds a teaching log with sensible defaults; mutate customizes it
func (h *harness) session(id string, mutate func(*dom.Session)) dom.Session {
	s := dom.Session{
		ID:            id,
		TeacherID:     "teacher-1",
		Subject:       "math",
		GradeLevel:    "P.4",
		Classroom:     "2",
		Topic:         "Fractions",
		Mastery:       3,
		TeachingDate:  epoch,
		MajorGap:      "k-gap",
		TotalStudents: 30,
	}
	if mutate != nil {
		mutate(&s)
	}
	h.repo.mu.Lock()
	h.repo.sessions[id] = s
	h.repo.mu.Unlock()
	return s
}

// remedial returns n comma separated student ids
func remedial(n int) string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("st-%02d", i+1)
	}
	return strings.Join(ids, ",")
}
