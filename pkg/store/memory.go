package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store implementation used by unit tests that
// exercise bus/brain/chat/etc. logic without a PostgreSQL fixture. It is not
// used in production — see PostgresStore for the real adapter.
type MemoryStore struct {
	mu sync.Mutex

	projects   map[string]*Project
	runs       map[string]*Run
	steps      map[string]*PlanStep
	tasks      map[string]*Task
	events     []*Event
	nextEvtID  int64
	approvals  map[string]*Approval
	sources    map[string][]*Source
	facts      map[string][]*Fact
	artifacts  map[string][]*Artifact
	conflicts  map[string]*Conflict
	memories   map[string]*UserMemory
	tokenHash  *SessionTokenHash
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		projects:  make(map[string]*Project),
		runs:      make(map[string]*Run),
		steps:     make(map[string]*PlanStep),
		tasks:     make(map[string]*Task),
		approvals: make(map[string]*Approval),
		sources:   make(map[string][]*Source),
		facts:     make(map[string][]*Fact),
		artifacts: make(map[string][]*Artifact),
		conflicts: make(map[string]*Conflict),
		memories:  make(map[string]*UserMemory),
	}
}

func (m *MemoryStore) CreateProject(_ context.Context, p *Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.projects[p.ID] = &cp
	return nil
}

func (m *MemoryStore) GetProject(_ context.Context, id string) (*Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MemoryStore) CreateRun(_ context.Context, r *Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.runs[r.ID] = &cp
	return nil
}

func (m *MemoryStore) GetRun(_ context.Context, id string) (*Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *MemoryStore) UpdateRunStatus(_ context.Context, id, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[id]
	if !ok {
		return ErrNotFound
	}
	r.Status = status
	return nil
}

func (m *MemoryStore) ListActiveRuns(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for _, r := range m.runs {
		switch r.Status {
		case RunStatusRunning, RunStatusWaitingApproval, RunStatusPaused:
			ids = append(ids, r.ID)
		}
	}
	return ids, nil
}

func (m *MemoryStore) UpdateRunMetaAndMode(_ context.Context, id string, meta map[string]any, mode, purpose string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[id]
	if !ok {
		return ErrNotFound
	}
	r.Meta = meta
	r.Mode = mode
	r.Purpose = purpose
	return nil
}

func (m *MemoryStore) CreatePlanSteps(_ context.Context, steps []*PlanStep) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, st := range steps {
		cp := *st
		m.steps[st.ID] = &cp
	}
	return nil
}

func (m *MemoryStore) ListPlanSteps(_ context.Context, runID string) ([]*PlanStep, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*PlanStep
	for _, st := range m.steps {
		if st.RunID == runID {
			cp := *st
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StepIndex < out[j].StepIndex })
	return out, nil
}

func (m *MemoryStore) UpdatePlanStepStatus(_ context.Context, id, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.steps[id]
	if !ok {
		return ErrNotFound
	}
	st.Status = status
	return nil
}

func (m *MemoryStore) CreateTask(_ context.Context, t *Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.tasks[t.ID] = &cp
	return nil
}

func (m *MemoryStore) GetTask(_ context.Context, id string) (*Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *MemoryStore) ListTasks(_ context.Context, runID string) ([]*Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Task
	for _, t := range m.tasks {
		if t.RunID == runID {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MemoryStore) UpdateTaskStatus(_ context.Context, id, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return ErrNotFound
	}
	t.Status = status
	return nil
}

func (m *MemoryStore) ActiveTaskForStep(_ context.Context, runID, stepID string) (*Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *Task
	for _, t := range m.tasks {
		if t.RunID != runID || t.StepID != stepID {
			continue
		}
		if t.Status == TaskStatusDone || t.Status == TaskStatusFailed || t.Status == TaskStatusCanceled {
			continue
		}
		if best == nil || t.Attempt > best.Attempt {
			best = t
		}
	}
	if best == nil {
		return nil, ErrNotFound
	}
	cp := *best
	return &cp, nil
}

func (m *MemoryStore) AppendEvent(_ context.Context, e *Event) (*Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextEvtID++
	cp := *e
	cp.ID = m.nextEvtID
	if cp.TS.IsZero() {
		cp.TS = time.Now().UTC()
	}
	m.events = append(m.events, &cp)
	out := cp
	return &out, nil
}

func (m *MemoryStore) ListEvents(ctx context.Context, runID string, limit int) ([]*Event, error) {
	return m.ListEventsSince(ctx, runID, 0, limit)
}

func (m *MemoryStore) ListEventsSince(_ context.Context, runID string, afterID int64, limit int) ([]*Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Event
	for _, e := range m.events {
		if e.RunID != runID || e.ID <= afterID {
			continue
		}
		cp := *e
		out = append(out, &cp)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *MemoryStore) CreateApproval(_ context.Context, a *Approval) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.approvals[a.ID] = &cp
	return nil
}

func (m *MemoryStore) GetApproval(_ context.Context, id string) (*Approval, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.approvals[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *MemoryStore) ListApprovals(_ context.Context, runID string) ([]*Approval, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Approval
	for _, a := range m.approvals {
		if a.RunID == runID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MemoryStore) UpdateApprovalStatus(_ context.Context, id, status, decision, decidedBy string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.approvals[id]
	if !ok {
		return ErrNotFound
	}
	if a.Status != ApprovalPending {
		return ErrApprovalTerminal
	}
	a.Status = status
	a.Decision = decision
	a.DecidedBy = &decidedBy
	now := time.Now().UTC()
	a.DecidedAt = &now
	return nil
}

func (m *MemoryStore) ExpirePendingApprovalsForRun(_ context.Context, runID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.approvals {
		if a.RunID == runID && a.Status == ApprovalPending {
			a.Status = ApprovalExpired
		}
	}
	return nil
}

func (m *MemoryStore) ReapOrphanedRunningTasks(_ context.Context, activeRunIDs []string) (int, error) {
	active := make(map[string]bool, len(activeRunIDs))
	for _, id := range activeRunIDs {
		active[id] = true
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	reaped := 0
	for _, t := range m.tasks {
		if t.Status == TaskStatusRunning && !active[t.RunID] {
			t.Status = TaskStatusFailed
			reaped++
		}
	}
	return reaped, nil
}

func (m *MemoryStore) InsertSources(_ context.Context, runID string, sources []*Source) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing := map[string]bool{}
	for _, s := range m.sources[runID] {
		existing[s.URL] = true
	}
	for _, s := range sources {
		if existing[s.URL] {
			continue
		}
		cp := *s
		m.sources[runID] = append(m.sources[runID], &cp)
		existing[s.URL] = true
	}
	return nil
}

func (m *MemoryStore) ListSources(_ context.Context, runID string) ([]*Source, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Source(nil), m.sources[runID]...), nil
}

func (m *MemoryStore) InsertFacts(_ context.Context, runID string, facts []*Fact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range facts {
		cp := *f
		m.facts[runID] = append(m.facts[runID], &cp)
	}
	return nil
}

func (m *MemoryStore) ListFacts(_ context.Context, runID string) ([]*Fact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Fact(nil), m.facts[runID]...), nil
}

func (m *MemoryStore) InsertArtifacts(_ context.Context, runID string, artifacts []*Artifact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing := map[string]bool{}
	for _, a := range m.artifacts[runID] {
		existing[a.ContentURI] = true
	}
	for _, a := range artifacts {
		if existing[a.ContentURI] {
			continue
		}
		cp := *a
		m.artifacts[runID] = append(m.artifacts[runID], &cp)
		existing[a.ContentURI] = true
	}
	return nil
}

func (m *MemoryStore) ListArtifacts(_ context.Context, runID string) ([]*Artifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Artifact(nil), m.artifacts[runID]...), nil
}

func (m *MemoryStore) ListConflicts(_ context.Context, runID string) ([]*Conflict, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Conflict
	for _, c := range m.conflicts {
		if c.RunID == runID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MemoryStore) CreateConflict(_ context.Context, c *Conflict) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	cp.Open = true
	m.conflicts[c.ID] = &cp
	return nil
}

func (m *MemoryStore) ResolveConflict(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.conflicts[id]
	if !ok {
		return ErrNotFound
	}
	c.Open = false
	return nil
}

func (m *MemoryStore) CreateUserMemory(_ context.Context, title, content string, tags []string, source string, meta MemoryMeta) (*UserMemory, error) {
	if len(content) > maxUserMemoryContentChars {
		return nil, ErrContentTooLong
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	um := &UserMemory{
		ID:        uuid.NewString(),
		Title:     title,
		Content:   content,
		Tags:      tags,
		Source:    source,
		Meta:      meta,
		CreatedAt: time.Now().UTC(),
	}
	m.memories[um.ID] = um
	cp := *um
	return &cp, nil
}

func (m *MemoryStore) ListUserMemories(_ context.Context, limit int) ([]*UserMemory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*UserMemory
	for _, um := range m.memories {
		if um.IsDeleted {
			continue
		}
		cp := *um
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) SearchUserMemories(ctx context.Context, query string, limit int) ([]*UserMemory, error) {
	all, err := m.ListUserMemories(ctx, 0)
	if err != nil {
		return nil, err
	}
	var out []*UserMemory
	for _, um := range all {
		if containsFold(um.Content, query) || containsFold(um.Title, query) {
			out = append(out, um)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) DeleteUserMemory(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	um, ok := m.memories[id]
	if !ok {
		return ErrNotFound
	}
	um.IsDeleted = true
	return nil
}

func (m *MemoryStore) GetSessionTokenHash(_ context.Context) (*SessionTokenHash, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tokenHash == nil {
		return nil, ErrNotFound
	}
	cp := *m.tokenHash
	return &cp, nil
}

func (m *MemoryStore) SetSessionTokenHash(_ context.Context, hash SessionTokenHash) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := hash
	m.tokenHash = &cp
	return nil
}

func containsFold(haystack, needle string) bool {
	if needle == "" {
		return true
	}
	hl, nl := []rune(haystack), []rune(needle)
	toLower := func(rs []rune) []rune {
		out := make([]rune, len(rs))
		for i, r := range rs {
			if r >= 'A' && r <= 'Z' {
				r += 'a' - 'A'
			}
			out[i] = r
		}
		return out
	}
	hl, nl = toLower(hl), toLower(nl)
	if len(nl) > len(hl) {
		return false
	}
	for i := 0; i+len(nl) <= len(hl); i++ {
		match := true
		for j := range nl {
			if hl[i+j] != nl[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

var _ Store = (*MemoryStore)(nil)
