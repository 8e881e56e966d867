package store

import "context"

// Store is the persistence port every kernel component consults (spec.md
// §4.2). All writes are transactional at row granularity; callers must not
// assume cross-row transactions. Listing operations return snapshots taken
// at call time.
type Store interface {
	// Projects
	CreateProject(ctx context.Context, p *Project) error
	GetProject(ctx context.Context, id string) (*Project, error)

	// Runs
	CreateRun(ctx context.Context, r *Run) error
	GetRun(ctx context.Context, id string) (*Run, error)
	UpdateRunStatus(ctx context.Context, id, status string) error
	UpdateRunMetaAndMode(ctx context.Context, id string, meta map[string]any, mode, purpose string) error
	// ListActiveRuns returns the IDs of every run in a non-terminal status
	// (running, waiting_approval, or paused) — the sweeper's candidate set
	// for approval-expiry and orphaned-task checks.
	ListActiveRuns(ctx context.Context) ([]string, error)

	// Plan steps
	CreatePlanSteps(ctx context.Context, steps []*PlanStep) error
	ListPlanSteps(ctx context.Context, runID string) ([]*PlanStep, error)
	UpdatePlanStepStatus(ctx context.Context, id, status string) error

	// Tasks
	CreateTask(ctx context.Context, t *Task) error
	GetTask(ctx context.Context, id string) (*Task, error)
	ListTasks(ctx context.Context, runID string) ([]*Task, error)
	UpdateTaskStatus(ctx context.Context, id, status string) error
	// ActiveTaskForStep returns the non-terminal task for (runID, stepID), if any.
	ActiveTaskForStep(ctx context.Context, runID, stepID string) (*Task, error)

	// Events
	AppendEvent(ctx context.Context, e *Event) (*Event, error)
	ListEvents(ctx context.Context, runID string, limit int) ([]*Event, error)
	// ListEventsSince returns events with ID > afterID, in append order,
	// bounded by limit — used for bounded replay to late SSE subscribers.
	ListEventsSince(ctx context.Context, runID string, afterID int64, limit int) ([]*Event, error)

	// Approvals
	CreateApproval(ctx context.Context, a *Approval) error
	GetApproval(ctx context.Context, id string) (*Approval, error)
	ListApprovals(ctx context.Context, runID string) ([]*Approval, error)
	// UpdateApprovalStatus is a no-op if the approval is already terminal.
	UpdateApprovalStatus(ctx context.Context, id, status, decision, decidedBy string) error
	ExpirePendingApprovalsForRun(ctx context.Context, runID string) error
	// ReapOrphanedRunningTasks marks every task still "running" whose run is
	// not in activeRunIDs as failed, and returns how many it reaped. A task
	// is orphaned when the Run Engine worker that owned it is gone — most
	// commonly after astrad restarts mid-run — so it will otherwise sit
	// "running" forever with nothing left to drive it to a terminal status.
	ReapOrphanedRunningTasks(ctx context.Context, activeRunIDs []string) (int, error)

	// Derived run records
	InsertSources(ctx context.Context, runID string, sources []*Source) error
	ListSources(ctx context.Context, runID string) ([]*Source, error)
	InsertFacts(ctx context.Context, runID string, facts []*Fact) error
	ListFacts(ctx context.Context, runID string) ([]*Fact, error)
	InsertArtifacts(ctx context.Context, runID string, artifacts []*Artifact) error
	ListArtifacts(ctx context.Context, runID string) ([]*Artifact, error)
	ListConflicts(ctx context.Context, runID string) ([]*Conflict, error)
	CreateConflict(ctx context.Context, c *Conflict) error
	ResolveConflict(ctx context.Context, id string) error

	// User memories
	CreateUserMemory(ctx context.Context, title, content string, tags []string, source string, meta MemoryMeta) (*UserMemory, error)
	ListUserMemories(ctx context.Context, limit int) ([]*UserMemory, error)
	SearchUserMemories(ctx context.Context, query string, limit int) ([]*UserMemory, error)
	DeleteUserMemory(ctx context.Context, id string) error

	// Auth bootstrap
	GetSessionTokenHash(ctx context.Context) (*SessionTokenHash, error)
	SetSessionTokenHash(ctx context.Context, hash SessionTokenHash) error
}
