package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// newTestStore spins up a throwaway PostgreSQL container, applies
// migrations, and returns a connected PostgresStore. Defined inline to avoid
// an import cycle with test/database, which itself depends on this package.
func newTestStore(t *testing.T) *PostgresStore {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(pgContainer); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, Migrate(connStr))

	s, err := NewPostgresStore(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(s.Close)

	return s
}

func TestPostgresStore_RunLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	proj := &Project{ID: "proj-1", Name: "demo", CreatedAt: time.Now().UTC()}
	require.NoError(t, s.CreateProject(ctx, proj))

	run := &Run{
		ID:        "run-1",
		ProjectID: proj.ID,
		QueryText: "what's the weather",
		Mode:      ModePlanOnly,
		Status:    RunStatusCreated,
		Meta:      map[string]any{},
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, s.CreateRun(ctx, run))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	require.Equal(t, RunStatusCreated, got.Status)

	require.NoError(t, s.UpdateRunStatus(ctx, run.ID, RunStatusRunning))
	got, err = s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	require.Equal(t, RunStatusRunning, got.Status)

	_, err = s.GetRun(ctx, "does-not-exist")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresStore_EventsAppendOrderAndReplay(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateProject(ctx, &Project{ID: "proj-1", Name: "demo", CreatedAt: time.Now().UTC()}))
	require.NoError(t, s.CreateRun(ctx, &Run{
		ID: "run-1", ProjectID: "proj-1", QueryText: "q", Mode: ModePlanOnly,
		Status: RunStatusCreated, Meta: map[string]any{}, CreatedAt: time.Now().UTC(),
	}))

	var lastID int64
	for i := 0; i < 5; i++ {
		e, err := s.AppendEvent(ctx, &Event{
			RunID:   "run-1",
			Type:    "run_created",
			Message: "tick",
			Payload: map[string]any{"i": i},
			Level:   LevelInfo,
		})
		require.NoError(t, err)
		require.Greater(t, e.ID, lastID)
		lastID = e.ID
	}

	all, err := s.ListEvents(ctx, "run-1", 100)
	require.NoError(t, err)
	require.Len(t, all, 5)
	for i := 1; i < len(all); i++ {
		require.Less(t, all[i-1].ID, all[i].ID)
	}

	since, err := s.ListEventsSince(ctx, "run-1", all[2].ID, 100)
	require.NoError(t, err)
	require.Len(t, since, 2)
}

func TestPostgresStore_ApprovalDecisionIsTerminalOnce(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateProject(ctx, &Project{ID: "proj-1", Name: "demo", CreatedAt: time.Now().UTC()}))
	require.NoError(t, s.CreateRun(ctx, &Run{
		ID: "run-1", ProjectID: "proj-1", QueryText: "q", Mode: ModeExecuteConfirm,
		Status: RunStatusRunning, Meta: map[string]any{}, CreatedAt: time.Now().UTC(),
	}))
	require.NoError(t, s.CreatePlanSteps(ctx, []*PlanStep{{
		ID: "step-1", RunID: "run-1", StepIndex: 0, Kind: StepKindComputerActions,
		SkillName: "computer", Inputs: map[string]any{}, Status: StepStatusRunning,
	}}))
	require.NoError(t, s.CreateTask(ctx, &Task{ID: "task-1", RunID: "run-1", StepID: "step-1", Attempt: 1, Status: TaskStatusWaitingApproval}))
	require.NoError(t, s.CreateApproval(ctx, &Approval{
		ID: "appr-1", RunID: "run-1", TaskID: "task-1", Scope: "computer_actions",
		Title: "click submit", ProposedActions: []map[string]any{{"type": "click"}}, Status: ApprovalPending,
	}))

	require.NoError(t, s.UpdateApprovalStatus(ctx, "appr-1", ApprovalApproved, "approved", "user"))

	err := s.UpdateApprovalStatus(ctx, "appr-1", ApprovalRejected, "rejected", "user")
	require.ErrorIs(t, err, ErrApprovalTerminal)

	got, err := s.GetApproval(ctx, "appr-1")
	require.NoError(t, err)
	require.Equal(t, ApprovalApproved, got.Status)
}
