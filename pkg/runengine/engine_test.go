package runengine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/astra-ai/kernel/pkg/config"
	"github.com/astra-ai/kernel/pkg/events"
	"github.com/astra-ai/kernel/pkg/intent"
	"github.com/astra-ai/kernel/pkg/planner"
	"github.com/astra-ai/kernel/pkg/store"
	"github.com/stretchr/testify/require"
)

// fakeDispatcher lets each test script an outcome per (step kind, call
// number) so the scheduling loop's retry/failure handling can be exercised
// without a real skill.
type fakeDispatcher struct {
	mu      sync.Mutex
	calls   map[string]int
	outcome func(callNum int, step *store.PlanStep) Outcome
}

func newFakeDispatcher(f func(callNum int, step *store.PlanStep) Outcome) *fakeDispatcher {
	return &fakeDispatcher{calls: map[string]int{}, outcome: f}
}

func (d *fakeDispatcher) Dispatch(_ context.Context, _ *store.Run, step *store.PlanStep, _ *store.Task) Outcome {
	d.mu.Lock()
	d.calls[step.ID]++
	n := d.calls[step.ID]
	d.mu.Unlock()
	return d.outcome(n, step)
}

func testConfig() config.RunEngineConfig {
	return config.RunEngineConfig{StepRetryBudget: 2, SchedulerPollMS: 5, ApprovalPollMS: 5}
}

func setupRun(t *testing.T, s store.Store, mode string) *store.Run {
	t.Helper()
	run := &store.Run{ID: "run-1", ProjectID: "proj-1", QueryText: "organize my downloads folder", Mode: mode, Purpose: "act", Status: store.RunStatusCreated}
	require.NoError(t, s.CreateRun(context.Background(), run))
	return run
}

func TestEngine_CreatePlanThenStartRun_CompletesToDone(t *testing.T) {
	s := store.NewMemoryStore()
	bus := events.NewBus(s)
	pl := planner.NewPlanner()
	run := setupRun(t, s, store.ModeExecuteConfirm)

	dispatcher := newFakeDispatcher(func(int, *store.PlanStep) Outcome {
		return Outcome{Status: store.TaskStatusDone}
	})
	e := NewEngine(s, bus, pl, dispatcher, testConfig())

	decision := &intent.Decision{Intent: intent.IntentAct, ActHint: &intent.ActHint{Target: "organize downloads"}}
	steps, err := e.CreatePlan(context.Background(), run, run.QueryText, decision)
	require.NoError(t, err)
	require.Len(t, steps, 1)

	got, err := s.GetRun(context.Background(), run.ID)
	require.NoError(t, err)
	require.Equal(t, store.RunStatusPlanning, got.Status)

	require.NoError(t, e.StartRun(context.Background(), run.ID))

	require.Eventually(t, func() bool {
		r, err := s.GetRun(context.Background(), run.ID)
		return err == nil && r.Status == store.RunStatusDone
	}, 2*time.Second, 10*time.Millisecond, "run did not reach done")

	tasks, err := s.ListTasks(context.Background(), run.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	require.Equal(t, store.TaskStatusDone, tasks[0].Status)
}

func TestEngine_TransientFailureRetriesWithinBudget(t *testing.T) {
	s := store.NewMemoryStore()
	bus := events.NewBus(s)
	pl := planner.NewPlanner()
	run := setupRun(t, s, store.ModeExecuteConfirm)

	dispatcher := newFakeDispatcher(func(n int, _ *store.PlanStep) Outcome {
		if n < 3 {
			return Outcome{Status: store.TaskStatusFailed, ErrorClass: ErrorClassTransient}
		}
		return Outcome{Status: store.TaskStatusDone}
	})
	e := NewEngine(s, bus, pl, dispatcher, testConfig())

	decision := &intent.Decision{Intent: intent.IntentAct, ActHint: &intent.ActHint{Target: "do the thing"}}
	_, err := e.CreatePlan(context.Background(), run, run.QueryText, decision)
	require.NoError(t, err)
	require.NoError(t, e.StartRun(context.Background(), run.ID))

	require.Eventually(t, func() bool {
		r, err := s.GetRun(context.Background(), run.ID)
		return err == nil && r.Status == store.RunStatusDone
	}, 2*time.Second, 10*time.Millisecond, "run did not recover via retry")

	tasks, err := s.ListTasks(context.Background(), run.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 3, "expected 2 failed attempts plus 1 successful attempt")
}

func TestEngine_TransientFailureExceedingBudgetFailsStepAndRun(t *testing.T) {
	s := store.NewMemoryStore()
	bus := events.NewBus(s)
	pl := planner.NewPlanner()
	run := setupRun(t, s, store.ModeExecuteConfirm)

	dispatcher := newFakeDispatcher(func(int, *store.PlanStep) Outcome {
		return Outcome{Status: store.TaskStatusFailed, ErrorClass: ErrorClassTransient}
	})
	cfg := testConfig()
	cfg.StepRetryBudget = 1
	e := NewEngine(s, bus, pl, dispatcher, cfg)

	decision := &intent.Decision{Intent: intent.IntentAct, ActHint: &intent.ActHint{Target: "do the thing"}}
	_, err := e.CreatePlan(context.Background(), run, run.QueryText, decision)
	require.NoError(t, err)
	require.NoError(t, e.StartRun(context.Background(), run.ID))

	require.Eventually(t, func() bool {
		r, err := s.GetRun(context.Background(), run.ID)
		return err == nil && r.Status == store.RunStatusFailed
	}, 2*time.Second, 10*time.Millisecond, "run did not fail after exhausting retry budget")

	tasks, err := s.ListTasks(context.Background(), run.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 2, "1 initial attempt + 1 retry, budget=1")
}

func TestEngine_PolicyErrorFailsImmediatelyWithoutRetry(t *testing.T) {
	s := store.NewMemoryStore()
	bus := events.NewBus(s)
	pl := planner.NewPlanner()
	run := setupRun(t, s, store.ModeExecuteConfirm)

	dispatcher := newFakeDispatcher(func(int, *store.PlanStep) Outcome {
		return Outcome{Status: store.TaskStatusFailed, ErrorClass: ErrorClassApprovalRejected}
	})
	e := NewEngine(s, bus, pl, dispatcher, testConfig())

	decision := &intent.Decision{Intent: intent.IntentAct, ActHint: &intent.ActHint{Target: "do the thing"}}
	_, err := e.CreatePlan(context.Background(), run, run.QueryText, decision)
	require.NoError(t, err)
	require.NoError(t, e.StartRun(context.Background(), run.ID))

	require.Eventually(t, func() bool {
		r, err := s.GetRun(context.Background(), run.ID)
		return err == nil && r.Status == store.RunStatusFailed
	}, 2*time.Second, 10*time.Millisecond, "run did not fail on approval rejection")

	tasks, err := s.ListTasks(context.Background(), run.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 1, "approval_rejected must not retry")
}

func TestEngine_CancelRunExpiresPendingApprovalsAndStopsWorker(t *testing.T) {
	s := store.NewMemoryStore()
	bus := events.NewBus(s)
	pl := planner.NewPlanner()
	run := setupRun(t, s, store.ModeExecuteConfirm)

	blockCh := make(chan struct{})
	dispatcher := newFakeDispatcher(func(int, *store.PlanStep) Outcome {
		<-blockCh
		return Outcome{Status: store.TaskStatusCanceled}
	})
	e := NewEngine(s, bus, pl, dispatcher, testConfig())

	decision := &intent.Decision{Intent: intent.IntentAct, ActHint: &intent.ActHint{Target: "do the thing"}}
	_, err := e.CreatePlan(context.Background(), run, run.QueryText, decision)
	require.NoError(t, err)
	require.NoError(t, e.StartRun(context.Background(), run.ID))

	require.NoError(t, s.CreateApproval(context.Background(), &store.Approval{
		ID: "appr-1", RunID: run.ID, TaskID: "task-x", Status: store.ApprovalPending,
	}))

	require.NoError(t, e.CancelRun(context.Background(), run.ID))
	close(blockCh)

	r, err := s.GetRun(context.Background(), run.ID)
	require.NoError(t, err)
	require.Equal(t, store.RunStatusCanceled, r.Status)

	appr, err := s.GetApproval(context.Background(), "appr-1")
	require.NoError(t, err)
	require.Equal(t, store.ApprovalExpired, appr.Status)
}

func TestEngine_PauseRunThenResumeRunContinuesScheduling(t *testing.T) {
	s := store.NewMemoryStore()
	bus := events.NewBus(s)
	pl := planner.NewPlanner()
	run := setupRun(t, s, store.ModeExecuteConfirm)

	var dispatchCount int
	var mu sync.Mutex
	dispatcher := newFakeDispatcher(func(int, *store.PlanStep) Outcome {
		mu.Lock()
		dispatchCount++
		mu.Unlock()
		return Outcome{Status: store.TaskStatusDone}
	})
	e := NewEngine(s, bus, pl, dispatcher, testConfig())

	decision := &intent.Decision{Intent: intent.IntentAct, PlanHint: []string{"открой браузер", "организуй файлы"}}
	_, err := e.CreatePlan(context.Background(), run, run.QueryText, decision)
	require.NoError(t, err)
	require.NoError(t, e.StartRun(context.Background(), run.ID))

	require.NoError(t, e.PauseRun(context.Background(), run.ID))
	r, err := s.GetRun(context.Background(), run.ID)
	require.NoError(t, err)
	require.Equal(t, store.RunStatusPaused, r.Status)

	require.NoError(t, e.ResumeRun(context.Background(), run.ID))

	require.Eventually(t, func() bool {
		r, err := s.GetRun(context.Background(), run.ID)
		return err == nil && r.Status == store.RunStatusDone
	}, 2*time.Second, 10*time.Millisecond, "run did not finish after resume")
}

func TestEngine_RetryStepRestartsAFailedTerminalRun(t *testing.T) {
	s := store.NewMemoryStore()
	bus := events.NewBus(s)
	pl := planner.NewPlanner()
	run := setupRun(t, s, store.ModeExecuteConfirm)

	var shouldSucceed bool
	var mu sync.Mutex
	dispatcher := newFakeDispatcher(func(int, *store.PlanStep) Outcome {
		mu.Lock()
		ok := shouldSucceed
		mu.Unlock()
		if ok {
			return Outcome{Status: store.TaskStatusDone}
		}
		return Outcome{Status: store.TaskStatusFailed, ErrorClass: ErrorClassPolicy}
	})
	cfg := testConfig()
	e := NewEngine(s, bus, pl, dispatcher, cfg)

	decision := &intent.Decision{Intent: intent.IntentAct, ActHint: &intent.ActHint{Target: "do the thing"}}
	steps, err := e.CreatePlan(context.Background(), run, run.QueryText, decision)
	require.NoError(t, err)
	require.NoError(t, e.StartRun(context.Background(), run.ID))

	require.Eventually(t, func() bool {
		r, err := s.GetRun(context.Background(), run.ID)
		return err == nil && r.Status == store.RunStatusFailed
	}, 2*time.Second, 10*time.Millisecond, "run did not fail on policy error")

	mu.Lock()
	shouldSucceed = true
	mu.Unlock()

	require.NoError(t, e.RetryStep(context.Background(), run.ID, steps[0].ID))

	require.Eventually(t, func() bool {
		r, err := s.GetRun(context.Background(), run.ID)
		return err == nil && r.Status == store.RunStatusDone
	}, 2*time.Second, 10*time.Millisecond, "run did not recover after retry_step")

	tasks, err := s.ListTasks(context.Background(), run.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 2, "1 failed attempt + 1 successful retry attempt")
}
