package runengine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/astra-ai/kernel/pkg/config"
	"github.com/astra-ai/kernel/pkg/events"
	"github.com/astra-ai/kernel/pkg/intent"
	"github.com/astra-ai/kernel/pkg/planner"
	"github.com/astra-ai/kernel/pkg/store"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// Engine drives every run's PlanStep DAG concurrently: each run owns exactly
// one background worker goroutine (spec.md §5: "each run is driven by one
// worker started by start_run"), while engine operations themselves
// (cancel/pause/resume/retry) are safe to call concurrently from any
// goroutine, including from within HTTP handlers.
type Engine struct {
	store      store.Store
	bus        *events.Bus
	planner    *planner.Planner
	dispatcher Dispatcher
	cfg        config.RunEngineConfig

	mu   sync.Mutex
	runs map[string]*runState
	wg   sync.WaitGroup

	sweeper *cron.Cron
}

// runState is the live bookkeeping for one run's background worker.
type runState struct {
	cancel context.CancelFunc

	mu     sync.Mutex
	paused bool
}

// NewEngine constructs an Engine. dispatcher is typically pkg/skill's
// Registry, which maps a PlanStep's SkillName to a concrete skill.
func NewEngine(s store.Store, bus *events.Bus, pl *planner.Planner, dispatcher Dispatcher, cfg config.RunEngineConfig) *Engine {
	e := &Engine{
		store:      s,
		bus:        bus,
		planner:    pl,
		dispatcher: dispatcher,
		cfg:        cfg,
		runs:       make(map[string]*runState),
	}
	e.sweeper = e.startSweeper(sweepConfig{SweepIntervalSec: cfg.SweepIntervalSec})
	return e
}

// CreatePlan builds the PlanStep DAG for an ACT run and persists it,
// transitioning the run created→planning.
func (e *Engine) CreatePlan(ctx context.Context, run *store.Run, queryText string, decision *intent.Decision) ([]*store.PlanStep, error) {
	steps := e.planner.BuildPlan(run.ID, queryText, decision)
	if err := e.store.CreatePlanSteps(ctx, steps); err != nil {
		return nil, fmt.Errorf("create plan steps: %w", err)
	}
	if err := e.store.UpdateRunStatus(ctx, run.ID, store.RunStatusPlanning); err != nil {
		return nil, fmt.Errorf("mark run planning: %w", err)
	}
	return steps, nil
}

// StartRun transitions a planned run to running and starts its background
// worker. It is an error to start a run that isn't in planning/created
// status, or one that already has a live worker.
func (e *Engine) StartRun(ctx context.Context, runID string) error {
	run, err := e.store.GetRun(ctx, runID)
	if err != nil {
		return fmt.Errorf("start_run: %w", err)
	}
	if run.Status != store.RunStatusPlanning && run.Status != store.RunStatusCreated {
		return fmt.Errorf("start_run: run %s has status %q, want planning or created", runID, run.Status)
	}
	if err := e.store.UpdateRunStatus(ctx, runID, store.RunStatusRunning); err != nil {
		return fmt.Errorf("start_run: %w", err)
	}
	return e.spawnWorker(runID)
}

// CancelRun flips the run to canceled, expires its pending approvals, and
// cancels the worker's context so every blocking loop inside the currently
// dispatched skill observes it and exits at its next safe point.
func (e *Engine) CancelRun(ctx context.Context, runID string) error {
	if err := e.store.UpdateRunStatus(ctx, runID, store.RunStatusCanceled); err != nil {
		return fmt.Errorf("cancel_run: %w", err)
	}
	if err := e.store.ExpirePendingApprovalsForRun(ctx, runID); err != nil {
		slog.Warn("runengine: expiring pending approvals failed", "run_id", runID, "error", err)
	}
	e.mu.Lock()
	st := e.runs[runID]
	e.mu.Unlock()
	if st != nil {
		st.cancel()
	}
	return nil
}

// PauseRun toggles a running (or waiting-on-approval) run to paused without
// disturbing any in-flight task; the worker simply stops scheduling new
// ready steps until ResumeRun is called.
func (e *Engine) PauseRun(ctx context.Context, runID string) error {
	run, err := e.store.GetRun(ctx, runID)
	if err != nil {
		return fmt.Errorf("pause_run: %w", err)
	}
	if run.Status != store.RunStatusRunning && run.Status != store.RunStatusWaitingApproval {
		return fmt.Errorf("pause_run: run %s has status %q, want running or waiting_approval", runID, run.Status)
	}
	if err := e.store.UpdateRunStatus(ctx, runID, store.RunStatusPaused); err != nil {
		return fmt.Errorf("pause_run: %w", err)
	}
	e.mu.Lock()
	st := e.runs[runID]
	e.mu.Unlock()
	if st != nil {
		st.mu.Lock()
		st.paused = true
		st.mu.Unlock()
	}
	return nil
}

// ResumeRun toggles a paused run back to running. If the worker is still
// alive (the common case — pausing never stops it), it simply clears the
// paused flag; otherwise (the process restarted, or the worker exited for
// some other reason) it respawns one.
func (e *Engine) ResumeRun(ctx context.Context, runID string) error {
	run, err := e.store.GetRun(ctx, runID)
	if err != nil {
		return fmt.Errorf("resume_run: %w", err)
	}
	if run.Status != store.RunStatusPaused {
		return fmt.Errorf("resume_run: run %s has status %q, want paused", runID, run.Status)
	}
	if err := e.store.UpdateRunStatus(ctx, runID, store.RunStatusRunning); err != nil {
		return fmt.Errorf("resume_run: %w", err)
	}
	e.mu.Lock()
	st := e.runs[runID]
	e.mu.Unlock()
	if st == nil {
		return e.spawnWorker(runID)
	}
	st.mu.Lock()
	st.paused = false
	st.mu.Unlock()
	return nil
}

// RetryTask creates a new attempt for a task that ended failed or canceled:
// it resets the owning step to created so the scheduler picks it up again
// with an incremented attempt number, then makes sure a worker is running.
func (e *Engine) RetryTask(ctx context.Context, runID, taskID string) error {
	task, err := e.store.GetTask(ctx, taskID)
	if err != nil {
		return fmt.Errorf("retry_task: %w", err)
	}
	if task.Status != store.TaskStatusFailed && task.Status != store.TaskStatusCanceled {
		return fmt.Errorf("retry_task: task %s has status %q, want a terminal failed/canceled state", taskID, task.Status)
	}
	return e.retryStepByID(ctx, runID, task.StepID)
}

// RetryStep resets a failed step directly, without needing a specific
// task ID — the same effect RetryTask has once it resolves the step.
func (e *Engine) RetryStep(ctx context.Context, runID, stepID string) error {
	return e.retryStepByID(ctx, runID, stepID)
}

func (e *Engine) retryStepByID(ctx context.Context, runID, stepID string) error {
	steps, err := e.store.ListPlanSteps(ctx, runID)
	if err != nil {
		return fmt.Errorf("retry: %w", err)
	}
	var step *store.PlanStep
	for _, s := range steps {
		if s.ID == stepID {
			step = s
			break
		}
	}
	if step == nil {
		return fmt.Errorf("retry: step %s not found in run %s", stepID, runID)
	}
	if step.Status != store.StepStatusFailed {
		return fmt.Errorf("retry: step %s has status %q, want failed", stepID, step.Status)
	}
	if err := e.store.UpdatePlanStepStatus(ctx, stepID, store.StepStatusCreated); err != nil {
		return fmt.Errorf("retry: %w", err)
	}
	return e.ensureRunning(ctx, runID)
}

// ensureRunning makes sure runID has a live worker, restarting one (and
// flipping the run back to running) if its previous worker already exited
// — e.g. because the plan had gone fully terminal before the retry.
func (e *Engine) ensureRunning(ctx context.Context, runID string) error {
	e.mu.Lock()
	_, active := e.runs[runID]
	e.mu.Unlock()
	if active {
		return nil
	}

	run, err := e.store.GetRun(ctx, runID)
	if err != nil {
		return fmt.Errorf("ensure_running: %w", err)
	}
	if run.Status == store.RunStatusCanceled || run.Status == store.RunStatusPaused {
		return fmt.Errorf("ensure_running: run %s has status %q, cannot resume scheduling", runID, run.Status)
	}
	if run.Status != store.RunStatusRunning {
		if err := e.store.UpdateRunStatus(ctx, runID, store.RunStatusRunning); err != nil {
			return fmt.Errorf("ensure_running: %w", err)
		}
	}
	return e.spawnWorker(runID)
}

func (e *Engine) spawnWorker(runID string) error {
	runCtx, cancel := context.WithCancel(context.Background())
	st := &runState{cancel: cancel}

	e.mu.Lock()
	if _, exists := e.runs[runID]; exists {
		e.mu.Unlock()
		cancel()
		return fmt.Errorf("run %s already has an active worker", runID)
	}
	e.runs[runID] = st
	e.mu.Unlock()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.runLoop(runCtx, runID, st)
		e.mu.Lock()
		delete(e.runs, runID)
		e.mu.Unlock()
	}()
	return nil
}

// Shutdown cancels every live worker and waits for them to return — used
// for graceful process shutdown.
func (e *Engine) Shutdown() {
	if e.sweeper != nil {
		e.sweeper.Stop()
	}
	e.mu.Lock()
	for _, st := range e.runs {
		st.cancel()
	}
	e.mu.Unlock()
	e.wg.Wait()
}

func (e *Engine) pollInterval() time.Duration {
	ms := e.cfg.SchedulerPollMS
	if ms <= 0 {
		ms = 200
	}
	return time.Duration(ms) * time.Millisecond
}

// runLoop is one run's scheduling loop: rescan the ready set, dispatch each
// ready step's task sequentially (spec.md §5: "skills within a run execute
// steps sequentially along the dependency DAG"), and finalize the run once
// every step has reached a terminal status.
func (e *Engine) runLoop(ctx context.Context, runID string, st *runState) {
	for {
		if ctx.Err() != nil {
			return
		}

		st.mu.Lock()
		paused := st.paused
		st.mu.Unlock()
		if paused {
			if !e.sleep(ctx, e.pollInterval()) {
				return
			}
			continue
		}

		steps, err := e.store.ListPlanSteps(ctx, runID)
		if err != nil {
			slog.Error("runengine: list plan steps failed", "run_id", runID, "error", err)
			if !e.sleep(ctx, e.pollInterval()) {
				return
			}
			continue
		}

		ready := readySteps(steps)
		if len(ready) == 0 {
			if planTerminal(steps) {
				e.finalizeRun(runID, steps)
				return
			}
			if !e.sleep(ctx, e.pollInterval()) {
				return
			}
			continue
		}

		for _, step := range ready {
			if ctx.Err() != nil {
				return
			}
			e.runStep(ctx, runID, step)
		}
	}
}

// sleep waits for d or returns false immediately if ctx is done first.
func (e *Engine) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

func (e *Engine) finalizeRun(runID string, steps []*store.PlanStep) {
	// Background context: the worker's own ctx may already be canceled by
	// the time the plan goes terminal (e.g. a racing cancel_run).
	ctx := context.Background()
	status := store.RunStatusDone
	if planFailed(steps) {
		status = store.RunStatusFailed
	}
	if err := e.store.UpdateRunStatus(ctx, runID, status); err != nil {
		slog.Error("runengine: finalize run status update failed", "run_id", runID, "error", err)
		return
	}
	if status == store.RunStatusFailed {
		if _, err := e.bus.Emit(ctx, runID, events.TypeRunFailed, "run finished with at least one failed step", nil, store.LevelError, nil, nil); err != nil {
			slog.Error("runengine: emit run_failed failed", "run_id", runID, "error", err)
		}
	}
}

// runStep creates and dispatches one task for step, then applies the
// per-step error policy to its outcome.
func (e *Engine) runStep(ctx context.Context, runID string, step *store.PlanStep) {
	// All store writes around dispatch use a background context so a
	// canceled run's worker can still record the terminal outcome of the
	// task it was already running.
	writeCtx := context.Background()

	run, err := e.store.GetRun(writeCtx, runID)
	if err != nil {
		slog.Error("runengine: get run failed", "run_id", runID, "error", err)
		return
	}

	attempt, err := e.nextAttempt(writeCtx, runID, step.ID)
	if err != nil {
		slog.Error("runengine: compute next attempt failed", "run_id", runID, "step_id", step.ID, "error", err)
		return
	}

	task := &store.Task{
		ID:      uuid.NewString(),
		RunID:   runID,
		StepID:  step.ID,
		Attempt: attempt,
		Status:  store.TaskStatusCreated,
	}
	if err := e.store.CreateTask(writeCtx, task); err != nil {
		slog.Error("runengine: create task failed", "run_id", runID, "step_id", step.ID, "error", err)
		return
	}
	if err := e.store.UpdatePlanStepStatus(writeCtx, step.ID, store.StepStatusRunning); err != nil {
		slog.Error("runengine: mark step running failed", "run_id", runID, "step_id", step.ID, "error", err)
	}
	if err := e.store.UpdateTaskStatus(writeCtx, task.ID, store.TaskStatusRunning); err != nil {
		slog.Error("runengine: mark task running failed", "run_id", runID, "task_id", task.ID, "error", err)
	}

	taskID, stepID := task.ID, step.ID
	e.emit(writeCtx, runID, events.TypeStepExecutionStarted,
		fmt.Sprintf("step %s (%s) started, attempt %d", step.Kind, step.SkillName, attempt),
		map[string]any{"kind": step.Kind, "skill": step.SkillName, "attempt": attempt},
		store.LevelInfo, &taskID, &stepID)

	ctx, endSpan := startStepSpan(ctx, step)
	outcome := e.dispatcher.Dispatch(ctx, run, step, task)
	endSpan(outcome)
	e.applyOutcome(writeCtx, runID, step, task, attempt, outcome)
}

func (e *Engine) applyOutcome(ctx context.Context, runID string, step *store.PlanStep, task *store.Task, attempt int, outcome Outcome) {
	taskID, stepID := task.ID, step.ID

	switch outcome.Status {
	case store.TaskStatusDone:
		e.mustUpdateTask(ctx, task.ID, store.TaskStatusDone)
		e.mustUpdateStep(ctx, step.ID, store.StepStatusDone)
		e.emit(ctx, runID, events.TypeStepExecutionFinished, fmt.Sprintf("step %s done", step.Kind),
			map[string]any{"status": "done", "attempt": attempt}, store.LevelInfo, &taskID, &stepID)

	case store.TaskStatusCanceled:
		e.mustUpdateTask(ctx, task.ID, store.TaskStatusCanceled)
		e.mustUpdateStep(ctx, step.ID, store.StepStatusSkipped)
		e.emit(ctx, runID, events.TypeStepCancelledByUser, fmt.Sprintf("step %s canceled", step.Kind),
			map[string]any{"attempt": attempt}, store.LevelWarning, &taskID, &stepID)

	case store.TaskStatusFailed:
		e.applyFailure(ctx, runID, step, task, attempt, outcome)

	default:
		// Dispatcher returned something other than a terminal status — treat
		// as a policy failure rather than leaving the task/step stuck.
		slog.Error("runengine: dispatcher returned non-terminal status", "run_id", runID, "step_id", step.ID, "status", outcome.Status)
		e.applyFailure(ctx, runID, step, task, attempt, Outcome{Status: store.TaskStatusFailed, ErrorClass: ErrorClassPolicy, Err: outcome.Err})
	}
}

// applyFailure implements spec.md §4.10's per-step error policy: transient
// errors retry up to the step's retry budget; policy errors, budget_exceeded,
// and approval_rejected fail the step immediately.
func (e *Engine) applyFailure(ctx context.Context, runID string, step *store.PlanStep, task *store.Task, attempt int, outcome Outcome) {
	taskID, stepID := task.ID, step.ID
	e.mustUpdateTask(ctx, task.ID, store.TaskStatusFailed)

	reason := classReason(outcome)
	if outcome.ErrorClass == ErrorClassTransient && attempt <= e.retryBudget() {
		e.mustUpdateStep(ctx, step.ID, store.StepStatusCreated)
		e.emit(ctx, runID, events.TypeStepRetrying, fmt.Sprintf("step %s retrying after attempt %d", step.Kind, attempt),
			map[string]any{"attempt": attempt, "reason": reason}, store.LevelWarning, &taskID, &stepID)
		return
	}

	e.mustUpdateStep(ctx, step.ID, store.StepStatusFailed)
	typ := events.TypeStepExecutionFinished
	if outcome.ErrorClass == ErrorClassApprovalRejected {
		typ = events.TypeApprovalRejected
	}
	e.emit(ctx, runID, typ, fmt.Sprintf("step %s failed: %s", step.Kind, reason),
		map[string]any{"status": "failed", "attempt": attempt, "reason": reason}, store.LevelError, &taskID, &stepID)
}

func classReason(outcome Outcome) string {
	class := outcome.ErrorClass
	if class == "" {
		class = ErrorClassPolicy
	}
	if outcome.Err != nil {
		return fmt.Sprintf("%s:%v", class, outcome.Err)
	}
	return string(class)
}

func (e *Engine) retryBudget() int {
	if e.cfg.StepRetryBudget < 0 {
		return 0
	}
	return e.cfg.StepRetryBudget
}

// nextAttempt counts the tasks already recorded for stepID and returns the
// next attempt number (1 for a brand-new step).
func (e *Engine) nextAttempt(ctx context.Context, runID, stepID string) (int, error) {
	tasks, err := e.store.ListTasks(ctx, runID)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, t := range tasks {
		if t.StepID == stepID {
			n++
		}
	}
	return n + 1, nil
}

func (e *Engine) mustUpdateTask(ctx context.Context, taskID, status string) {
	if err := e.store.UpdateTaskStatus(ctx, taskID, status); err != nil {
		slog.Error("runengine: update task status failed", "task_id", taskID, "status", status, "error", err)
	}
}

func (e *Engine) mustUpdateStep(ctx context.Context, stepID, status string) {
	if err := e.store.UpdatePlanStepStatus(ctx, stepID, status); err != nil {
		slog.Error("runengine: update step status failed", "step_id", stepID, "status", status, "error", err)
	}
}

func (e *Engine) emit(ctx context.Context, runID string, typ events.Type, message string, payload map[string]any, level string, taskID, stepID *string) {
	if _, err := e.bus.Emit(ctx, runID, typ, message, payload, level, taskID, stepID); err != nil {
		slog.Error("runengine: emit event failed", "run_id", runID, "type", typ, "error", err)
	}
}
