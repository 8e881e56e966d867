package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/astra-ai/kernel/pkg/approval"
	"github.com/astra-ai/kernel/pkg/bridge"
	"github.com/astra-ai/kernel/pkg/config"
	"github.com/astra-ai/kernel/pkg/events"
	"github.com/astra-ai/kernel/pkg/runengine"
	"github.com/astra-ai/kernel/pkg/store"
)

// Runner drives the observe/propose/execute/verify micro-action loop
// (spec.md §4.11) for one Task at a time. It satisfies runengine.Dispatcher
// directly so pkg/skill's registry can route COMPUTER_ACTIONS-family steps
// straight to it.
type Runner struct {
	store          store.Store
	bus            *events.Bus
	bridge         bridge.Client
	brain          BrainClient
	cfg            config.ExecutorConfig
	approvalPollMS int
}

func NewRunner(s store.Store, bus *events.Bus, b bridge.Client, brainClient BrainClient, cfg config.ExecutorConfig, approvalPollMS int) *Runner {
	return &Runner{store: s, bus: bus, bridge: b, brain: brainClient, cfg: cfg, approvalPollMS: approvalPollMS}
}

// Dispatch implements runengine.Dispatcher.
func (r *Runner) Dispatch(ctx context.Context, run *store.Run, step *store.PlanStep, task *store.Task) runengine.Outcome {
	if step.RequiresApproval || len(step.DangerFlags) > 0 {
		outcome, ok := r.gateOnApproval(ctx, run.ID, task, step, "step_execution",
			fmt.Sprintf("Run step %q?", step.SkillName),
			fmt.Sprintf("danger_flags=%v", step.DangerFlags))
		if !ok {
			return outcome
		}
	}

	return r.loop(ctx, run, step, task)
}

func (r *Runner) loop(ctx context.Context, run *store.Run, step *store.PlanStep, task *store.Task) runengine.Outcome {
	deadline := time.Now().Add(time.Duration(maxTotalTimeS(r.cfg)) * time.Second)
	var priorDigest string
	noProgress := 0
	parseFailures := 0

	for i := 0; i < maxMicroSteps(r.cfg); i++ {
		if err := ctx.Err(); err != nil {
			return runengine.Outcome{Status: store.TaskStatusCanceled, Err: err}
		}
		if time.Now().After(deadline) {
			return r.fail(ctx, run.ID, task.ID, step.ID, reasonMaxTime, nil)
		}

		obs, failClass, err := r.bridge.Capture(ctx, r.cfg.ScreenshotWidth, r.cfg.ScreenshotQuality)
		if err != nil {
			return r.bridgeFailure(failClass, err)
		}
		changed := priorDigest != "" && obs.Digest != priorDigest
		r.emit(ctx, run.ID, task.ID, step.ID, events.TypeObservationCaptured, "observation captured",
			map[string]any{"digest": obs.Digest, "changed": changed, "width": obs.Width, "height": obs.Height})
		priorDigest = obs.Digest

		action, perr := r.brain.ProposeAction(ctx, run.ID, step.ID, proposePrompt(step, obs))
		if perr != nil {
			parseFailures++
			if parseFailures <= 1 {
				continue // retry once on parse/LLM failure, spec.md §4.11 step 3
			}
			outcome, ok := r.gateOnApproval(ctx, run.ID, task, step, "propose_help",
				"Action proposal failed repeatedly — need guidance", perr.Error())
			if !ok {
				return outcome
			}
			parseFailures = 0
			continue
		}
		parseFailures = 0

		r.emit(ctx, run.ID, task.ID, step.ID, events.TypeMicroActionProposed, fmt.Sprintf("proposed action: %s", action.Type),
			map[string]any{"action": action})

		if action.Type == "done" {
			return runengine.Outcome{Status: store.TaskStatusDone}
		}

		if err := validateAction(action, obs.Width, obs.Height); err != nil {
			return r.fail(ctx, run.ID, task.ID, step.ID, reasonActionFailed, err)
		}

		if !r.cfg.DryRun {
			failClass, err := r.bridge.Execute(ctx, action)
			if err != nil {
				return r.bridgeFailure(failClass, err)
			}
			r.emit(ctx, run.ID, task.ID, step.ID, events.TypeMicroActionExecuted, fmt.Sprintf("executed action: %s", action.Type), nil)

			r.waitAfterAction(ctx, action)

			progressed := r.verifyProgress(ctx, priorDigest, &priorDigest)
			r.emit(ctx, run.ID, task.ID, step.ID, events.TypeVerificationResult, boolResultMessage(progressed),
				map[string]any{"progressed": progressed})

			if progressed {
				noProgress = 0
			} else {
				noProgress++
				if noProgress >= maxNoProgress(r.cfg) {
					outcome, ok := r.gateOnApproval(ctx, run.ID, task, step, "no_progress_help",
						"No progress detected — need guidance", "")
					if !ok {
						return outcome
					}
					noProgress = 0
				}
			}
		} else {
			r.emit(ctx, run.ID, task.ID, step.ID, events.TypeMicroActionExecuted, fmt.Sprintf("dry_run: skipped execution of %s", action.Type), nil)
		}
	}

	return r.fail(ctx, run.ID, task.ID, step.ID, reasonMaxMicroSteps, nil)
}

// verifyProgress re-observes and reports whether the screen changed,
// polling up to wait_timeout_ms per spec.md §4.11 step 6.
func (r *Runner) verifyProgress(ctx context.Context, baseline string, priorDigest *string) bool {
	deadline := time.Now().Add(time.Duration(waitTimeoutMS(r.cfg)) * time.Millisecond)
	poll := time.Duration(pollIntervalMS(r.cfg)) * time.Millisecond
	for {
		obs, _, err := r.bridge.Capture(ctx, r.cfg.ScreenshotWidth, r.cfg.ScreenshotQuality)
		if err == nil && obs.Digest != baseline {
			*priorDigest = obs.Digest
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(poll):
		}
	}
}

func (r *Runner) waitAfterAction(ctx context.Context, action bridge.Action) {
	d := time.Duration(r.cfg.WaitAfterActMS) * time.Millisecond
	if action.Type == "wait" && action.MS > 0 {
		d = time.Duration(action.MS) * time.Millisecond
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// gateOnApproval creates an approval, suspends the task, and blocks until
// it resolves. ok=false means the caller must return the accompanying
// Outcome immediately (rejected, expired, or canceled); ok=true means the
// loop may continue.
func (r *Runner) gateOnApproval(ctx context.Context, runID string, task *store.Task, step *store.PlanStep, scope, title, description string) (runengine.Outcome, bool) {
	a, err := approval.Create(ctx, r.store, r.bus, runID, task.ID, step.ID, scope, title, description, nil)
	if err != nil {
		return runengine.Outcome{Status: store.TaskStatusFailed, ErrorClass: runengine.ErrorClassPolicy, Err: err}, false
	}

	r.emit(ctx, runID, task.ID, step.ID, events.TypeUserActionRequired, title, map[string]any{"approval_id": a.ID})

	resolved, err := approval.WaitForResolution(ctx, r.store, a.ID, time.Duration(r.approvalPollMS)*time.Millisecond)
	if err != nil {
		return runengine.Outcome{Status: store.TaskStatusCanceled, Err: err}, false
	}

	switch resolved.Status {
	case store.ApprovalApproved:
		if err := r.store.UpdateTaskStatus(ctx, task.ID, store.TaskStatusRunning); err != nil {
			return runengine.Outcome{Status: store.TaskStatusFailed, ErrorClass: runengine.ErrorClassPolicy, Err: err}, false
		}
		return runengine.Outcome{}, true
	default: // rejected or expired
		outcome, _ := r.failOutcome(reasonApprovalRejected, nil)
		return outcome, false
	}
}

func (r *Runner) fail(ctx context.Context, runID, taskID, stepID string, reason failReason, err error) runengine.Outcome {
	outcome, msg := r.failOutcome(reason, err)
	r.emit(ctx, runID, taskID, stepID, events.TypeStepExecutionFinished, msg, map[string]any{"reason": string(reason)})
	return outcome
}

func (r *Runner) failOutcome(reason failReason, err error) (runengine.Outcome, string) {
	class := runengine.ErrorClassPolicy
	if reason == reasonApprovalRejected {
		class = runengine.ErrorClassApprovalRejected
	}
	if err == nil {
		err = fmt.Errorf("%s", reason)
	}
	return runengine.Outcome{Status: store.TaskStatusFailed, ErrorClass: class, Err: err}, fmt.Sprintf("step failed: %s", reason)
}

func (r *Runner) bridgeFailure(class bridge.FailureClass, err error) runengine.Outcome {
	ec := runengine.ErrorClassPolicy
	if class.Retryable() {
		ec = runengine.ErrorClassTransient
	}
	return runengine.Outcome{Status: store.TaskStatusFailed, ErrorClass: ec, Err: err}
}

func (r *Runner) emit(ctx context.Context, runID, taskID, stepID string, typ events.Type, message string, payload map[string]any) {
	if r.bus == nil {
		return
	}
	var taskIDPtr, stepIDPtr *string
	if taskID != "" {
		taskIDPtr = &taskID
	}
	if stepID != "" {
		stepIDPtr = &stepID
	}
	_, _ = r.bus.Emit(ctx, runID, typ, message, payload, store.LevelInfo, taskIDPtr, stepIDPtr)
}

func proposePrompt(step *store.PlanStep, obs bridge.Observation) string {
	return fmt.Sprintf("Goal: %s\nSuccess criteria: %s\nScreen: %dx%d (image omitted here; digest=%s)\nPropose the single next action as JSON.",
		step.SkillName, step.SuccessCriteria, obs.Width, obs.Height, obs.Digest)
}

func boolResultMessage(progressed bool) string {
	if progressed {
		return "verification: progress detected"
	}
	return "verification: no progress (timeout)"
}

func maxMicroSteps(cfg config.ExecutorConfig) int {
	if cfg.MaxMicroSteps <= 0 {
		return 30
	}
	return cfg.MaxMicroSteps
}

func maxTotalTimeS(cfg config.ExecutorConfig) int {
	if cfg.MaxTotalTimeS <= 0 {
		return 600
	}
	return cfg.MaxTotalTimeS
}

func maxNoProgress(cfg config.ExecutorConfig) int {
	if cfg.MaxNoProgress <= 0 {
		return 3
	}
	return cfg.MaxNoProgress
}

func waitTimeoutMS(cfg config.ExecutorConfig) int {
	if cfg.WaitTimeoutMS <= 0 {
		return 4000
	}
	return cfg.WaitTimeoutMS
}

func pollIntervalMS(cfg config.ExecutorConfig) int {
	if cfg.PollIntervalMS <= 0 {
		return 250
	}
	return cfg.PollIntervalMS
}
