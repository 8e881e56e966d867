// Package runengine implements the Run Engine (spec.md §4.10): it drives a
// Run's PlanStep DAG to completion, one background worker per run, by
// walking the ready set (steps whose dependencies are all done), spawning a
// Task per ready step, dispatching it to a Skill, and applying the per-step
// error policy to the outcome.
package runengine

import (
	"context"

	"github.com/astra-ai/kernel/pkg/store"
)

// ErrorClass partitions a failed task outcome for the error-policy switch
// (spec.md §4.10): transient provider errors are retried up to the step's
// retry budget; policy errors and budget_exceeded fail the step immediately;
// approval rejection is fatal with reason=approval_rejected.
type ErrorClass string

const (
	ErrorClassTransient        ErrorClass = "transient"
	ErrorClassPolicy           ErrorClass = "policy"
	ErrorClassBudgetExceeded   ErrorClass = "budget_exceeded"
	ErrorClassApprovalRejected ErrorClass = "approval_rejected"
)

// Outcome is what a Dispatcher reports after running one Task to completion
// (or to a suspension/failure point).
type Outcome struct {
	Status     string // store.TaskStatus*
	ErrorClass ErrorClass
	Err        error
}

// Dispatcher executes one Task of a PlanStep against its named skill. The
// Run Engine never interprets step Inputs or Kind itself — pkg/skill's
// registry owns that mapping and is injected here so the engine stays a
// pure scheduler.
type Dispatcher interface {
	Dispatch(ctx context.Context, run *store.Run, step *store.PlanStep, task *store.Task) Outcome
}
