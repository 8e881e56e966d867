// Package executor implements the Computer Executor (spec.md §4.11): the
// observe/propose/execute/verify micro-action loop that drives the Desktop
// Bridge on behalf of BROWSER_RESEARCH_UI, COMPUTER_ACTIONS, FILE_ORGANIZE,
// and CODE_ASSIST plan steps.
package executor

import (
	"context"

	"github.com/astra-ai/kernel/pkg/bridge"
)

// BrainClient is the Runner's view of the Brain Router — just enough to ask
// for the next micro-action. Declared as an interface (rather than a
// concrete *brain.Router) so tests can swap in a scripted stand-in.
type BrainClient interface {
	ProposeAction(ctx context.Context, runID, stepID string, prompt string) (bridge.Action, error)
}

// failReason names why a step ended in failure, the closed vocabulary
// spec.md §4.11's state diagram lists as the loop's terminal failure labels.
type failReason string

const (
	reasonApprovalRejected failReason = "approval_rejected"
	reasonActionFailed     failReason = "action_failed"
	reasonMaxTime          failReason = "max_time"
	reasonMaxMicroSteps    failReason = "max_micro_steps"
	reasonNoProgress       failReason = "no_progress"
)
