// Package approval implements the Approval Gate (spec.md §4.10/§4.11): it
// creates typed user-decision records that suspend a Task, and polls the
// Store for their resolution on behalf of the Computer Executor's
// micro-action loop. Deciding a terminal approval is always a no-op
// (spec.md §3: "Approvals are terminal on non-pending status; deciding a
// terminal approval is a no-op").
package approval

import (
	"context"
	"fmt"
	"time"

	"github.com/astra-ai/kernel/pkg/events"
	"github.com/astra-ai/kernel/pkg/store"
	"github.com/google/uuid"
)

// Create records a pending Approval, suspends taskID to waiting_approval,
// and emits approval_requested + step_paused_for_approval.
func Create(ctx context.Context, s store.Store, bus *events.Bus, runID, taskID, stepID, scope, title, description string, proposedActions []map[string]any) (*store.Approval, error) {
	a := &store.Approval{
		ID:              uuid.NewString(),
		RunID:           runID,
		TaskID:          taskID,
		Scope:           scope,
		Title:           title,
		Description:     description,
		ProposedActions: proposedActions,
		Status:          store.ApprovalPending,
	}
	if err := s.CreateApproval(ctx, a); err != nil {
		return nil, fmt.Errorf("create approval: %w", err)
	}
	if err := s.UpdateTaskStatus(ctx, taskID, store.TaskStatusWaitingApproval); err != nil {
		return nil, fmt.Errorf("suspend task: %w", err)
	}

	var stepIDPtr, taskIDPtr *string
	if stepID != "" {
		stepIDPtr = &stepID
	}
	taskIDPtr = &taskID

	emit(ctx, bus, runID, events.TypeApprovalRequested, fmt.Sprintf("approval requested: %s", title),
		map[string]any{"approval_id": a.ID, "scope": scope}, store.LevelWarning, taskIDPtr, stepIDPtr)
	emit(ctx, bus, runID, events.TypeStepPausedForApproval, fmt.Sprintf("step paused for approval: %s", title),
		map[string]any{"approval_id": a.ID}, store.LevelWarning, taskIDPtr, stepIDPtr)

	return a, nil
}

// WaitForResolution polls the store every pollInterval until approvalID's
// status leaves pending, or ctx is done (run canceled or timed out) —
// spec.md §5: "Approval waits poll the store every ~500 ms until terminal
// or run canceled."
func WaitForResolution(ctx context.Context, s store.Store, approvalID string, pollInterval time.Duration) (*store.Approval, error) {
	for {
		a, err := s.GetApproval(ctx, approvalID)
		if err != nil {
			return nil, fmt.Errorf("poll approval: %w", err)
		}
		if a.Status != store.ApprovalPending {
			return a, nil
		}

		select {
		case <-ctx.Done():
			return a, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// Resolve applies a user's approve/reject decision. Resolving an
// already-terminal approval is a no-op that returns the existing record
// unchanged (spec.md §3, §8: "Rejecting a pending approval twice leaves
// state identical after the first call").
func Resolve(ctx context.Context, s store.Store, bus *events.Bus, approvalID string, approve bool, decidedBy string) (*store.Approval, error) {
	existing, err := s.GetApproval(ctx, approvalID)
	if err != nil {
		return nil, fmt.Errorf("resolve approval: %w", err)
	}
	if existing.Status != store.ApprovalPending {
		return existing, nil
	}

	status := store.ApprovalRejected
	decision := "rejected"
	typ := events.TypeApprovalRejected
	if approve {
		status = store.ApprovalApproved
		decision = "approved"
		typ = events.TypeApprovalApproved
	}

	if err := s.UpdateApprovalStatus(ctx, approvalID, status, decision, decidedBy); err != nil {
		return nil, fmt.Errorf("resolve approval: %w", err)
	}

	taskID := existing.TaskID
	emit(ctx, bus, existing.RunID, typ, fmt.Sprintf("approval %s: %s", decision, existing.Title),
		map[string]any{"approval_id": approvalID, "decided_by": decidedBy}, store.LevelInfo, &taskID, nil)
	emit(ctx, bus, existing.RunID, events.TypeApprovalResolved, fmt.Sprintf("approval resolved: %s", existing.Title),
		map[string]any{"approval_id": approvalID, "decision": decision}, store.LevelInfo, &taskID, nil)

	return s.GetApproval(ctx, approvalID)
}

func emit(ctx context.Context, bus *events.Bus, runID string, typ events.Type, message string, payload map[string]any, level string, taskID, stepID *string) {
	if bus == nil {
		return
	}
	_, _ = bus.Emit(ctx, runID, typ, message, payload, level, taskID, stepID)
}
