// Package events implements the kernel's event bus: it persists typed Event
// records through pkg/store and fans them out to live subscribers (the HTTP
// layer turns a subscription into an SSE stream per run_id).
package events

// Type is a member of the closed event-type enum the bus accepts. Emitting
// any other string is rejected — SSE schemas mirror this exact set.
type Type string

// The closed event-type enum.
const (
	TypeRunCreated             Type = "run_created"
	TypeRunFailed              Type = "run_failed"
	TypeIntentDecided          Type = "intent_decided"
	TypeClarifyRequested       Type = "clarify_requested"
	TypeLLMRouteDecided        Type = "llm_route_decided"
	TypeLLMRequestStarted      Type = "llm_request_started"
	TypeLLMRequestSucceeded    Type = "llm_request_succeeded"
	TypeLLMRequestFailed       Type = "llm_request_failed"
	TypeLLMBudgetExceeded      Type = "llm_budget_exceeded"
	TypeChatResponseGenerated  Type = "chat_response_generated"
	TypeMemorySaveRequested    Type = "memory_save_requested"
	TypeMemorySaved            Type = "memory_saved"
	TypeTaskProgress           Type = "task_progress"
	TypeStepExecutionStarted   Type = "step_execution_started"
	TypeStepExecutionFinished  Type = "step_execution_finished"
	TypeStepPausedForApproval  Type = "step_paused_for_approval"
	TypeStepRetrying           Type = "step_retrying"
	TypeStepWaiting            Type = "step_waiting"
	TypeStepCancelledByUser    Type = "step_cancelled_by_user"
	TypeUserActionRequired     Type = "user_action_required"
	TypeObservationCaptured    Type = "observation_captured"
	TypeMicroActionProposed    Type = "micro_action_proposed"
	TypeMicroActionExecuted    Type = "micro_action_executed"
	TypeVerificationResult     Type = "verification_result"
	TypeApprovalRequested      Type = "approval_requested"
	TypeApprovalApproved       Type = "approval_approved"
	TypeApprovalRejected       Type = "approval_rejected"
	TypeApprovalResolved       Type = "approval_resolved"
	TypeLocalLLMHTTPError      Type = "local_llm_http_error"
)

var validTypes = map[Type]bool{
	TypeRunCreated:            true,
	TypeRunFailed:             true,
	TypeIntentDecided:         true,
	TypeClarifyRequested:      true,
	TypeLLMRouteDecided:       true,
	TypeLLMRequestStarted:     true,
	TypeLLMRequestSucceeded:   true,
	TypeLLMRequestFailed:      true,
	TypeLLMBudgetExceeded:     true,
	TypeChatResponseGenerated: true,
	TypeMemorySaveRequested:   true,
	TypeMemorySaved:           true,
	TypeTaskProgress:          true,
	TypeStepExecutionStarted:  true,
	TypeStepExecutionFinished: true,
	TypeStepPausedForApproval: true,
	TypeStepRetrying:          true,
	TypeStepWaiting:           true,
	TypeStepCancelledByUser:   true,
	TypeUserActionRequired:    true,
	TypeObservationCaptured:   true,
	TypeMicroActionProposed:   true,
	TypeMicroActionExecuted:   true,
	TypeVerificationResult:    true,
	TypeApprovalRequested:     true,
	TypeApprovalApproved:      true,
	TypeApprovalRejected:      true,
	TypeApprovalResolved:      true,
	TypeLocalLLMHTTPError:     true,
}

// IsValid reports whether t is a member of the closed enum.
func IsValid(t Type) bool { return validTypes[t] }
