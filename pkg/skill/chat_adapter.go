package skill

import (
	"context"

	"github.com/astra-ai/kernel/pkg/chat"
	"github.com/astra-ai/kernel/pkg/runengine"
	"github.com/astra-ai/kernel/pkg/store"
)

// ChatAdapter wraps *chat.Loop as a runengine.Dispatcher for CHAT_RESPONSE
// plan steps. The Planner (pkg/planner) never currently emits this kind —
// every CHAT-intent turn is served directly by the HTTP API's chat
// endpoint, outside the Run Engine — but spec.md §3 names CHAT_RESPONSE
// as a PlanStep kind and pkg/planner.skillNameForKind maps it to this
// skill name, so the registry carries a working adapter for it rather than
// leaving the name dangling.
type ChatAdapter struct {
	loop           *chat.Loop
	baseSystemText string
}

func NewChatAdapter(loop *chat.Loop, baseSystemText string) *ChatAdapter {
	return &ChatAdapter{loop: loop, baseSystemText: baseSystemText}
}

func (a *ChatAdapter) Dispatch(ctx context.Context, run *store.Run, step *store.PlanStep, task *store.Task) runengine.Outcome {
	userMessage, _ := step.Inputs["instruction"].(string)
	if userMessage == "" {
		userMessage = run.QueryText
	}

	result := a.loop.Run(ctx, chat.Turn{
		RunID:          run.ID,
		StepID:         step.ID,
		UserMessage:    userMessage,
		BaseSystemText: a.baseSystemText,
	})

	if result.Text == "" {
		return runengine.Outcome{Status: store.TaskStatusFailed, ErrorClass: runengine.ErrorClassTransient}
	}
	return runengine.Outcome{Status: store.TaskStatusDone}
}
