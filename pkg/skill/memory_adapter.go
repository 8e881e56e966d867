package skill

import (
	"context"

	"github.com/astra-ai/kernel/pkg/events"
	"github.com/astra-ai/kernel/pkg/memory"
	"github.com/astra-ai/kernel/pkg/runengine"
	"github.com/astra-ai/kernel/pkg/store"
)

// MemoryAdapter wraps the Memory Interpreter + the synchronous
// memory.Save for MEMORY_COMMIT plan steps (spec.md §4.10). Unlike the
// Chat Loop's fire-and-forget pkg/memory.SaveAsync kickoff, a MEMORY_COMMIT
// step is itself a DAG node the Run Engine waits on, so it must block on
// the save and report its outcome.
type MemoryAdapter struct {
	interpreter *memory.Interpreter
	store       store.Store
	bus         *events.Bus
}

func NewMemoryAdapter(interp *memory.Interpreter, s store.Store, bus *events.Bus) *MemoryAdapter {
	return &MemoryAdapter{interpreter: interp, store: s, bus: bus}
}

func (a *MemoryAdapter) Dispatch(ctx context.Context, run *store.Run, step *store.PlanStep, task *store.Task) runengine.Outcome {
	queryText, _ := step.Inputs["query_text"].(string)
	if queryText == "" {
		queryText = run.QueryText
	}

	payload, err := a.interpreter.Interpret(ctx, run.ID, step.ID, queryText, "")
	if err != nil {
		return runengine.Outcome{Status: store.TaskStatusFailed, ErrorClass: runengine.ErrorClassTransient, Err: err}
	}

	if err := memory.Save(ctx, a.store, a.bus, run.ID, *payload); err != nil {
		return runengine.Outcome{Status: store.TaskStatusFailed, ErrorClass: runengine.ErrorClassPolicy, Err: err}
	}

	return runengine.Outcome{Status: store.TaskStatusDone}
}
