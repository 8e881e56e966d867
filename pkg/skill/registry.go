// Package skill implements the Skill registry (spec.md §4.10): it
// implements runengine.Dispatcher by looking a PlanStep's SkillName up in a
// name->Dispatcher table and delegating, keeping the Run Engine itself
// ignorant of what any individual skill does. Grounded on
// `_examples/codeready-toolchain-tarsy/pkg/config/sub_agent_registry.go`'s
// name->entry lookup idiom and `pkg/agent/factory.go`'s type-based
// controller construction — the same "look a name up, construct/dispatch
// the matching implementation" shape, here keyed by skill name instead of
// agent/sub-agent type.
package skill

import (
	"context"
	"fmt"

	"github.com/astra-ai/kernel/pkg/runengine"
	"github.com/astra-ai/kernel/pkg/store"
)

// Registry maps a PlanStep's SkillName to the Dispatcher that runs it.
type Registry struct {
	skills map[string]runengine.Dispatcher
}

// NewRegistry builds a Registry from a name->Dispatcher table. Skill names
// must match pkg/planner's skillNameForKind output exactly.
func NewRegistry(skills map[string]runengine.Dispatcher) *Registry {
	return &Registry{skills: skills}
}

// Dispatch implements runengine.Dispatcher.
func (r *Registry) Dispatch(ctx context.Context, run *store.Run, step *store.PlanStep, task *store.Task) runengine.Outcome {
	d, ok := r.skills[step.SkillName]
	if !ok {
		return runengine.Outcome{
			Status:     store.TaskStatusFailed,
			ErrorClass: runengine.ErrorClassPolicy,
			Err:        fmt.Errorf("no skill registered for %q", step.SkillName),
		}
	}
	return d.Dispatch(ctx, run, step, task)
}
