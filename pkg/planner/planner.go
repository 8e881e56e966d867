// Package planner implements the Planner (spec.md §4.10): it translates an
// ACT-intent run into an ordered sequence of PlanSteps wired together with
// depends_on edges, ready for the Run Engine to schedule.
package planner

import (
	"strings"

	"github.com/astra-ai/kernel/pkg/intent"
	"github.com/astra-ai/kernel/pkg/store"
	"github.com/google/uuid"
)

// Planner is stateless; one instance serves every run.
type Planner struct{}

// NewPlanner constructs a Planner.
func NewPlanner() *Planner { return &Planner{} }

// BuildPlan produces the ordered PlanStep sequence for one ACT run. Steps
// run as a single linear chain (each depends on the one before it) since
// the Intent Router's plan_hint is itself an ordered list of sub-tasks; a
// MEMORY_COMMIT step is appended, depending on every prior step, only when
// the query text carries an explicit memory-save trigger.
func (p *Planner) BuildPlan(runID, queryText string, d *intent.Decision) []*store.PlanStep {
	hints := planHints(queryText, d)

	steps := make([]*store.PlanStep, 0, len(hints)+1)
	var priorID string
	for i, hint := range hints {
		kind := classifyStepKind(hint)
		step := &store.PlanStep{
			ID:               uuid.NewString(),
			RunID:            runID,
			StepIndex:        i,
			Kind:             kind,
			SkillName:        skillNameForKind(kind),
			Inputs:           map[string]any{"instruction": hint},
			Status:           store.StepStatusCreated,
			SuccessCriteria:  "step completes without error",
			DangerFlags:      dangerFlagsFor(d, i == 0),
			RequiresApproval: requiresApproval(d, i == 0),
		}
		if priorID != "" {
			step.DependsOn = []string{priorID}
		}
		steps = append(steps, step)
		priorID = step.ID
	}

	if hasExplicitMemorySaveTrigger(queryText) {
		dependsOn := make([]string, 0, len(steps))
		for _, s := range steps {
			dependsOn = append(dependsOn, s.ID)
		}
		steps = append(steps, &store.PlanStep{
			ID:              uuid.NewString(),
			RunID:           runID,
			StepIndex:       len(steps),
			Kind:            store.StepKindMemoryCommit,
			SkillName:       skillNameForKind(store.StepKindMemoryCommit),
			Inputs:          map[string]any{"query_text": queryText},
			DependsOn:       dependsOn,
			Status:          store.StepStatusCreated,
			SuccessCriteria: "memory record persisted",
		})
	}

	return steps
}

// planHints returns the ordered list of step descriptions to build steps
// from: the classifier's plan_hint when present, otherwise a single step
// built from the ACT hint's target, otherwise the raw query text as a
// last-resort single COMPUTER_ACTIONS step.
func planHints(queryText string, d *intent.Decision) []string {
	if d != nil && len(d.PlanHint) > 0 {
		hints := make([]string, 0, len(d.PlanHint))
		for _, h := range d.PlanHint {
			if strings.TrimSpace(h) != "" {
				hints = append(hints, h)
			}
		}
		if len(hints) > 0 {
			return hints
		}
	}
	if d != nil && d.ActHint != nil && strings.TrimSpace(d.ActHint.Target) != "" {
		return []string{d.ActHint.Target}
	}
	return []string{queryText}
}

// dangerFlagsFor attaches the classifier's danger flags to the first step
// only — they describe the overall ACT request, not any one sub-task.
func dangerFlagsFor(d *intent.Decision, isFirst bool) []string {
	if !isFirst || d == nil || d.ActHint == nil {
		return nil
	}
	return d.ActHint.DangerFlags
}

// requiresApproval mirrors the suggested run mode: execute_confirm and
// autopilot_safe both still gate the first step behind an approval when
// danger flags are present; plan_only/research runs build steps that are
// never scheduled for execution in the first place.
func requiresApproval(d *intent.Decision, isFirst bool) bool {
	return isFirst && d != nil && d.ActHint != nil && len(d.ActHint.DangerFlags) > 0
}
