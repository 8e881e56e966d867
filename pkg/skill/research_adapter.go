package skill

import (
	"context"
	"fmt"

	"github.com/astra-ai/kernel/pkg/research"
	"github.com/astra-ai/kernel/pkg/runengine"
	"github.com/astra-ai/kernel/pkg/store"
)

// ResearchAdapter wraps *research.Skill as a runengine.Dispatcher for
// WEB_RESEARCH plan steps (spec.md §4.9/§4.10).
type ResearchAdapter struct {
	skill     *research.Skill
	mode      string
	maxRounds int
}

func NewResearchAdapter(skill *research.Skill, mode string, maxRounds int) *ResearchAdapter {
	return &ResearchAdapter{skill: skill, mode: mode, maxRounds: maxRounds}
}

func (a *ResearchAdapter) Dispatch(ctx context.Context, run *store.Run, step *store.PlanStep, task *store.Task) runengine.Outcome {
	query, _ := step.Inputs["instruction"].(string)
	if query == "" {
		query = run.QueryText
	}

	result := a.skill.Run(ctx, run.ID, step.ID, research.Input{
		Query:     query,
		Mode:      a.mode,
		MaxRounds: a.maxRounds,
	})

	if len(result.Sources) == 0 && result.AnswerMD == "" {
		return runengine.Outcome{
			Status:     store.TaskStatusFailed,
			ErrorClass: runengine.ErrorClassTransient,
			Err:        fmt.Errorf("web research produced no sources: %v", result.Assumptions),
		}
	}

	return runengine.Outcome{Status: store.TaskStatusDone}
}
