package planner

import (
	"testing"

	"github.com/astra-ai/kernel/pkg/intent"
	"github.com/astra-ai/kernel/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPlan_SingleStepFromActHintTarget(t *testing.T) {
	p := NewPlanner()
	d := &intent.Decision{
		Intent:  intent.IntentAct,
		ActHint: &intent.ActHint{Target: "открой файл отчёта и удали дубликаты"},
	}
	steps := p.BuildPlan("run-1", "открой файл отчёта и удали дубликаты", d)
	require.Len(t, steps, 1)
	assert.Equal(t, store.StepKindFileOrganize, steps[0].Kind)
	assert.Empty(t, steps[0].DependsOn)
}

func TestBuildPlan_ChainsPlanHintStepsSequentially(t *testing.T) {
	p := NewPlanner()
	d := &intent.Decision{
		Intent:   intent.IntentAct,
		PlanHint: []string{"открой браузер и найди информацию", "сохрани результат в файл"},
	}
	steps := p.BuildPlan("run-1", "исследуй тему и сохрани выводы", d)
	require.Len(t, steps, 2)
	assert.Equal(t, store.StepKindBrowserResearchUI, steps[0].Kind)
	assert.Equal(t, store.StepKindFileOrganize, steps[1].Kind)
	assert.Empty(t, steps[0].DependsOn)
	assert.Equal(t, []string{steps[0].ID}, steps[1].DependsOn)
}

func TestBuildPlan_AppendsMemoryCommitOnExplicitTrigger(t *testing.T) {
	p := NewPlanner()
	d := &intent.Decision{Intent: intent.IntentAct, ActHint: &intent.ActHint{Target: "открой терминал и запусти скрипт"}}
	steps := p.BuildPlan("run-1", "запомни: меня зовут Анна, " /**/ +"открой терминал и запусти скрипт", d)
	require.Len(t, steps, 2)
	last := steps[len(steps)-1]
	assert.Equal(t, store.StepKindMemoryCommit, last.Kind)
	assert.Equal(t, []string{steps[0].ID}, last.DependsOn)
}

func TestBuildPlan_NoMemoryCommitWithoutExplicitTrigger(t *testing.T) {
	p := NewPlanner()
	d := &intent.Decision{Intent: intent.IntentAct, ActHint: &intent.ActHint{Target: "организуй файлы в загрузках"}}
	steps := p.BuildPlan("run-1", "организуй файлы в загрузках", d)
	for _, s := range steps {
		assert.NotEqual(t, store.StepKindMemoryCommit, s.Kind)
	}
}

func TestBuildPlan_FirstStepCarriesDangerFlagsAndApproval(t *testing.T) {
	p := NewPlanner()
	d := &intent.Decision{
		Intent:  intent.IntentAct,
		ActHint: &intent.ActHint{Target: "удали все файлы в загрузках", DangerFlags: []string{"destructive_file_op"}},
	}
	steps := p.BuildPlan("run-1", "удали все файлы в загрузках", d)
	require.Len(t, steps, 1)
	assert.Equal(t, []string{"destructive_file_op"}, steps[0].DangerFlags)
	assert.True(t, steps[0].RequiresApproval)
}

func TestBuildPlan_FallsBackToQueryTextWithoutHints(t *testing.T) {
	p := NewPlanner()
	steps := p.BuildPlan("run-1", "сделай что-нибудь полезное", nil)
	require.Len(t, steps, 1)
	assert.Equal(t, store.StepKindComputerActions, steps[0].Kind)
}

func TestBuildPlan_StepIndicesAreSequential(t *testing.T) {
	p := NewPlanner()
	d := &intent.Decision{PlanHint: []string{"открой браузер", "организуй файлы", "напиши код"}}
	steps := p.BuildPlan("run-1", "многоэтапная задача", d)
	for i, s := range steps {
		assert.Equal(t, i, s.StepIndex)
	}
}
