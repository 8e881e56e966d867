package persona

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCandidateModes_BaseToneWithBooster(t *testing.T) {
	modes := candidateModes(ToneDry, Signals{HumorCues: 1})
	assert.Equal(t, Mode("Calm/Analytical"), modes[0])
	assert.Equal(t, Mode("Practical/Solution"), modes[1])
	assert.Contains(t, modes, Mode("Witty/Humorous-lite"))
}

func TestCandidateModes_CapsAtSix(t *testing.T) {
	modes := candidateModes(ToneNeutral, Signals{
		HumorCues: 1, Uncertainty: 1, TrustLanguage: 1, CreativeCues: 1,
		ReflectiveCues: 1, TechnicalDensity: 2, Urgency: 1,
	})
	assert.LessOrEqual(t, len(modes), 6)
}

func TestCandidateModes_Dedup(t *testing.T) {
	modes := candidateModes(ToneNeutral, Signals{TrustLanguage: 1})
	seen := map[Mode]bool{}
	for _, m := range modes {
		assert.False(t, seen[m], "mode %s should not repeat", m)
		seen[m] = true
	}
}

func TestSelectModes_InsertsDominantRecalledMode(t *testing.T) {
	plan := selectModes(ToneNeutral, Signals{}, Recall{}, ModeRecallResult{DominantMode: "Strategic/Architect"})
	assert.Contains(t, plan.CandidateModes, Mode("Strategic/Architect"))
}

func TestSelectModes_ShiftAvoidsDuplicatePrimarySupporting(t *testing.T) {
	plan := selectModes(ToneNeutral, Signals{}, Recall{DetectedShift: true}, ModeRecallResult{})
	assert.NotEqual(t, plan.PrimaryMode, plan.SupportingMode)
}

func TestExtractModesFromString_ResolvesAliases(t *testing.T) {
	modes := extractModesFromString("Calm/Analytical, Practical/Solution")
	assert.Contains(t, modes, Mode("Calm/Analytical"))
	assert.Contains(t, modes, Mode("Practical/Solution"))
}

func TestExtractModesFromString_IgnoresUnknown(t *testing.T) {
	modes := extractModesFromString("not a real mode")
	assert.Empty(t, modes)
}

func TestRecallModes_FromMemoryPreference(t *testing.T) {
	memories := []MemoryItem{
		{Preferences: []MemoryPreference{{Key: "persona.mode.primary", Value: "Strategic/Architect"}}},
	}
	result := recallModes(nil, memories)
	assert.Contains(t, result.FromMemory, Mode("Strategic/Architect"))
	assert.Equal(t, Mode("Strategic/Architect"), result.DominantMode)
}

func TestRecallModes_InfersFromHistory(t *testing.T) {
	history := []HistoryMessage{
		{Role: "user", Content: "дай формулу коротко"},
		{Role: "assistant", Content: "вот формула"},
		{Role: "user", Content: "спасибо, давай ещё"},
	}
	result := recallModes(history, nil)
	assert.NotEmpty(t, result.InferredFromHistory)
}

func TestRecallModes_EmptyInputsYieldNoDominant(t *testing.T) {
	result := recallModes(nil, nil)
	assert.Equal(t, Mode(""), result.DominantMode)
	assert.Empty(t, result.ModeHistory)
}
