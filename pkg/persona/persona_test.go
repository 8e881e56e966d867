package persona

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyze_FastPathForSimpleQuery(t *testing.T) {
	a := NewAnalyzer()
	result := a.Analyze("сколько будет 2+2", nil, nil)
	assert.True(t, result.FastPathEligible)
	assert.Equal(t, "short_dry_simple", result.FastPathReason)
	assert.NotEmpty(t, result.SelfReflection)
}

func TestAnalyze_FullPathForEmotionalMessage(t *testing.T) {
	a := NewAnalyzer()
	result := a.Analyze("меня это бесит, достал уже, сломалось опять", nil, nil)
	require.False(t, result.FastPathEligible)
	assert.Equal(t, ToneFrustrated, result.Type)
	assert.NotEmpty(t, result.ModePlan.PrimaryMode)
	assert.NotEmpty(t, result.SelfReflection)
}

func TestAnalyze_UsesMemoryAndHistoryOnFullPath(t *testing.T) {
	a := NewAnalyzer()
	history := []HistoryMessage{
		{Role: "user", Content: "придумай идею для проекта"},
	}
	memories := []MemoryItem{
		{Preferences: []MemoryPreference{{Key: "persona.mode.primary", Value: "Strategic/Architect"}}},
	}
	result := a.Analyze("почему так вышло, в чём смысл всего этого, я долго рефлексирую", history, memories)
	require.False(t, result.FastPathEligible)
	assert.Equal(t, Mode("Strategic/Architect"), result.ModePlan.DominantMode)
}

func TestAnalyze_CrisisToneStabilizeShape(t *testing.T) {
	a := NewAnalyzer()
	result := a.Analyze("пиздец, паника, всё пропало, аврал полный", nil, nil)
	assert.Equal(t, ToneCrisis, result.Type)
	assert.Equal(t, ShapeStabilizeThenPlan, result.ResponseShape)
}
