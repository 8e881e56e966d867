package persona

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatModeSection_ContainsPrimaryAndSupporting(t *testing.T) {
	plan := ModePlan{PrimaryMode: "Calm/Analytical", SupportingMode: "Practical/Solution"}
	section := FormatModeSection(plan, ShapeShortStructured, MirrorLow, 900)
	assert.Contains(t, section, "Calm/Analytical")
	assert.Contains(t, section, "Practical/Solution")
}

func TestFormatModeSection_RespectsCharCap(t *testing.T) {
	plan := ModePlan{PrimaryMode: "Calm/Analytical", SupportingMode: "Practical/Solution"}
	section := FormatModeSection(plan, ShapeShortStructured, MirrorLow, 20)
	assert.LessOrEqual(t, len([]rune(section)), 20)
}

func TestFormatSubEngineSection_NoneDetected(t *testing.T) {
	section := FormatSubEngineSection(SubEngineFlags{}, 900)
	assert.Contains(t, section, "None detected")
}

func TestFormatSubEngineSection_ExpandsDetectedCues(t *testing.T) {
	section := FormatSubEngineSection(SubEngineFlags{DevTask: true, Workflow: true}, 900)
	assert.Contains(t, section, "Development task cues")
	assert.Contains(t, section, "Workflow/pipeline cues")
}

func TestFormatProfileSection_NoMemories(t *testing.T) {
	section := FormatProfileSection(nil, 12, 900)
	assert.Contains(t, section, "No stored profile information")
}

func TestFormatProfileSection_ExtractsNameAndStyleHints(t *testing.T) {
	memories := []MemoryItem{
		{
			Facts:       []MemoryFact{{Key: "user_name", Value: "Alex"}},
			Preferences: []MemoryPreference{{Key: "brevity", Value: "short"}},
		},
	}
	section := FormatProfileSection(memories, 12, 900)
	assert.Contains(t, section, "Alex")
	assert.Contains(t, section, "short, to-the-point")
}

func TestStyleHintFromPreference_UnknownKeyReturnsEmpty(t *testing.T) {
	assert.Equal(t, "", styleHintFromPreference("unrelated.key", "value"))
}

func TestBuildSystemPrompt_FastPathUsesCompactBlock(t *testing.T) {
	a := NewAnalyzer()
	analysis := a.Analyze("сколько будет 2+2", nil, nil)
	prompt := BuildSystemPrompt("Base instructions.", analysis, nil, 900, 4000)
	assert.Contains(t, prompt, "Fast Path Runtime")
	assert.NotContains(t, prompt, "Persona Mode")
}

func TestBuildSystemPrompt_FullPathIncludesModeAndProfile(t *testing.T) {
	a := NewAnalyzer()
	analysis := a.Analyze("почему так вышло, в чём смысл, я рефлексирую над этим долго", nil, nil)
	prompt := BuildSystemPrompt("Base instructions.", analysis, nil, 900, 4000)
	assert.Contains(t, prompt, "Persona Mode")
	assert.Contains(t, prompt, "Self-reflection:")
}

func TestBuildSystemPrompt_TruncatesToTotalCap(t *testing.T) {
	a := NewAnalyzer()
	analysis := a.Analyze("почему так вышло, в чём смысл, я рефлексирую над этим долго", nil, nil)
	prompt := BuildSystemPrompt(strings.Repeat("x", 5000), analysis, nil, 900, 200)
	assert.LessOrEqual(t, len([]rune(prompt)), 200)
}
