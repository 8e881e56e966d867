package memory

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMerge_DedupsFactsCaseInsensitive(t *testing.T) {
	a := Payload{Facts: []Fact{{Key: "City", Value: "Berlin"}}}
	b := Payload{Facts: []Fact{{Key: "city", Value: "berlin"}, {Key: "Job", Value: "Engineer"}}}

	merged := Merge(a, b)
	assert.Len(t, merged.Facts, 2)
}

func TestMerge_DedupsPreferencesCaseInsensitive(t *testing.T) {
	a := Payload{Preferences: []Preference{{Key: "tone", Value: "Friendly"}}}
	b := Payload{Preferences: []Preference{{Key: "Tone", Value: "friendly"}}}

	merged := Merge(a, b)
	assert.Len(t, merged.Preferences, 1)
}

func TestMerge_ConfidenceIsMax(t *testing.T) {
	merged := Merge(Payload{Confidence: 0.3}, Payload{Confidence: 0.8})
	assert.Equal(t, 0.8, merged.Confidence)
}

func TestMerge_SummaryConcatenatesUpTo320Chars(t *testing.T) {
	a := Payload{Summary: strings.Repeat("a", 200)}
	b := Payload{Summary: strings.Repeat("b", 200)}

	merged := Merge(a, b)
	assert.LessOrEqual(t, len(merged.Summary), 320)
	assert.True(t, strings.HasPrefix(merged.Summary, strings.Repeat("a", 200)))
}

func TestMerge_ShouldStoreIsOrOfBothSources(t *testing.T) {
	merged := Merge(Payload{ShouldStore: false}, Payload{ShouldStore: true})
	assert.True(t, merged.ShouldStore)
}

func TestMerge_PossibleFactsDedup(t *testing.T) {
	merged := Merge(
		Payload{PossibleFacts: []string{"Likes coffee"}},
		Payload{PossibleFacts: []string{"likes coffee", "Works remotely"}},
	)
	assert.Len(t, merged.PossibleFacts, 2)
}
