package api

import (
	"strings"

	"github.com/astra-ai/kernel/pkg/persona"
	"github.com/astra-ai/kernel/pkg/store"
)

// toPersonaMemories adapts the persisted UserMemory rows consulted by a chat
// turn into the shape persona.Analyze and intent.Router.Decide expect. The
// inverse of memory.factStrings/preferenceStrings, which flatten
// MemoryFact/MemoryPreference into "key: value" strings for storage.
func toPersonaMemories(rows []*store.UserMemory) []persona.MemoryItem {
	items := make([]persona.MemoryItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, persona.MemoryItem{
			Summary:     r.Meta.Summary,
			Content:     r.Content,
			Title:       r.Title,
			Facts:       parseFacts(r.Meta.Facts),
			Preferences: parsePreferences(r.Meta.Preferences),
		})
	}
	return items
}

func parseFacts(raw []string) []persona.MemoryFact {
	facts := make([]persona.MemoryFact, 0, len(raw))
	for _, s := range raw {
		key, value := splitKeyValue(s)
		facts = append(facts, persona.MemoryFact{Key: key, Value: value})
	}
	return facts
}

func parsePreferences(raw []string) []persona.MemoryPreference {
	prefs := make([]persona.MemoryPreference, 0, len(raw))
	for _, s := range raw {
		key, value := splitKeyValue(s)
		prefs = append(prefs, persona.MemoryPreference{Key: key, Value: value})
	}
	return prefs
}

// splitKeyValue reverses the "key: value" formatting memory.Save applies;
// a string with no separator is kept whole as the value with an empty key.
func splitKeyValue(s string) (key, value string) {
	key, value, found := strings.Cut(s, ": ")
	if !found {
		return "", s
	}
	return key, value
}
