// Package memory implements the Memory Interpreter (spec.md §4.7): a
// strict-JSON-schema LLM extraction over a conversation turn, a merge law
// that combines it with tone-derived payloads, and an asynchronous,
// fire-and-forget save to the user-memory store.
package memory

// Fact is a single extracted (key, value) pair a memory payload carries.
type Fact struct {
	Key   string
	Value string
}

// Preference is a single extracted (key, value) style/behavior preference.
type Preference struct {
	Key   string
	Value string
}

// Payload is one source's contribution to a saved memory — either the LLM
// interpreter's structured extraction or the tone engine's derived hint.
type Payload struct {
	ShouldStore   bool
	Facts         []Fact
	Preferences   []Preference
	PossibleFacts []string
	Title         string
	Summary       string
	Confidence    float64
}

// SaveResult reports the outcome of the asynchronous save for callers that
// want to observe it (tests, synchronous callers); the async path itself
// never blocks on this.
type SaveResult struct {
	Saved bool
	Err   error
}
