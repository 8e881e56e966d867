// Package chat implements the Chat Loop (spec.md §4.8): system prompt
// assembly, an LLMRequest built for the Brain Router, a soft-retry guard
// that detects and remediates five classes of bad draft, and the optional
// web-research fallback trigger for uncertain, informational answers.
package chat

import "github.com/astra-ai/kernel/pkg/persona"

// GuardReason names why a draft answer was rejected by the soft-retry
// guard (spec.md §4.8).
type GuardReason string

const (
	GuardNone                  GuardReason = ""
	GuardUnwantedPrefix        GuardReason = "unwanted_prefix"
	GuardRULanguageMismatch    GuardReason = "ru_language_mismatch"
	GuardOffTopic              GuardReason = "off_topic"
	GuardFirstPersonNarrative  GuardReason = "first_person_narrative"
	GuardTruncated             GuardReason = "truncated"
)

// Result is the Chat Loop's full output for one turn.
type Result struct {
	Text      string
	Provider  string
	Model     string
	LatencyMS int64
	Degraded  bool
	GuardHits []GuardReason
}

// Turn is the minimal input the Chat Loop needs for one user message.
type Turn struct {
	RunID          string
	StepID         string
	UserMessage    string
	History        []persona.HistoryMessage
	Memories       []persona.MemoryItem
	BaseSystemText string
}
