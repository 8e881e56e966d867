package planner

import "regexp"

// explicitMemorySaveTriggerRe ports the original assistant's
// _FAST_CHAT_MEMORY_RE: the set of explicit "remember this" / "my name is"
// phrasings that earn a query a MEMORY_COMMIT step (spec.md §4.10:
// "MEMORY_COMMIT is emitted only when the query contains explicit
// memory-save triggers").
var explicitMemorySaveTriggerRe = regexp.MustCompile(`(?i)\b(` +
	`запомни|сохрани\s+в\s+память|добавь\s+в\s+память|меня\s+\S+\s+зовут|меня\s+зовут|мо[её]\s+имя|` +
	`называй\s+меня|предпочитаю|remember\s+this|my\s+name\s+is|save\s+to\s+memory` +
	`)\b`)

// hasExplicitMemorySaveTrigger reports whether text contains one of the
// phrasings that earn a MEMORY_COMMIT step.
func hasExplicitMemorySaveTrigger(text string) bool {
	return explicitMemorySaveTriggerRe.MatchString(text)
}
