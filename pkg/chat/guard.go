package chat

import (
	"regexp"
	"strings"
	"unicode"
)

var unwantedPrefixPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^\s*(i'm sorry,? but i)`),
	regexp.MustCompile(`(?i)^\s*(as an ai)`),
	regexp.MustCompile(`(?i)^\s*(i cannot|i can't) (help|assist|provide)`),
	regexp.MustCompile(`(?i)^\s*извините,? но я`),
	regexp.MustCompile(`(?i)^\s*я (являюсь|всего лишь) (языковой моделью|ии|искусственным интеллектом)`),
	regexp.MustCompile(`(?i)^\s*как (языковая модель|ии)`),
}

// hasUnwantedPrefix ports the "draft begins with refusal/meta patterns"
// guard.
func hasUnwantedPrefix(draft string) bool {
	d := strings.TrimSpace(draft)
	for _, p := range unwantedPrefixPatterns {
		if p.MatchString(d) {
			return true
		}
	}
	return false
}

func containsCyrillic(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Cyrillic, r) {
			return true
		}
	}
	return false
}

// ruLanguageMismatch ports "user text contains Cyrillic but draft does
// not".
func ruLanguageMismatch(userText, draft string) bool {
	return containsCyrillic(userText) && strings.TrimSpace(draft) != "" && !containsCyrillic(draft)
}

var stopwords = map[string]bool{
	"и": true, "в": true, "на": true, "с": true, "по": true, "для": true,
	"что": true, "как": true, "это": true, "a": true, "the": true, "is": true,
	"to": true, "of": true, "and": true, "in": true, "for": true, "me": true,
	"мне": true, "ты": true, "я": true, "он": true, "она": true, "они": true,
	"про": true, "или": true, "а": true, "но": true, "же": true,
}

var focusTokenRe = regexp.MustCompile(`[\p{L}\p{N}_-]+`)

// focusTokens extracts the query's anchor words: lowercase tokens at least
// 4 runes long, excluding stopwords.
func focusTokens(text string) []string {
	var out []string
	for _, tok := range focusTokenRe.FindAllString(strings.ToLower(text), -1) {
		if len([]rune(tok)) < 4 || stopwords[tok] {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// criticalTokens are the "long" focus tokens (7+ runes) that carry more
// topical weight on their own.
func criticalTokens(tokens []string) []string {
	var out []string
	for _, t := range tokens {
		if len([]rune(t)) >= 7 {
			out = append(out, t)
		}
	}
	return out
}

func overlapCount(tokens []string, haystack string) int {
	lowered := strings.ToLower(haystack)
	count := 0
	for _, t := range tokens {
		if strings.Contains(lowered, t) {
			count++
		}
	}
	return count
}

// offTopic ports the chat off-topic heuristic: distinct rules for messages
// with >=3 anchor focus tokens (require at least 2 to reappear in the
// draft) and for messages with >=2 critical (long) focus tokens (require at
// least 1 to reappear). Short queries with neither signal are never flagged
// off-topic — there isn't enough anchor material to judge against.
func offTopic(userText, draft string) bool {
	tokens := focusTokens(userText)
	critical := criticalTokens(tokens)

	if len(tokens) >= 3 {
		if overlapCount(tokens, draft) < 2 {
			return true
		}
	}
	if len(critical) >= 2 {
		if overlapCount(critical, draft) < 1 {
			return true
		}
	}
	return false
}

var firstPersonNarrativeRe = regexp.MustCompile(`(?i)\b(я (пошёл|пошла|делал|делала|помню|вспоминаю|почувствовал|почувствовала)|однажды я|со мной случилось|в моей жизни)\b`)

// firstPersonNarrative ports "draft contains first-person narrative Russian
// when the user did not".
func firstPersonNarrative(userText, draft string) bool {
	return firstPersonNarrativeRe.MatchString(draft) && !firstPersonNarrativeRe.MatchString(userText)
}

var truncationTrailingChars = []string{"...", "—", "-", ",", ";", ":", "(", "[", "{"}

// truncated ports "ends with ... — - , ; : ( [ { or has unbalanced triple
// backticks".
func truncated(draft string) bool {
	trimmed := strings.TrimRight(draft, " \n\t")
	if trimmed == "" {
		return false
	}
	for _, suffix := range truncationTrailingChars {
		if strings.HasSuffix(trimmed, suffix) {
			return true
		}
	}
	if strings.Count(draft, "```")%2 != 0 {
		return true
	}
	return false
}

var uncertainRe = regexp.MustCompile(`(?i)(я не уверен|не уверена|затрудняюсь ответить|i'?m not sure|i don'?t know|недостаточно информации|not enough information)`)

// looksUncertain ports "the answer looks uncertain (regex or empty)".
func looksUncertain(draft string) bool {
	return strings.TrimSpace(draft) == "" || uncertainRe.MatchString(draft)
}

var interrogativeTokens = []string{
	"что", "как", "почему", "зачем", "когда", "где", "кто", "сколько", "какой", "какая", "какие",
	"what", "how", "why", "when", "where", "who", "which",
}

// looksInformational ports "the query looks informational (question mark,
// interrogative tokens, or >=7 words)".
func looksInformational(userText string) bool {
	if strings.Contains(userText, "?") {
		return true
	}
	lowered := strings.ToLower(userText)
	for _, tok := range interrogativeTokens {
		if strings.Contains(lowered, tok) {
			return true
		}
	}
	return len(focusTokenRe.FindAllString(userText, -1)) >= 7
}

// classifyGuards runs every guard detector against one draft, in the order
// spec.md §4.8 lists them, and returns every reason that fired.
func classifyGuards(userText, draft string) []GuardReason {
	var hits []GuardReason
	if hasUnwantedPrefix(draft) {
		hits = append(hits, GuardUnwantedPrefix)
	}
	if ruLanguageMismatch(userText, draft) {
		hits = append(hits, GuardRULanguageMismatch)
	}
	if offTopic(userText, draft) {
		hits = append(hits, GuardOffTopic)
	}
	if firstPersonNarrative(userText, draft) {
		hits = append(hits, GuardFirstPersonNarrative)
	}
	if truncated(draft) {
		hits = append(hits, GuardTruncated)
	}
	return hits
}
