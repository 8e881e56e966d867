package memory

import "strings"

// Merge combines the Memory Interpreter's LLM-derived payload with the tone
// engine's derived payload, following spec.md §4.7's merge law: fact and
// preference lists dedup by (key, value) case-insensitive, confidence is
// the max of both sources, and summaries concatenate up to 320 chars.
func Merge(interpreted, toneDerived Payload) Payload {
	merged := Payload{
		ShouldStore:   interpreted.ShouldStore || toneDerived.ShouldStore,
		Facts:         dedupFacts(interpreted.Facts, toneDerived.Facts),
		Preferences:   dedupPreferences(interpreted.Preferences, toneDerived.Preferences),
		PossibleFacts: dedupStrings(interpreted.PossibleFacts, toneDerived.PossibleFacts),
		Title:         firstNonEmpty(interpreted.Title, toneDerived.Title),
		Summary:       concatSummary(interpreted.Summary, toneDerived.Summary),
		Confidence:    maxFloat(interpreted.Confidence, toneDerived.Confidence),
	}
	return merged
}

const maxSummaryChars = 320

func concatSummary(a, b string) string {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	switch {
	case a == "":
		return truncateRunes(b, maxSummaryChars)
	case b == "":
		return truncateRunes(a, maxSummaryChars)
	default:
		return truncateRunes(a+" "+b, maxSummaryChars)
	}
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return a
	}
	return b
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func factKey(key, value string) string {
	return strings.ToLower(strings.TrimSpace(key)) + "\x00" + strings.ToLower(strings.TrimSpace(value))
}

func dedupFacts(a, b []Fact) []Fact {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]Fact, 0, len(a)+len(b))
	for _, f := range append(append([]Fact{}, a...), b...) {
		k := factKey(f.Key, f.Value)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, f)
	}
	return out
}

func dedupPreferences(a, b []Preference) []Preference {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]Preference, 0, len(a)+len(b))
	for _, p := range append(append([]Preference{}, a...), b...) {
		k := factKey(p.Key, p.Value)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, p)
	}
	return out
}

func dedupStrings(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range append(append([]string{}, a...), b...) {
		k := strings.ToLower(strings.TrimSpace(s))
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, s)
	}
	return out
}
