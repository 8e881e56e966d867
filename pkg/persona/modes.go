package persona

import (
	"sort"
	"strings"
)

// ModeCatalog is the fixed 24-mode persona facet set (spec.md §4.5: "a fixed
// catalog of 24 modes"), ported verbatim from the original tone engine's
// _MODE_CATALOG.
var ModeCatalog = []Mode{
	"Supportive/Empathetic",
	"Enthusiastic/Motivational",
	"Calm/Analytical",
	"Reflective/Wise",
	"Playful-lite",
	"Curious/Inquisitive",
	"Nurturing/Caring",
	"Practical/Solution",
	"Witty/Humorous-lite",
	"Introspective/Thoughtful",
	"Adventurous/Creative",
	"Loyal/Reliable",
	"Insightful/Perceptive",
	"Gentle/Soothing",
	"Bold/Decisive",
	"Humble/Learning",
	"Optimistic/Hopeful",
	"Empowered/Mentoring",
	"Playful-Deep",
	"Resilient/Steady",
	"Strategic/Architect",
	"Precision/Verifier",
	"Creative-Deep",
	"Steady",
}

// toneModeMap is the primary/supporting mode pair a tone type defaults to,
// ported from _TONE_MODE_MAP.
var toneModeMap = map[ToneType][2]Mode{
	ToneDry:        {"Calm/Analytical", "Practical/Solution"},
	ToneFrustrated: {"Supportive/Empathetic", "Resilient/Steady"},
	ToneTired:      {"Nurturing/Caring", "Gentle/Soothing"},
	ToneEnergetic:  {"Enthusiastic/Motivational", "Bold/Decisive"},
	ToneUncertain:  {"Curious/Inquisitive", "Humble/Learning"},
	ToneReflective: {"Reflective/Wise", "Insightful/Perceptive"},
	ToneCreative:   {"Adventurous/Creative", "Creative-Deep"},
	ToneCrisis:     {"Resilient/Steady", "Loyal/Reliable"},
	ToneNeutral:    {"Loyal/Reliable", "Practical/Solution"},
}

func neutralPair() [2]Mode {
	return toneModeMap[ToneNeutral]
}

// candidateModes ports _candidate_modes: the tone's default pair, plus one
// mode appended per signal booster that fired, deduped, capped at 6.
func candidateModes(tone ToneType, s Signals) []Mode {
	pair, ok := toneModeMap[tone]
	if !ok {
		pair = neutralPair()
	}
	base := []Mode{pair[0], pair[1]}

	if s.HumorCues > 0 {
		base = append(base, "Witty/Humorous-lite")
	}
	if s.Uncertainty > 0 {
		base = append(base, "Curious/Inquisitive")
	}
	if s.TrustLanguage > 0 {
		base = append(base, "Loyal/Reliable")
	}
	if s.CreativeCues > 0 {
		base = append(base, "Adventurous/Creative")
	}
	if s.ReflectiveCues > 0 {
		base = append(base, "Insightful/Perceptive")
	}
	if s.TechnicalDensity > 1 {
		base = append(base, "Precision/Verifier")
	}
	if s.Urgency > 0 {
		base = append(base, "Bold/Decisive")
	}

	seen := make(map[Mode]bool, len(base))
	result := make([]Mode, 0, len(base))
	for _, m := range base {
		if seen[m] {
			continue
		}
		seen[m] = true
		result = append(result, m)
		if len(result) >= 6 {
			break
		}
	}
	return result
}

// selectModes ports _select_modes: resolves primary/supporting from the
// candidate list, inserting the dominant recalled mode at position 1 when
// it isn't already a candidate, and avoiding an identical primary/supporting
// pair when a tone shift was just detected.
func selectModes(tone ToneType, s Signals, recall Recall, modeRecall ModeRecallResult) ModePlan {
	candidates := candidateModes(tone, s)

	if modeRecall.DominantMode != "" && !containsMode(candidates, modeRecall.DominantMode) {
		candidates = insertAt(candidates, 1, modeRecall.DominantMode)
	}

	if len(candidates) == 0 {
		pair := neutralPair()
		candidates = []Mode{pair[0], pair[1]}
	}

	primary := candidates[0]
	supporting := neutralPair()[1]
	if len(candidates) > 1 {
		supporting = candidates[1]
	}

	if recall.DetectedShift && supporting == primary {
		supporting = neutralPair()[1]
	}

	return ModePlan{
		PrimaryMode:    primary,
		SupportingMode: supporting,
		CandidateModes: candidates,
		ModeHistory:    modeRecall.ModeHistory,
		DominantMode:   modeRecall.DominantMode,
	}
}

func containsMode(modes []Mode, m Mode) bool {
	for _, x := range modes {
		if x == m {
			return true
		}
	}
	return false
}

func insertAt(modes []Mode, idx int, m Mode) []Mode {
	if idx > len(modes) {
		idx = len(modes)
	}
	out := make([]Mode, 0, len(modes)+1)
	out = append(out, modes[:idx]...)
	out = append(out, m)
	out = append(out, modes[idx:]...)
	return out
}

// ModeRecallResult is the recalled-mode evidence gathered from stored
// memories and the recent history tail.
type ModeRecallResult struct {
	ModeHistory        []Mode
	DominantMode       Mode
	FromMemory         []Mode
	InferredFromHistory []Mode
}

var modeAlias = buildModeAlias()

func buildModeAlias() map[string]Mode {
	out := make(map[string]Mode, len(ModeCatalog))
	for _, m := range ModeCatalog {
		out[normalizeModeLabel(string(m))] = m
	}
	return out
}

func normalizeModeLabel(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// extractModesFromString ports _extract_modes_from_string: splits on
// separators that aren't also valid within mode labels (mode labels contain
// "/", so "/" is not a separator) and resolves each part through the alias
// table.
func extractModesFromString(value string) []Mode {
	parts := splitAny(value, ",;>|")
	var detected []Mode
	seen := map[Mode]bool{}
	for _, part := range parts {
		if m, ok := modeAlias[normalizeModeLabel(part)]; ok && !seen[m] {
			seen[m] = true
			detected = append(detected, m)
		}
	}
	return detected
}

func splitAny(s, seps string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return strings.ContainsRune(seps, r)
	})
}

// recallModes ports retrieve_modes: collects mode mentions from
// persona.mode.* / style.mode.* preference keys in stored memories, infers
// one mode per recent history-tail message from its own tone classification,
// and reports the dominant (most frequent) mode across both sources.
func recallModes(history []HistoryMessage, memories []MemoryItem) ModeRecallResult {
	var fromMemory []Mode
	for _, mem := range memories {
		for _, pref := range mem.Preferences {
			key := strings.ToLower(strings.TrimSpace(pref.Key))
			switch key {
			case "persona.mode.primary", "persona.mode.supporting", "persona.mode.last",
				"persona.mode.history", "style.mode.primary", "style.mode.supporting":
				fromMemory = append(fromMemory, extractModesFromString(pref.Value)...)
			}
		}
	}

	var inferredFromHistory []Mode
	for _, text := range historyUserTexts(history, 4) {
		tone, _, s := classifyTone(text)
		pair, ok := toneModeMap[tone]
		if !ok {
			pair = neutralPair()
		}
		base := pair[0]
		if s.HumorCues > 0 {
			base = "Witty/Humorous-lite"
		}
		inferredFromHistory = append(inferredFromHistory, base)
	}

	modeHistory := append(append([]Mode{}, lastN(fromMemory, 6)...), lastN(inferredFromHistory, 4)...)
	modeHistory = lastN(modeHistory, 8)

	return ModeRecallResult{
		ModeHistory:         modeHistory,
		DominantMode:        dominantMode(modeHistory),
		FromMemory:          lastN(fromMemory, 6),
		InferredFromHistory: inferredFromHistory,
	}
}

func historyUserTexts(history []HistoryMessage, limit int) []string {
	var out []string
	for _, h := range history {
		if h.Role != "user" {
			continue
		}
		content := strings.TrimSpace(h.Content)
		if content != "" {
			out = append(out, content)
		}
	}
	return lastN(out, limit)
}

func lastN[T any](items []T, n int) []T {
	if len(items) <= n {
		return items
	}
	return items[len(items)-n:]
}

func dominantMode(modes []Mode) Mode {
	if len(modes) == 0 {
		return ""
	}
	counts := make(map[Mode]int, len(modes))
	for _, m := range modes {
		counts[m]++
	}
	type kv struct {
		mode  Mode
		count int
	}
	kvs := make([]kv, 0, len(counts))
	for m, c := range counts {
		kvs = append(kvs, kv{m, c})
	}
	sort.Slice(kvs, func(i, j int) bool {
		if kvs[i].count != kvs[j].count {
			return kvs[i].count > kvs[j].count
		}
		return kvs[i].mode < kvs[j].mode
	})
	return kvs[0].mode
}
