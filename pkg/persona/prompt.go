package persona

import (
	"fmt"
	"strings"
)

// truncateChars cuts s to at most n runes, appending "..." when it had to
// cut, mirroring the original profile-block truncation convention.
func truncateChars(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}

// FormatModeSection builds the persona-mode block: primary/supporting mode,
// response shape, and mirror level, bounded to capChars.
func FormatModeSection(plan ModePlan, shape ResponseShape, mirror MirrorLevel, capChars int) string {
	var sb strings.Builder
	sb.WriteString("## Persona Mode\n")
	sb.WriteString("**Primary:** ")
	sb.WriteString(string(plan.PrimaryMode))
	sb.WriteString("  \n**Supporting:** ")
	sb.WriteString(string(plan.SupportingMode))
	sb.WriteString("  \n**Response shape:** ")
	sb.WriteString(string(shape))
	sb.WriteString("  \n**Mirror level:** ")
	sb.WriteString(string(mirror))
	sb.WriteString("\n")
	return truncateChars(sb.String(), capChars)
}

// FormatFastPathSection builds the compact runtime block used when a
// message qualified for the fast path — short by design, no mode-history or
// sub-engine detail.
func FormatFastPathSection(tone ToneType, reason string) string {
	var sb strings.Builder
	sb.WriteString("## Fast Path Runtime\n")
	sb.WriteString("Simple query — respond directly and briefly. tone=")
	sb.WriteString(string(tone))
	sb.WriteString(" reason=")
	sb.WriteString(reason)
	sb.WriteString("\n")
	return sb.String()
}

// FormatSubEngineSection builds the optional sub-engine cue block. Each cue
// only expands its own line when detected; the block stays short when no
// cues fired, matching spec.md §4.5's "kept short when disabled".
func FormatSubEngineSection(sub SubEngineFlags, capChars int) string {
	if !sub.TaskComplex && !sub.Workflow && !sub.Conversation && !sub.Autonomy && !sub.DevTask && !sub.SelfImprove {
		return "## Sub-engine Cues\nNone detected.\n"
	}

	var sb strings.Builder
	sb.WriteString("## Sub-engine Cues\n")
	if sub.TaskComplex {
		sb.WriteString("- Task complexity cues detected; consider a more structured, multi-part answer.\n")
	}
	if sub.Workflow {
		sb.WriteString("- Workflow/pipeline cues detected; consider describing steps as a sequence with dependencies.\n")
	}
	if sub.Conversation {
		sb.WriteString("- Open-ended conversational cues detected; favor a dialog tone over a terse answer.\n")
	}
	if sub.Autonomy {
		sb.WriteString("- Autonomy cues detected; clarify what runs unattended versus what needs confirmation.\n")
	}
	if sub.DevTask {
		sb.WriteString("- Development task cues detected; favor concrete code/module-level detail.\n")
	}
	if sub.SelfImprove {
		sb.WriteString("- Self-improvement cues detected; frame the answer around iterating on prior output.\n")
	}
	return truncateChars(sb.String(), capChars)
}

// FormatProfileSection builds the recalled-profile block from stored
// memories: user name (if known), facts, and style preferences. Grounded on
// the retrieved chat-context builder's profile block — bounded to
// maxItems facts/preferences and capChars total, each line itself capped to
// keep one runaway memory from crowding out the rest.
func FormatProfileSection(memories []MemoryItem, maxItems, capChars int) string {
	if len(memories) == 0 {
		return "## User Profile\nNo stored profile information.\n"
	}

	name := extractUserName(memories)
	lines := make([]string, 0, maxItems)
	for _, mem := range memories {
		for _, f := range mem.Facts {
			if len(lines) >= maxItems {
				break
			}
			if f.Key == "" && f.Value == "" {
				continue
			}
			lines = append(lines, truncateChars(fmt.Sprintf("%s: %s", f.Key, f.Value), 220))
		}
	}
	for _, mem := range memories {
		for _, p := range mem.Preferences {
			if len(lines) >= maxItems {
				break
			}
			hint := styleHintFromPreference(p.Key, p.Value)
			if hint != "" {
				lines = append(lines, hint)
			}
		}
	}

	var sb strings.Builder
	sb.WriteString("## User Profile\n")
	if name != "" {
		sb.WriteString("**Name:** ")
		sb.WriteString(name)
		sb.WriteString("\n")
	}
	if len(lines) == 0 {
		sb.WriteString("No stored profile information.\n")
	} else {
		for _, l := range lines {
			sb.WriteString("- ")
			sb.WriteString(l)
			sb.WriteString("\n")
		}
	}
	return truncateChars(sb.String(), capChars)
}

var shortBrevityValues = map[string]bool{"short": true, "brief": true, "concise": true, "minimal": true}
var strictToneValues = map[string]bool{"strict": true, "formal": true, "professional": true}
var friendlyToneValues = map[string]bool{"friendly": true, "casual": true, "warm": true}
var supportiveDirectToneValues = map[string]bool{"supportive_direct": true, "direct_supportive": true}
var calmSupportiveToneValues = map[string]bool{"calm_supportive": true, "calm": true}
var energeticDirectToneValues = map[string]bool{"energetic_direct": true, "energetic": true}

// styleHintFromPreference ports style_hint_from_preference: maps a stored
// style preference key/value into a short human-readable hint line, or ""
// when the key/value pair carries no recognized style signal.
func styleHintFromPreference(key, value string) string {
	k := strings.ToLower(strings.TrimSpace(key))
	v := strings.ToLower(strings.TrimSpace(value))

	switch k {
	case "brevity", "style.brevity":
		if shortBrevityValues[v] {
			return "Prefers short, to-the-point answers."
		}
	case "tone", "style.tone":
		switch {
		case strictToneValues[v]:
			return "Prefers a strict, formal tone."
		case friendlyToneValues[v]:
			return "Prefers a friendly, casual tone."
		case supportiveDirectToneValues[v]:
			return "Prefers a supportive but direct tone."
		case calmSupportiveToneValues[v]:
			return "Prefers a calm, supportive tone."
		case energeticDirectToneValues[v]:
			return "Prefers an energetic, direct tone."
		}
	case "mirror_level", "style.mirror_level":
		return "Prefers mirror level: " + v + "."
	case "addressing", "style.addressing":
		return "Prefers to be addressed as: " + v + "."
	case "response.format", "style.response.format":
		return "Prefers response format: " + v + "."
	}
	return ""
}

var nameFactKeys = map[string]bool{"user_name": true, "name": true, "profile.name": true}

func extractUserName(memories []MemoryItem) string {
	for _, mem := range memories {
		for _, f := range mem.Facts {
			if nameFactKeys[strings.ToLower(strings.TrimSpace(f.Key))] && f.Value != "" {
				return f.Value
			}
		}
	}
	return ""
}

// BuildSystemPrompt assembles the full dynamic system prompt from bounded
// blocks — mode/shape, optional sub-engine cues, recalled profile, and the
// self-reflection line — then truncates the whole thing to totalCapChars so
// one oversized block can never starve the others, mirroring the teacher's
// block-composition builders which always degrade to a fallback line rather
// than fail.
func BuildSystemPrompt(baseInstructions string, analysis Analysis, memories []MemoryItem, personaBlockCap, totalCapChars int) string {
	var sb strings.Builder
	sb.WriteString(strings.TrimRight(baseInstructions, "\n"))
	sb.WriteString("\n\n")

	if analysis.FastPathEligible {
		sb.WriteString(FormatFastPathSection(analysis.Type, analysis.FastPathReason))
	} else {
		sb.WriteString(FormatModeSection(analysis.ModePlan, analysis.ResponseShape, analysis.MirrorLevel, personaBlockCap))
		sb.WriteString("\n")
		sb.WriteString(FormatSubEngineSection(analysis.SubEngines, personaBlockCap))
		sb.WriteString("\n")
		sb.WriteString(FormatProfileSection(memories, 12, personaBlockCap))
	}

	sb.WriteString("\n")
	sb.WriteString(analysis.SelfReflection)
	sb.WriteString("\n")

	return truncateChars(sb.String(), totalCapChars)
}
