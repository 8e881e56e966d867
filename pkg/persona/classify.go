package persona

import "strings"

func clampIntensity(v float64) float64 {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return round3(v)
}

func round3(v float64) float64 {
	return float64(int(v*1000+0.5)) / 1000
}

// classifyTone ports _classify_tone_type: a cascade of token-class
// thresholds, most specific (crisis) to least (neutral fallback).
func classifyTone(text string) (ToneType, float64, Signals) {
	s := computeSignals(text)
	wordCount := s.WordCount
	if wordCount < 1 {
		wordCount = 1
	}

	switch {
	case s.CrisisCues > 0 && (s.Stress > 0 || s.Profanity > 0):
		intensity := 0.74 + float64(s.CrisisCues)*0.1 + float64(s.Profanity)*0.08 + float64(s.Urgency)*0.05
		return ToneCrisis, clampIntensity(intensity), s

	case s.Profanity > 0 || s.Stress >= 2:
		intensity := 0.62 + float64(s.Profanity)*0.12 + float64(s.Stress)*0.09 + float64(s.Exclamation)*0.03
		return ToneFrustrated, clampIntensity(intensity), s

	case s.Fatigue > 0 && s.Stress > 0:
		intensity := 0.58 + float64(s.Fatigue)*0.08 + float64(s.Stress)*0.06 + float64(s.Ellipsis)*0.03
		return ToneTired, clampIntensity(intensity), s
	}

	dryDensity := float64(s.DryTask+s.TechnicalDensity+boolToInt(s.BrevityRequest)) / float64(wordCount)
	dryHit := (s.DryTask+s.TechnicalDensity) >= 2 || (s.BrevityRequest && wordCount <= 12)
	if dryHit && s.Exclamation == 0 && s.HumorCues == 0 {
		intensity := 0.5 + dryDensity*2.2
		return ToneDry, clampIntensity(intensity), s
	}

	if s.EnergeticMarkers >= 3 || s.PositiveEnergy >= 1 {
		intensity := 0.5 + float64(s.PositiveEnergy)*0.12 + float64(s.Exclamation)*0.05 + float64(s.Uppercase)*0.03
		return ToneEnergetic, clampIntensity(intensity), s
	}

	if s.Uncertainty > 0 && s.ReflectiveCues == 0 {
		intensity := 0.46 + float64(s.Uncertainty)*0.1 + float64(s.Question)*0.03
		return ToneUncertain, clampIntensity(intensity), s
	}

	if s.CreativeCues > 0 {
		intensity := 0.45 + float64(s.CreativeCues)*0.1 + float64(s.PositiveEnergy)*0.04
		return ToneCreative, clampIntensity(intensity), s
	}

	if s.ReflectiveCues > 0 {
		intensity := 0.44 + float64(s.ReflectiveCues)*0.08 + float64(s.Question)*0.03
		return ToneReflective, clampIntensity(intensity), s
	}

	if s.Fatigue > 0 {
		intensity := 0.45 + float64(s.Fatigue)*0.08
		return ToneTired, clampIntensity(intensity), s
	}

	return ToneNeutral, 0.34, s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// mirrorLevel ports _mirror_level.
func mirrorLevel(tone ToneType, intensity float64) MirrorLevel {
	switch {
	case tone == ToneDry:
		return MirrorLow
	case (tone == ToneFrustrated || tone == ToneCrisis || tone == ToneEnergetic) && intensity >= 0.65:
		return MirrorHigh
	default:
		return MirrorMedium
	}
}

// responseShape ports _response_shape.
func responseShape(tone ToneType, s Signals) ResponseShape {
	switch tone {
	case ToneDry:
		return ShapeShortStructured
	case ToneFrustrated, ToneTired:
		return ShapeWarmActionable
	case ToneEnergetic:
		return ShapeHighEnergySteps
	case ToneReflective:
		return ShapeDeepReflective
	case ToneCrisis:
		return ShapeStabilizeThenPlan
	}
	if s.DepthRequest {
		return ShapeDeepReflective
	}
	return ShapeBalancedDirect
}

var emotionalBlockers = []string{
	"не работает", "ничего не работает", "не вывожу", "нет сил",
	"устал", "устала", "выгорел", "выгорание", "сломалось",
}

var memoryRecallTriggers = []string{"напомни", "помни", "вспомни", "remember"}

// fastPathEligible ports _is_simple_query_fast_path: true iff the message is
// short, unemotional, free of action/memory cues, and not urgent. Returns
// the reason it was or wasn't eligible for observability/testing.
func fastPathEligible(text string, tone ToneType, s Signals, sub SubEngineFlags) (bool, string) {
	normalized := strings.TrimSpace(text)
	lowered := normalize(normalized)

	if normalized == "" {
		return false, "empty"
	}
	if tone == ToneFrustrated || tone == ToneCrisis || tone == ToneTired {
		return false, "emotional_tone"
	}
	if s.Fatigue > 0 {
		return false, "fatigue"
	}
	for _, tok := range emotionalBlockers {
		if strings.Contains(lowered, tok) {
			return false, "emotional_keyword"
		}
	}
	if sub.TaskComplex || sub.Workflow || sub.Conversation || sub.Autonomy || sub.DevTask || sub.SelfImprove {
		return false, "advanced_route"
	}
	if len([]rune(normalized)) > 50 {
		return false, "length"
	}
	if s.WordCount > 10 {
		return false, "word_count"
	}
	if s.Profanity > 0 || s.Stress > 0 {
		return false, "stress_or_profanity"
	}
	if s.Urgency > 0 || s.CrisisCues > 0 {
		return false, "urgency_or_crisis"
	}
	for _, tok := range memoryRecallTriggers {
		if strings.Contains(lowered, tok) {
			return false, "memory_recall"
		}
	}
	if s.Question > 1 {
		return false, "multi_question"
	}
	if s.ReflectiveCues > 0 || s.CreativeCues > 0 {
		return false, "deep_dialog"
	}
	return true, "short_dry_simple"
}

// classifySubEngines ports the lightweight is_*_task cue detectors: each
// sub-engine is "enabled" purely by keyword presence, and only controls
// whether its system-prompt block is expanded or kept short — none of these
// sub-engines are implemented as full skills in this kernel.
func classifySubEngines(s Signals) SubEngineFlags {
	return SubEngineFlags{
		TaskComplex:  s.TechnicalDensity >= 2 || s.DryTask >= 2,
		Workflow:     s.WorkflowCues > 0,
		Conversation: s.ConversationCues > 0,
		Autonomy:     s.AutonomyCues > 0,
		DevTask:      s.DevTaskCues > 0,
		SelfImprove:  s.SelfImproveCues > 0,
	}
}
