package persona

import "fmt"

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// selfReflectionText ports _self_reflection_text: a single-line internal
// planning note threaded into the system prompt so the model composes its
// own phrasing rather than reusing a canned opener.
func selfReflectionText(tone ToneType, intensity float64, shape ResponseShape, mirror MirrorLevel, plan ModePlan, sub SubEngineFlags) string {
	pace := "measured"
	switch mirror {
	case MirrorHigh:
		pace = "fast"
	case MirrorLow:
		pace = "slow"
	}

	return fmt.Sprintf(
		"Self-reflection: tone=%s intensity=%.2f; %s; pace=%s; mode_mix=%s + %s; planning=%s; orchestration=%s; dialog=%s; autonomy=%s; dev_mode=%s; self_improve=%s; compose answer with full improvisation via self-reflection and no canned opener.",
		tone, intensity, shape, pace,
		plan.PrimaryMode, plan.SupportingMode,
		yesNo(sub.TaskComplex), yesNo(sub.Workflow), yesNo(sub.Conversation),
		yesNo(sub.Autonomy), yesNo(sub.DevTask), yesNo(sub.SelfImprove),
	)
}
