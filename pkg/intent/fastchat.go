package intent

import "github.com/astra-ai/kernel/pkg/persona"

// fastChatDecision synthesizes a CHAT decision with no semantic call when
// the message is short, non-emotional, and free of action/memory cues
// (spec.md §4.6 step 1). It reuses the persona package's fast-path
// eligibility cascade directly rather than re-deriving the same thresholds,
// since both components describe the identical class of message.
func fastChatDecision(text string, analysis persona.Analysis) *Decision {
	if !analysis.FastPathEligible {
		return nil
	}
	return &Decision{
		Intent:       IntentChat,
		Confidence:   0.9,
		Reasons:      []string{"fast_chat_path: " + analysis.FastPathReason},
		DecisionPath: PathFastChat,
	}
}
