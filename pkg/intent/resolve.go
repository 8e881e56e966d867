package intent

import "github.com/astra-ai/kernel/pkg/store"

// dangerousRunModes are the modes an act_hint can force an ACT decision up
// to, regardless of what the run was created with (spec.md §4.6: "upgrading
// to execute_confirm if act_hint.suggested_run_mode demands it").
var runModeRank = map[string]int{
	store.ModePlanOnly:      0,
	store.ModeResearch:       1,
	store.ModeExecuteConfirm: 2,
	store.ModeAutopilotSafe:  3,
}

// ResolveRunMode fills in ResolvedRunMode/ResolvedPurpose on d, given the
// run's current mode and purpose, per spec.md §4.6's post-decision rules.
func ResolveRunMode(d *Decision, currentMode, currentPurpose string) {
	switch d.Intent {
	case IntentAct:
		mode := currentMode
		if mode == "" {
			mode = store.ModePlanOnly
		}
		if d.ActHint != nil && d.ActHint.SuggestedRunMode != "" {
			mode = upgradeRunMode(mode, d.ActHint.SuggestedRunMode)
		}
		d.ResolvedRunMode = mode
		d.ResolvedPurpose = orDefault(currentPurpose, "")

	case IntentChat:
		d.ResolvedRunMode = store.ModePlanOnly
		d.ResolvedPurpose = orDefault(currentPurpose, "chat_only")

	case IntentAsk:
		d.ResolvedRunMode = store.ModePlanOnly
		d.ResolvedPurpose = orDefault(currentPurpose, "clarify")

	default:
		d.ResolvedRunMode = store.ModePlanOnly
		d.ResolvedPurpose = orDefault(currentPurpose, "chat_only")
	}
}

// upgradeRunMode never downgrades: a suggested mode only takes effect when
// it ranks at or above the run's current mode.
func upgradeRunMode(current, suggested string) string {
	currentRank, ok := runModeRank[current]
	if !ok {
		currentRank = 0
	}
	suggestedRank, ok := runModeRank[suggested]
	if !ok {
		return current
	}
	if suggestedRank > currentRank {
		return suggested
	}
	return current
}

func orDefault(v, def string) string {
	if v != "" {
		return v
	}
	return def
}
