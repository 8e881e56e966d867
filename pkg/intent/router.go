package intent

import (
	"context"
	"fmt"

	"github.com/astra-ai/kernel/pkg/brain"
	"github.com/astra-ai/kernel/pkg/events"
	"github.com/astra-ai/kernel/pkg/persona"
)

// classifierSystemPrompt instructs the LLM to return the closed JSON
// contract intent classification validates against.
const classifierSystemPrompt = `You classify a user's message into one of CHAT, ASK, or ACT for a personal assistant kernel. Respond with a single JSON object matching the required schema: intent, confidence, reasons, questions, needs_clarification, act_hint, plan_hint, memory_item, response_style_hint, user_visible_note. Respond with JSON only, no prose.`

// Router decides CHAT/ASK/ACT for a user message: a fast heuristic path for
// simple chat, and a semantic classifier call for everything else, with
// degrade-to-CHAT resilience when the classifier fails (spec.md §4.6).
type Router struct {
	brain *brain.Router
	bus   *events.Bus
}

// NewRouter constructs a Router. bus may be nil in tests that don't need
// event emission.
func NewRouter(b *brain.Router, bus *events.Bus) *Router {
	return &Router{brain: b, bus: bus}
}

// Decide classifies a single user message, given the conversation history
// and stored memories the fast-path check and the classifier prompt both
// need.
func (r *Router) Decide(ctx context.Context, runID, stepID, userMsg string, history []persona.HistoryMessage, memories []persona.MemoryItem) *Decision {
	analysis := persona.NewAnalyzer().Analyze(userMsg, history, memories)

	if d := fastChatDecision(userMsg, analysis); d != nil {
		r.emitDecided(ctx, runID, d)
		return d
	}

	d := r.semanticDecide(ctx, runID, stepID, userMsg)
	r.emitDecided(ctx, runID, d)
	return d
}

func (r *Router) semanticDecide(ctx context.Context, runID, stepID, userMsg string) *Decision {
	req := &brain.Request{
		RunID:      runID,
		StepID:     stepID,
		Purpose:    brain.PurposeIntentDecide,
		JSONSchema: classifierSchema,
		Messages: []brain.Message{
			{Role: "system", Content: classifierSystemPrompt},
			{Role: "user", Content: userMsg},
		},
	}

	resp := r.brain.Dispatch(ctx, req)
	if resp == nil || !resp.OK {
		return r.degradeToChat("llm_dispatch_failed")
	}

	d, err := parseClassifierResponse(resp.Text)
	if err != nil {
		return r.degradeToChat(err.Error())
	}
	return d
}

// degradeToChat never blocks the kernel on a failed classifier call
// (spec.md §4.6: "The kernel never returns 5xx purely because the
// classifier failed.") — the Brain Router has already recorded the
// underlying llm_request_failed event for the dispatch itself.
func (r *Router) degradeToChat(reason string) *Decision {
	return &Decision{
		Intent:       IntentChat,
		Confidence:   0,
		Reasons:      []string{"semantic_resilience: " + reason},
		DecisionPath: PathSemanticResilience,
	}
}

func (r *Router) emitDecided(ctx context.Context, runID string, d *Decision) {
	if r.bus == nil {
		return
	}
	summary := fmt.Sprintf("intent=%s path=%s confidence=%.2f", d.Intent, d.DecisionPath, d.Confidence)
	_, _ = r.bus.Emit(ctx, runID, events.TypeIntentDecided, summary, map[string]any{
		"intent":               string(d.Intent),
		"confidence":           d.Confidence,
		"decision_path":        string(d.DecisionPath),
		"needs_clarification":  d.NeedsClarification,
	}, "", nil, nil)
}
