package memory

import (
	"context"
	"fmt"

	"github.com/astra-ai/kernel/pkg/brain"
	"github.com/astra-ai/kernel/pkg/persona"
)

const interpreterSystemPrompt = `Extract durable facts and style preferences from this conversation turn, if any. Respond with a single JSON object: should_store, facts, preferences, possible_facts, title, summary, confidence. Respond with JSON only, no prose. If nothing is worth storing, set should_store to false and leave the arrays empty.`

// Interpreter calls the Brain Router with a strict JSON schema to derive a
// structured memory Payload from one conversation turn (spec.md §4.7).
type Interpreter struct {
	brain *brain.Router
}

// NewInterpreter constructs an Interpreter.
func NewInterpreter(b *brain.Router) *Interpreter {
	return &Interpreter{brain: b}
}

// Interpret calls the LLM and returns the extracted Payload. Errors (LLM
// dispatch failure, schema validation failure) are returned to the caller,
// which per spec.md §4.7 must catch them and never let them block the
// user-visible response.
func (it *Interpreter) Interpret(ctx context.Context, runID, stepID, userMsg, assistantReply string) (*Payload, error) {
	req := &brain.Request{
		RunID:      runID,
		StepID:     stepID,
		Purpose:    brain.PurposeMemory,
		JSONSchema: interpreterSchema,
		Messages: []brain.Message{
			{Role: "system", Content: interpreterSystemPrompt},
			{Role: "user", Content: userMsg},
			{Role: "assistant", Content: assistantReply},
		},
	}

	resp := it.brain.Dispatch(ctx, req)
	if resp == nil || !resp.OK {
		reason := "llm_dispatch_failed"
		if resp != nil && resp.Err != nil {
			reason = resp.Err.Error()
		}
		return nil, fmt.Errorf("memory interpretation failed: %s", reason)
	}

	payload, err := parseInterpreterResponse(resp.Text)
	if err != nil {
		return nil, err
	}
	return payload, nil
}

// ToneDerivedPayload turns a persona analysis into its own memory payload
// contribution — the recalled primary/supporting mode, stored under the
// persona.mode.* preference keys pkg/persona's recallModes reads back on a
// later turn. This is the other half of the merge law in spec.md §4.7: the
// orchestrator merges this with the LLM interpreter's own payload.
func ToneDerivedPayload(a persona.Analysis) Payload {
	if a.FastPathEligible {
		return Payload{}
	}
	return Payload{
		ShouldStore: true,
		Preferences: []Preference{
			{Key: "persona.mode.primary", Value: string(a.ModePlan.PrimaryMode)},
			{Key: "persona.mode.supporting", Value: string(a.ModePlan.SupportingMode)},
		},
		Confidence: a.Intensity,
	}
}
