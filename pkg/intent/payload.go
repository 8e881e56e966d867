package intent

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// classifierCompiler is built once: compiling the schema on every call would
// re-parse the same document for every message.
var classifierCompiler = mustCompileClassifierSchema()

func mustCompileClassifierSchema() *jsonschema.Schema {
	var doc any
	if err := json.Unmarshal([]byte(classifierSchema), &doc); err != nil {
		panic(fmt.Sprintf("intent: invalid classifier schema: %v", err))
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("intent-classifier.json", doc); err != nil {
		panic(fmt.Sprintf("intent: add classifier schema resource: %v", err))
	}
	schema, err := c.Compile("intent-classifier.json")
	if err != nil {
		panic(fmt.Sprintf("intent: compile classifier schema: %v", err))
	}
	return schema
}

type classifierPayload struct {
	Intent              string          `json:"intent"`
	Confidence          float64         `json:"confidence"`
	Reasons             []string        `json:"reasons"`
	Questions           []string        `json:"questions"`
	NeedsClarification  bool            `json:"needs_clarification"`
	ActHint             *actHintPayload `json:"act_hint"`
	PlanHint            []string        `json:"plan_hint"`
	MemoryItem          *memoryItemPayload `json:"memory_item"`
	ResponseStyleHint   string          `json:"response_style_hint"`
	UserVisibleNote     string          `json:"user_visible_note"`
}

type actHintPayload struct {
	SuggestedRunMode string   `json:"suggested_run_mode"`
	DangerFlags      []string `json:"danger_flags"`
	Target           string   `json:"target"`
}

type memoryItemPayload struct {
	Key        string  `json:"key"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

// parseClassifierResponse validates raw against the closed classifier
// schema and decodes it into a Decision. Any validation or decode failure is
// returned to the caller, which is expected to degrade to CHAT.
func parseClassifierResponse(raw string) (*Decision, error) {
	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("unmarshal classifier response: %w", err)
	}
	if err := classifierCompiler.Validate(doc); err != nil {
		return nil, fmt.Errorf("validate classifier response: %w", err)
	}

	var payload classifierPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("decode classifier response: %w", err)
	}

	d := &Decision{
		Intent:             Intent(payload.Intent),
		Confidence:         payload.Confidence,
		Reasons:            payload.Reasons,
		Questions:          payload.Questions,
		NeedsClarification: payload.NeedsClarification,
		PlanHint:           payload.PlanHint,
		ResponseStyleHint:  payload.ResponseStyleHint,
		UserVisibleNote:    payload.UserVisibleNote,
		DecisionPath:       PathSemanticDecide,
	}
	if payload.ActHint != nil {
		d.ActHint = &ActHint{
			SuggestedRunMode: payload.ActHint.SuggestedRunMode,
			DangerFlags:      payload.ActHint.DangerFlags,
			Target:           payload.ActHint.Target,
		}
	}
	if payload.MemoryItem != nil && (payload.MemoryItem.Key != "" || payload.MemoryItem.Value != "") {
		d.MemoryItem = &MemoryItemHint{
			Key:        payload.MemoryItem.Key,
			Value:      payload.MemoryItem.Value,
			Confidence: payload.MemoryItem.Confidence,
		}
	}
	return d, nil
}
