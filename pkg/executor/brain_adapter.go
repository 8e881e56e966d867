package executor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/astra-ai/kernel/pkg/brain"
	"github.com/astra-ai/kernel/pkg/bridge"
)

// actionSchema is the compact strict-JSON schema spec.md §4.11 step 3
// describes: the allowed action types and their fields, nothing else.
const actionSchema = `{
  "type": "object",
  "properties": {
    "type": {"enum": ["move_mouse","click","double_click","drag","type","key","scroll","wait","done"]},
    "x": {"type": "integer"},
    "y": {"type": "integer"},
    "end_x": {"type": "integer"},
    "end_y": {"type": "integer"},
    "text": {"type": "string"},
    "keys": {"type": "array", "items": {"type": "string"}},
    "scroll_dx": {"type": "integer"},
    "scroll_dy": {"type": "integer"},
    "ms": {"type": "integer"}
  },
  "required": ["type"]
}`

const proposeSystemPrompt = "You control a computer by proposing one atomic action per step. Respond with JSON only, matching the schema exactly. No prose."

// brainAdapter wraps a brain.Router-shaped dispatcher to satisfy BrainClient,
// translating its Request/Response vocabulary into a single proposed
// bridge.Action.
type brainAdapter struct {
	dispatch func(ctx context.Context, req *brain.Request) *brain.Response
}

// NewBrainAdapter adapts router (typically *brain.Router) into a BrainClient
// for the Computer Executor's propose step.
func NewBrainAdapter(router *brain.Router) BrainClient {
	return &brainAdapter{dispatch: router.Dispatch}
}

func (a *brainAdapter) ProposeAction(ctx context.Context, runID, stepID, prompt string) (bridge.Action, error) {
	resp := a.dispatch(ctx, &brain.Request{
		RunID:   runID,
		StepID:  stepID,
		Purpose: brain.PurposeOther,
		Messages: []brain.Message{
			{Role: "system", Content: proposeSystemPrompt},
			{Role: "user", Content: prompt},
		},
		JSONSchema: actionSchema,
		MaxTokens:  256,
	})
	if !resp.OK {
		err := resp.Err
		if err == nil {
			err = fmt.Errorf("brain dispatch failed: %s", resp.FailureClass)
		}
		return bridge.Action{}, err
	}

	var action bridge.Action
	if err := json.Unmarshal([]byte(resp.Text), &action); err != nil {
		return bridge.Action{}, fmt.Errorf("parse proposed action: %w", err)
	}
	return action, nil
}
