package research

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/astra-ai/kernel/pkg/brain"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

const judgeSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["decision", "score"],
  "properties": {
    "decision": {"type": "string"},
    "score": {"type": "number"},
    "why": {"type": "string"},
    "next_query": {"type": ["string", "null"]},
    "missing_topics": {"type": "array", "items": {"type": "string"}},
    "need_sources": {"type": "integer"},
    "used_urls": {"type": "array", "items": {"type": "string"}}
  },
  "additionalProperties": true
}`

var judgeCompiler = mustCompileJudgeSchema()

func mustCompileJudgeSchema() *jsonschema.Schema {
	var doc any
	if err := json.Unmarshal([]byte(judgeSchema), &doc); err != nil {
		panic(fmt.Sprintf("research: invalid judge schema: %v", err))
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("judge.json", doc); err != nil {
		panic(fmt.Sprintf("research: judge schema resource: %v", err))
	}
	schema, err := c.Compile("judge.json")
	if err != nil {
		panic(fmt.Sprintf("research: judge schema compile: %v", err))
	}
	return schema
}

type judgePayload struct {
	Decision      string   `json:"decision"`
	Score         float64  `json:"score"`
	Why           string   `json:"why"`
	NextQuery     *string  `json:"next_query"`
	MissingTopics []string `json:"missing_topics"`
	NeedSources   int      `json:"need_sources"`
	UsedURLs      []string `json:"used_urls"`
}

const judgeSystemPrompt = `You judge whether gathered web sources are sufficient to answer a query.
Respond with a single strict JSON object matching the required schema, with no commentary outside the JSON.`

// judgeResearch asks the Brain Router to score the current round's corpus
// and returns a strict JSON verdict plus the raw failure reason (empty on
// success) so the caller can build the judge_fallback:<reason> assumption
// (spec.md §4.9 step 4).
func judgeResearch(ctx context.Context, b *brain.Router, runID, stepID, query string, pages []Page) (JudgeVerdict, string) {
	corpus := ""
	for _, p := range pages {
		corpus += fmt.Sprintf("URL: %s\nTitle: %s\n%s\n\n", p.URL, p.Title, p.ExtractedText)
	}

	req := &brain.Request{
		RunID:      runID,
		StepID:     stepID,
		Purpose:    brain.PurposeResearch,
		JSONSchema: judgeSchema,
		Messages: []brain.Message{
			{Role: "system", Content: judgeSystemPrompt},
			{Role: "user", Content: fmt.Sprintf("Query: %s\n\nSources:\n%s", query, corpus)},
		},
	}
	resp := b.Dispatch(ctx, req)
	if resp == nil || !resp.OK {
		return fallbackVerdict(), "invalid_llm_json"
	}

	var doc any
	if err := json.Unmarshal([]byte(resp.Text), &doc); err != nil {
		return fallbackVerdict(), "invalid_llm_json"
	}
	if err := judgeCompiler.Validate(doc); err != nil {
		return fallbackVerdict(), "invalid_llm_json"
	}

	var payload judgePayload
	if err := json.Unmarshal([]byte(resp.Text), &payload); err != nil {
		return fallbackVerdict(), "invalid_llm_json"
	}

	if payload.Decision != "ENOUGH" && payload.Decision != "NOT_ENOUGH" {
		reason := "invalid_decision:empty"
		if payload.Decision != "" {
			reason = "invalid_decision:" + payload.Decision
		}
		return fallbackVerdict(), reason
	}
	if payload.Score < 0 || payload.Score > 1 {
		return fallbackVerdict(), fmt.Sprintf("invalid_score:%v", trimFloat(payload.Score))
	}

	v := JudgeVerdict{
		Decision:      payload.Decision,
		Score:         payload.Score,
		Why:           payload.Why,
		MissingTopics: payload.MissingTopics,
		NeedSources:   payload.NeedSources,
		UsedURLs:      payload.UsedURLs,
	}
	if payload.NextQuery != nil {
		v.NextQuery = *payload.NextQuery
	}
	return v, ""
}

// fallbackVerdict is the judge_fallback verdict: treat as ENOUGH with a low
// score so the round terminates rather than looping on a broken judge.
func fallbackVerdict() JudgeVerdict {
	return JudgeVerdict{Decision: "ENOUGH", Score: 0.35}
}

func trimFloat(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%v", f)
}
