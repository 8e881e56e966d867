package memory

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

var interpreterCompiler = mustCompileInterpreterSchema()

func mustCompileInterpreterSchema() *jsonschema.Schema {
	var doc any
	if err := json.Unmarshal([]byte(interpreterSchema), &doc); err != nil {
		panic(fmt.Sprintf("memory: invalid interpreter schema: %v", err))
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("memory-interpreter.json", doc); err != nil {
		panic(fmt.Sprintf("memory: add interpreter schema resource: %v", err))
	}
	schema, err := c.Compile("memory-interpreter.json")
	if err != nil {
		panic(fmt.Sprintf("memory: compile interpreter schema: %v", err))
	}
	return schema
}

type interpreterResponse struct {
	ShouldStore   bool             `json:"should_store"`
	Facts         []kvPayload      `json:"facts"`
	Preferences   []kvPayload      `json:"preferences"`
	PossibleFacts []string         `json:"possible_facts"`
	Title         string           `json:"title"`
	Summary       string           `json:"summary"`
	Confidence    float64          `json:"confidence"`
}

type kvPayload struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// parseInterpreterResponse validates raw against the closed interpreter
// schema and decodes it into a Payload.
func parseInterpreterResponse(raw string) (*Payload, error) {
	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("unmarshal interpreter response: %w", err)
	}
	if err := interpreterCompiler.Validate(doc); err != nil {
		return nil, fmt.Errorf("validate interpreter response: %w", err)
	}

	var resp interpreterResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, fmt.Errorf("decode interpreter response: %w", err)
	}

	p := &Payload{
		ShouldStore:   resp.ShouldStore,
		PossibleFacts: resp.PossibleFacts,
		Title:         resp.Title,
		Summary:       resp.Summary,
		Confidence:    resp.Confidence,
	}
	for _, f := range resp.Facts {
		p.Facts = append(p.Facts, Fact{Key: f.Key, Value: f.Value})
	}
	for _, pr := range resp.Preferences {
		p.Preferences = append(p.Preferences, Preference{Key: pr.Key, Value: pr.Value})
	}
	return p, nil
}
