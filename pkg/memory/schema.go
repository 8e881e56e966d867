package memory

// interpreterSchema is the strict JSON schema the Memory Interpreter's LLM
// call must satisfy (spec.md §4.7), validated with
// santhosh-tekuri/jsonschema/v6 the same way the Intent Router validates
// its classifier payload — see pkg/intent/payload.go.
const interpreterSchema = `{
  "type": "object",
  "required": ["should_store"],
  "properties": {
    "should_store": {"type": "boolean"},
    "facts": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "key": {"type": "string"},
          "value": {"type": "string"}
        }
      }
    },
    "preferences": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "key": {"type": "string"},
          "value": {"type": "string"}
        }
      }
    },
    "possible_facts": {"type": "array", "items": {"type": "string"}},
    "title": {"type": "string"},
    "summary": {"type": "string"},
    "confidence": {"type": "number", "minimum": 0, "maximum": 1}
  }
}`
