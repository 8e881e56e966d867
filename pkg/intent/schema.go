package intent

// classifierSchema is the strict JSON schema the semantic classifier's
// response must satisfy, validated with santhosh-tekuri/jsonschema/v6
// before the payload is trusted (spec.md §4.4's "strict JSON schema"
// requirement, applied here the same way the registry's payload validator
// compiles and checks a schema document before use).
const classifierSchema = `{
  "type": "object",
  "required": ["intent"],
  "properties": {
    "intent": {"type": "string", "enum": ["CHAT", "ASK", "ACT"]},
    "confidence": {"type": "number", "minimum": 0, "maximum": 1},
    "reasons": {"type": "array", "items": {"type": "string"}},
    "questions": {"type": "array", "items": {"type": "string"}},
    "needs_clarification": {"type": "boolean"},
    "act_hint": {
      "type": "object",
      "properties": {
        "suggested_run_mode": {"type": "string"},
        "danger_flags": {"type": "array", "items": {"type": "string"}},
        "target": {"type": "string"}
      }
    },
    "plan_hint": {"type": "array", "items": {"type": "string"}},
    "memory_item": {
      "type": "object",
      "properties": {
        "key": {"type": "string"},
        "value": {"type": "string"},
        "confidence": {"type": "number", "minimum": 0, "maximum": 1}
      }
    },
    "response_style_hint": {"type": "string"},
    "user_visible_note": {"type": "string"}
  }
}`
