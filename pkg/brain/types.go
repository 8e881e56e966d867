// Package brain implements the LLM Brain Router (spec.md §4.4): a priority
// queue that serializes calls to the local LLM server, a model-tier
// selector, a content-addressed response cache, and per-run/per-step budget
// accounting.
package brain

// Purpose classifies why a request is being made. It drives both queue
// priority and, combined with PreferredKind, model tier selection.
type Purpose string

const (
	PurposeChatResponse Purpose = "chat_response"
	PurposeIntentDecide Purpose = "intent_decide"
	PurposePlanning     Purpose = "planning"
	PurposeMemory       Purpose = "memory_interpretation"
	PurposeResearch     Purpose = "research"
	PurposeOther        Purpose = "other"
)

// PreferredKind lets a caller force a model family regardless of the
// purpose-driven tiering heuristic (spec.md §4.4: "preferred_model_kind=code").
type PreferredKind string

const (
	PreferredKindNone PreferredKind = ""
	PreferredKindChat PreferredKind = "chat"
	PreferredKindCode PreferredKind = "code"
)

// ModelTier is the resolved model family for a single request.
type ModelTier string

const (
	TierFast    ModelTier = "fast"
	TierBase    ModelTier = "base"
	TierComplex ModelTier = "complex"
	TierCode    ModelTier = "code"
)

// Message is a single chat-style turn sent to the LLM server.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request describes one call to be dispatched through the Brain Router.
type Request struct {
	RunID    string
	StepID   string
	Purpose  Purpose
	Preferred PreferredKind

	Messages      []Message
	Temperature   float64
	TopP          float64
	RepeatPenalty float64
	MaxTokens     int
	JSONSchema    string // non-empty when the caller requires strict-JSON output
	Tools         []string
}

// FailureClass names why a dispatch did not produce a usable response
// (spec.md §4.4, closed set).
type FailureClass string

const (
	FailureNone            FailureClass = ""
	FailureConnection      FailureClass = "connection_error"
	FailureHTTP            FailureClass = "http_error"
	FailureInvalidJSON     FailureClass = "invalid_json"
	FailureModelNotFound   FailureClass = "model_not_found"
	FailureEmptyResponse   FailureClass = "empty_response"
	FailureBudgetExceeded  FailureClass = "budget_exceeded"
	FailureUnhandledError  FailureClass = "unhandled_error"
)

// retryable reports whether the fallback-to-base-model path applies to this
// failure class (spec.md §4.4: "model_not_found | connection_error |
// http_error | invalid_json").
func (f FailureClass) retryable() bool {
	switch f {
	case FailureModelNotFound, FailureConnection, FailureHTTP, FailureInvalidJSON:
		return true
	default:
		return false
	}
}

// Usage reports token accounting returned by the LLM server, when available.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
}

// Response is the result of a dispatched request.
type Response struct {
	OK           bool
	Text         string
	Model        string
	Tier         ModelTier
	CacheHit     bool
	LatencyMS    int64
	Usage        Usage
	FailureClass FailureClass
	HTTPStatus   int
	Err          error `json:"-"`
}
