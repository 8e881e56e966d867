// Package bridge implements the client side of the Desktop Bridge RPC
// contract (spec.md §4.11): screenshot capture and mouse/keyboard action
// injection against an external Bridge process. spec.md §5 is explicit that
// this is an HTTP call ("HTTP calls to local LLM and desktop bridge block
// with configured timeouts"), so the client follows the same
// net/http-plus-encoding/json shape as pkg/brain's local LLM client rather
// than a generated-stub RPC transport.
package bridge

import "context"

// Observation is one capture() result: a screenshot plus a stable digest of
// its bytes, used by the Computer Executor to detect whether the screen
// changed between an action and its verification (spec.md §4.11 step 6).
type Observation struct {
	ImageBase64 string
	Width       int
	Height      int
	Digest      string
}

// Action is one atomic micro-action proposed by the Brain and about to be
// sent to the bridge for execution (spec.md §4.11 step 3's allowed action
// types: move_mouse, click, double_click, drag, type, key, scroll, wait,
// done).
type Action struct {
	Type string `json:"type"`

	X int `json:"x,omitempty"`
	Y int `json:"y,omitempty"`

	// EndX/EndY are the drag target; X/Y are the drag origin.
	EndX int `json:"end_x,omitempty"`
	EndY int `json:"end_y,omitempty"`

	Text string   `json:"text,omitempty"`
	Keys []string `json:"keys,omitempty"`

	ScrollDX int `json:"scroll_dx,omitempty"`
	ScrollDY int `json:"scroll_dy,omitempty"`

	MS int `json:"ms,omitempty"`
}

// FailureClass names why a bridge call did not succeed, mirroring
// pkg/brain's closed FailureClass vocabulary so the Computer Executor can
// classify bridge errors using the same transient/policy split the Run
// Engine already understands (spec.md §4.10's per-step error policy).
type FailureClass string

const (
	FailureNone        FailureClass = ""
	FailureConnection  FailureClass = "connection_error"
	FailureHTTP        FailureClass = "http_error"
	FailureInvalidJSON FailureClass = "invalid_json"
	FailureTimeout     FailureClass = "timeout"
)

// Retryable reports whether a step should retry a dispatch that failed with
// this class, the same transient/policy split pkg/brain's FailureClass uses.
func (f FailureClass) Retryable() bool {
	switch f {
	case FailureConnection, FailureHTTP, FailureTimeout:
		return true
	default:
		return false
	}
}

// Client is the Computer Executor's view of the Desktop Bridge.
type Client interface {
	// Capture takes a screenshot, downscaled to at most maxWidth and
	// encoded at the given JPEG quality (spec.md §4.11 step 2).
	Capture(ctx context.Context, maxWidth, quality int) (Observation, FailureClass, error)

	// Execute performs one validated, normalized Action (spec.md §4.11
	// step 4). Validation and dry_run short-circuiting happen in the
	// executor; Execute only ever sees actions ready to run.
	Execute(ctx context.Context, action Action) (FailureClass, error)
}
