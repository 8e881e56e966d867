// Package api is the kernel's HTTP surface (spec.md §6): authenticated
// route handlers wired over Echo v5, an SSE event stream, and the
// bearer-token Guard. Handlers are thin — nearly all domain logic already
// lives in pkg/intent, pkg/runengine, pkg/chat, pkg/memory, and
// pkg/snapshot; this package's job is request parsing, auth, and response
// shaping.
package api

import (
	"github.com/astra-ai/kernel/pkg/chat"
	"github.com/astra-ai/kernel/pkg/events"
	"github.com/astra-ai/kernel/pkg/intent"
	"github.com/astra-ai/kernel/pkg/runengine"
	"github.com/astra-ai/kernel/pkg/snapshot"
	"github.com/astra-ai/kernel/pkg/store"
)

// Deps bundles every component the API surface dispatches into. Server
// holds one and wires it into every handler.
type Deps struct {
	Store     store.Store
	Bus       *events.Bus
	Auth      *Guard
	Engine    *runengine.Engine
	Intent    *intent.Router
	Chat      *chat.Loop
	Snapshots *snapshot.Builder
	Vault     *Vault
}

// runCreateRequest is the body of POST /api/v1/projects/{id}/runs.
type runCreateRequest struct {
	QueryText   string  `json:"query_text"`
	Mode        string  `json:"mode"`
	ParentRunID *string `json:"parent_run_id,omitempty"`
	Purpose     string  `json:"purpose,omitempty"`
}

// runCreateResponse is the polymorphic response shape spec.md §6 names for
// run creation: the fields actually populated depend on kind.
type runCreateResponse struct {
	Kind         string            `json:"kind"`
	Intent       *intent.Decision  `json:"intent"`
	Run          *store.Run        `json:"run"`
	ChatResponse string            `json:"chat_response,omitempty"`
	Questions    []string          `json:"questions,omitempty"`
	Plan         []*store.PlanStep `json:"plan,omitempty"`
}

type statusResponse struct {
	Status string `json:"status"`
}

// approvalDecisionRequest is the optional body of POST
// /api/v1/approvals/{id}/approve|reject.
type approvalDecisionRequest struct {
	DecidedBy string `json:"decided_by,omitempty"`
}

type memoryCreateRequest struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags,omitempty"`
}
