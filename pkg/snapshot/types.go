// Package snapshot assembles the consistent aggregate read model clients
// poll or diff against between SSE events (spec.md §4.12): a single Build
// call walks the Store with a fixed sequence of reads and returns everything
// known about a run plus a small set of derived metrics.
package snapshot

import "github.com/astra-ai/kernel/pkg/store"

// Coverage reports how many plan steps have reached a terminal done status.
type Coverage struct {
	Done  int `json:"done"`
	Total int `json:"total"`
}

// Freshness summarizes the retrieval timestamps of a run's sources.
type Freshness struct {
	Min   *string `json:"min,omitempty"`
	Max   *string `json:"max,omitempty"`
	Count int     `json:"count"`
}

// Metrics bundles the derived figures a client uses to render progress
// without recomputing them from the raw lists.
type Metrics struct {
	Coverage  Coverage  `json:"coverage"`
	Conflicts int       `json:"conflicts_open_count"`
	Freshness Freshness `json:"freshness"`
}

// Snapshot is the full aggregate for a run (spec.md §4.12).
type Snapshot struct {
	Run         *store.Run        `json:"run"`
	Plan        []*store.PlanStep `json:"plan"`
	Tasks       []*store.Task     `json:"tasks"`
	Sources     []*store.Source   `json:"sources"`
	Facts       []*store.Fact     `json:"facts"`
	Conflicts   []*store.Conflict `json:"conflicts"`
	Artifacts   []*store.Artifact `json:"artifacts"`
	Approvals   []*store.Approval `json:"approvals"`
	Metrics     Metrics           `json:"metrics"`
	LastEvents  []*store.Event    `json:"last_events"`
}

// LastEventsLimit bounds the trailing event window carried in a Snapshot.
const LastEventsLimit = 200
