package snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/astra-ai/kernel/pkg/store"
)

// Builder assembles Snapshots from a Store. It is stateless and safe for
// concurrent use; each Build performs its own fixed sequence of reads
// against the store and never caches between calls.
type Builder struct {
	store store.Store
}

func NewBuilder(s store.Store) *Builder {
	return &Builder{store: s}
}

// Build returns the full aggregate for runID. The reads are sequential, not
// transactional: the Store guarantees listing is eventually consistent with
// writes (spec.md §5), so a Snapshot is monotonic with respect to emitted
// events but may interleave with a write landing mid-build. Callers that
// need a precise causal point should pair a Snapshot with the event ID it
// was built up to (LastEvents' final element).
func (b *Builder) Build(ctx context.Context, runID string) (*Snapshot, error) {
	run, err := b.store.GetRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("snapshot: get run: %w", err)
	}

	plan, err := b.store.ListPlanSteps(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("snapshot: list plan steps: %w", err)
	}

	tasks, err := b.store.ListTasks(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("snapshot: list tasks: %w", err)
	}

	sources, err := b.store.ListSources(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("snapshot: list sources: %w", err)
	}

	facts, err := b.store.ListFacts(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("snapshot: list facts: %w", err)
	}

	conflicts, err := b.store.ListConflicts(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("snapshot: list conflicts: %w", err)
	}

	artifacts, err := b.store.ListArtifacts(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("snapshot: list artifacts: %w", err)
	}

	approvals, err := b.store.ListApprovals(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("snapshot: list approvals: %w", err)
	}

	lastEvents, err := b.store.ListEvents(ctx, runID, LastEventsLimit)
	if err != nil {
		return nil, fmt.Errorf("snapshot: list events: %w", err)
	}

	return &Snapshot{
		Run:        run,
		Plan:       plan,
		Tasks:      tasks,
		Sources:    sources,
		Facts:      facts,
		Conflicts:  conflicts,
		Artifacts:  artifacts,
		Approvals:  approvals,
		Metrics:    buildMetrics(plan, conflicts, sources),
		LastEvents: lastEvents,
	}, nil
}

func buildMetrics(plan []*store.PlanStep, conflicts []*store.Conflict, sources []*store.Source) Metrics {
	m := Metrics{Coverage: Coverage{Total: len(plan)}}

	for _, step := range plan {
		if step.Status == store.StepStatusDone {
			m.Coverage.Done++
		}
	}

	for _, c := range conflicts {
		if c.Open {
			m.Conflicts++
		}
	}

	m.Freshness = buildFreshness(sources)
	return m
}

func buildFreshness(sources []*store.Source) Freshness {
	f := Freshness{Count: len(sources)}
	if len(sources) == 0 {
		return f
	}

	min, max := sources[0].RetrievedAt, sources[0].RetrievedAt
	for _, s := range sources[1:] {
		if s.RetrievedAt.Before(min) {
			min = s.RetrievedAt
		}
		if s.RetrievedAt.After(max) {
			max = s.RetrievedAt
		}
	}

	minStr := min.UTC().Format(time.RFC3339)
	maxStr := max.UTC().Format(time.RFC3339)
	f.Min = &minStr
	f.Max = &maxStr
	return f
}
