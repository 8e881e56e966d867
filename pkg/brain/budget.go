package brain

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// budgetCounter maintains per-run and per-step dispatch counters (spec.md
// §4.4: "per_run and per_step counters; on a new request check against
// configured limits"). A successful dispatch increments both; a request that
// never dispatches (cache hit, budget rejection) does not. The in-process
// implementation is always available; an optional Redis-backed
// implementation is used when config.BrainConfig.CacheRedisAddr is set, so a
// fleet of kernel processes shares one budget instead of each enforcing its
// own — mirroring responseCache's memory/Redis split in cache.go.
type budgetCounter interface {
	check(runID, stepID string) bool
	record(runID, stepID string)
	usage(runID, stepID string) (runCount, stepCount int)
}

// budgetTracker is the process-local budgetCounter.
type budgetTracker struct {
	mu      sync.Mutex
	perRun  map[string]int
	perStep map[string]int

	limitRun  int
	limitStep int
}

func newBudgetTracker(limitRun, limitStep int) *budgetTracker {
	return &budgetTracker{
		perRun:    make(map[string]int),
		perStep:   make(map[string]int),
		limitRun:  limitRun,
		limitStep: limitStep,
	}
}

// check reports whether runID/stepID still has budget for one more dispatch.
// stepID may be empty when a request isn't associated with a plan step.
func (b *budgetTracker) check(runID, stepID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.limitRun > 0 && b.perRun[runID] >= b.limitRun {
		return false
	}
	if stepID != "" && b.limitStep > 0 && b.perStep[stepKey(runID, stepID)] >= b.limitStep {
		return false
	}
	return true
}

// record increments counters after a successful dispatch.
func (b *budgetTracker) record(runID, stepID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.perRun[runID]++
	if stepID != "" {
		b.perStep[stepKey(runID, stepID)]++
	}
}

// usage returns the current per-run and per-step counts, for observability.
func (b *budgetTracker) usage(runID, stepID string) (runCount, stepCount int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.perRun[runID], b.perStep[stepKey(runID, stepID)]
}

func stepKey(runID, stepID string) string {
	return runID + "/" + stepID
}

// redisBudgetTracker mirrors budgetTracker's semantics over a shared Redis
// instance via INCR, so every kernel process checking the same run/step sees
// the same counts. Entries never expire: a run's counters are bounded in
// number by BudgetPerRun/BudgetPerStep themselves, and the Run Engine's own
// run/step lifecycle — not the budget counters — owns cleanup.
type redisBudgetTracker struct {
	client *redis.Client

	limitRun  int
	limitStep int
}

func newRedisBudgetTracker(addr string, limitRun, limitStep int) *redisBudgetTracker {
	return &redisBudgetTracker{
		client:    redis.NewClient(&redis.Options{Addr: addr}),
		limitRun:  limitRun,
		limitStep: limitStep,
	}
}

func (b *redisBudgetTracker) runKey(runID string) string {
	return fmt.Sprintf("astra:brain:budget:run:%s", runID)
}

func (b *redisBudgetTracker) stepKey(runID, stepID string) string {
	return fmt.Sprintf("astra:brain:budget:step:%s", stepKey(runID, stepID))
}

func (b *redisBudgetTracker) check(runID, stepID string) bool {
	ctx := context.Background()
	if b.limitRun > 0 {
		n, _ := b.client.Get(ctx, b.runKey(runID)).Int()
		if n >= b.limitRun {
			return false
		}
	}
	if stepID != "" && b.limitStep > 0 {
		n, _ := b.client.Get(ctx, b.stepKey(runID, stepID)).Int()
		if n >= b.limitStep {
			return false
		}
	}
	return true
}

func (b *redisBudgetTracker) record(runID, stepID string) {
	ctx := context.Background()
	_ = b.client.Incr(ctx, b.runKey(runID)).Err()
	if stepID != "" {
		_ = b.client.Incr(ctx, b.stepKey(runID, stepID)).Err()
	}
}

func (b *redisBudgetTracker) usage(runID, stepID string) (runCount, stepCount int) {
	ctx := context.Background()
	runCount, _ = b.client.Get(ctx, b.runKey(runID)).Int()
	stepCount, _ = b.client.Get(ctx, b.stepKey(runID, stepID)).Int()
	return runCount, stepCount
}
