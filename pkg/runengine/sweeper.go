package runengine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// startSweeper schedules the Engine's background maintenance job: every
// SweepIntervalSec it expires pending approvals on runs the Engine is no
// longer actively supervising, and reaps tasks left "running" by a crashed
// or previously-terminated process (spec.md §5 restart recovery). It mirrors
// the one-worker-per-run loop's own cadence rather than reusing
// SchedulerPollMS, since a sweep is much cheaper to run less often.
func (e *Engine) startSweeper(cfg sweepConfig) *cron.Cron {
	interval := cfg.SweepIntervalSec
	if interval <= 0 {
		interval = 60
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	c := cron.New(cron.WithParser(parser))
	_, err := c.AddFunc(fmt.Sprintf("@every %ds", interval), e.sweep)
	if err != nil {
		// A malformed schedule would be a programmer error, not a runtime
		// condition; log and run without sweeping rather than crash astrad.
		slog.Error("run engine sweeper not scheduled", "error", err)
		return c
	}
	c.Start()
	return c
}

type sweepConfig struct {
	SweepIntervalSec int
}

// sweep runs one approval-expiry + orphaned-task-reap pass across every run
// the Engine is not currently driving a worker for.
func (e *Engine) sweep() {
	ctx := context.Background()

	e.mu.Lock()
	active := make([]string, 0, len(e.runs))
	for runID := range e.runs {
		active = append(active, runID)
	}
	e.mu.Unlock()

	reaped, err := e.store.ReapOrphanedRunningTasks(ctx, active)
	if err != nil {
		slog.Error("orphaned task reap failed", "error", err)
	} else if reaped > 0 {
		slog.Info("reaped orphaned running tasks", "count", reaped)
	}

	runs, err := e.store.ListActiveRuns(ctx)
	if err != nil {
		slog.Error("sweep: list active runs failed", "error", err)
		return
	}
	activeSet := make(map[string]bool, len(active))
	for _, id := range active {
		activeSet[id] = true
	}
	for _, runID := range runs {
		if activeSet[runID] {
			continue // this run already has a live worker; nothing orphaned
		}
		if err := e.store.ExpirePendingApprovalsForRun(ctx, runID); err != nil {
			slog.Error("sweep: expire pending approvals failed", "run_id", runID, "error", err)
		}
	}
}
