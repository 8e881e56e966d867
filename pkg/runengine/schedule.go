package runengine

import "github.com/astra-ai/kernel/pkg/store"

// readySteps returns the steps eligible to run next: status created, and
// every entry in DependsOn names a step whose status is done (spec.md §5:
// "a step is eligible only after all predecessors are done"). Order is
// preserved from the input slice (StepIndex order), so scheduling is
// deterministic for a given plan snapshot.
func readySteps(steps []*store.PlanStep) []*store.PlanStep {
	status := make(map[string]string, len(steps))
	for _, s := range steps {
		status[s.ID] = s.Status
	}

	var ready []*store.PlanStep
	for _, s := range steps {
		if s.Status != store.StepStatusCreated {
			continue
		}
		if allDepsDone(s.DependsOn, status) {
			ready = append(ready, s)
		}
	}
	return ready
}

func allDepsDone(dependsOn []string, status map[string]string) bool {
	for _, depID := range dependsOn {
		if status[depID] != store.StepStatusDone {
			return false
		}
	}
	return true
}

// planTerminal reports whether every step has reached a terminal status
// (done, failed, or skipped) — the run loop stops scheduling once this
// holds and the run transitions to done or failed.
func planTerminal(steps []*store.PlanStep) bool {
	for _, s := range steps {
		switch s.Status {
		case store.StepStatusDone, store.StepStatusFailed, store.StepStatusSkipped:
		default:
			return false
		}
	}
	return true
}

// planFailed reports whether any step ended in failed status — a run whose
// plan is terminal with at least one failed step finishes as RunStatusFailed
// rather than RunStatusDone.
func planFailed(steps []*store.PlanStep) bool {
	for _, s := range steps {
		if s.Status == store.StepStatusFailed {
			return true
		}
	}
	return false
}
