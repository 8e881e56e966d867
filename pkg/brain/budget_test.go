package brain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBudgetTracker_EnforcesPerRunLimit(t *testing.T) {
	b := newBudgetTracker(2, 0)
	assert.True(t, b.check("run1", ""))
	b.record("run1", "")
	assert.True(t, b.check("run1", ""))
	b.record("run1", "")
	assert.False(t, b.check("run1", ""))
}

func TestBudgetTracker_EnforcesPerStepLimit(t *testing.T) {
	b := newBudgetTracker(100, 1)
	assert.True(t, b.check("run1", "step1"))
	b.record("run1", "step1")
	assert.False(t, b.check("run1", "step1"))
	// a different step on the same run is unaffected.
	assert.True(t, b.check("run1", "step2"))
}

func TestBudgetTracker_ZeroLimitMeansUnbounded(t *testing.T) {
	b := newBudgetTracker(0, 0)
	for i := 0; i < 50; i++ {
		assert.True(t, b.check("run1", "step1"))
		b.record("run1", "step1")
	}
}

func TestBudgetTracker_RunsAreIsolated(t *testing.T) {
	b := newBudgetTracker(1, 0)
	b.record("run1", "")
	assert.False(t, b.check("run1", ""))
	assert.True(t, b.check("run2", ""))
}
