package memory

import (
	"context"
	"testing"
	"time"

	"github.com/astra-ai/kernel/pkg/events"
	"github.com/astra-ai/kernel/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestSaveAsync_PersistsPayloadAndEmitsEvents(t *testing.T) {
	s := store.NewMemoryStore()
	bus := events.NewBus(s)

	SaveAsync(s, bus, "run-1", Payload{
		ShouldStore: true,
		Title:       "Preferences",
		Summary:     "User prefers concise answers.",
		Facts:       []Fact{{Key: "city", Value: "Berlin"}},
	})

	waitFor(t, func() bool {
		mems, err := s.ListUserMemories(context.Background(), 10)
		return err == nil && len(mems) == 1
	})

	evs, err := bus.Replay(context.Background(), "run-1", 0)
	require.NoError(t, err)
	var sawRequested, sawSaved bool
	for _, e := range evs {
		switch e.Type {
		case string(events.TypeMemorySaveRequested):
			sawRequested = true
		case string(events.TypeMemorySaved):
			sawSaved = true
		}
	}
	assert.True(t, sawRequested)
	assert.True(t, sawSaved)
}

func TestSaveAsync_SkipsWhenShouldStoreFalse(t *testing.T) {
	s := store.NewMemoryStore()
	bus := events.NewBus(s)

	SaveAsync(s, bus, "run-2", Payload{ShouldStore: false})

	time.Sleep(50 * time.Millisecond)
	mems, err := s.ListUserMemories(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, mems)
}

func TestSaveAsync_SkipsWhenNothingToStore(t *testing.T) {
	s := store.NewMemoryStore()
	bus := events.NewBus(s)

	SaveAsync(s, bus, "run-3", Payload{ShouldStore: true})

	time.Sleep(50 * time.Millisecond)
	mems, err := s.ListUserMemories(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, mems)
}
