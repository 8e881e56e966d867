package memory

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/astra-ai/kernel/pkg/events"
	"github.com/astra-ai/kernel/pkg/store"
)

// SaveAsync persists payload to the user-memory store on a background
// goroutine and returns immediately — the caller's response path must never
// wait on a memory save (spec.md §4.7: "saves asynchronously (fire-and-forget
// thread; failures emit a warning event)"). Grounded on the teacher's
// worker.go pattern of performing a notification side-effect alongside the
// main execution path with errors logged rather than propagated; here the
// side-effect is pushed fully off the caller's goroutine since an HTTP
// request path, unlike the teacher's already-async worker loop, cannot
// afford to block on it.
func SaveAsync(s store.Store, bus *events.Bus, runID string, payload Payload) {
	go func() {
		ctx := context.Background()
		defer func() {
			if r := recover(); r != nil {
				slog.Error("memory: save panicked", "run_id", runID, "panic", r)
			}
		}()
		_ = Save(ctx, s, bus, runID, payload)
	}()
}

// Save persists payload to the user-memory store synchronously, emitting
// the same memory_save_requested/memory_saved events SaveAsync does. Used
// by the MEMORY_COMMIT skill (spec.md §4.10), which — unlike the Chat
// Loop's fire-and-forget kickoff — is itself a PlanStep whose completion
// the Run Engine's DAG waits on, so it cannot push the save off-goroutine.
func Save(ctx context.Context, s store.Store, bus *events.Bus, runID string, payload Payload) error {
	if !payload.ShouldStore || (len(payload.Facts) == 0 && len(payload.Preferences) == 0 && payload.Summary == "") {
		return nil
	}

	emit(ctx, bus, runID, events.TypeMemorySaveRequested, "memory save requested", store.LevelInfo, nil)

	meta := store.MemoryMeta{
		Summary:       payload.Summary,
		Facts:         factStrings(payload.Facts),
		Preferences:   preferenceStrings(payload.Preferences),
		PossibleFacts: payload.PossibleFacts,
		Confidence:    payload.Confidence,
	}

	title := payload.Title
	if title == "" {
		title = "Untitled memory"
	}

	_, err := s.CreateUserMemory(ctx, title, payload.Summary, nil, "assistant", meta)
	if err != nil {
		slog.Warn("memory: save failed", "run_id", runID, "error", err)
		emit(ctx, bus, runID, events.TypeMemorySaved, fmt.Sprintf("memory save failed: %v", err), store.LevelWarning, map[string]any{"error": err.Error()})
		return err
	}

	emit(ctx, bus, runID, events.TypeMemorySaved, "memory saved", store.LevelInfo, nil)
	return nil
}

func emit(ctx context.Context, bus *events.Bus, runID string, typ events.Type, message, level string, payload map[string]any) {
	if bus == nil {
		return
	}
	if payload == nil {
		payload = map[string]any{}
	}
	_, _ = bus.Emit(ctx, runID, typ, message, payload, level, nil, nil)
}

func factStrings(facts []Fact) []string {
	out := make([]string, 0, len(facts))
	for _, f := range facts {
		out = append(out, f.Key+": "+f.Value)
	}
	return out
}

func preferenceStrings(prefs []Preference) []string {
	out := make([]string, 0, len(prefs))
	for _, p := range prefs {
		out = append(out, p.Key+": "+p.Value)
	}
	return out
}
