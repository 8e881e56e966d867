package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/astra-ai/kernel/pkg/brain"
	"github.com/astra-ai/kernel/pkg/config"
	"github.com/astra-ai/kernel/pkg/events"
	"github.com/astra-ai/kernel/pkg/memory"
	"github.com/astra-ai/kernel/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedLLMHandler(content string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message":           map[string]string{"content": content},
			"prompt_eval_count": 5,
			"eval_count":        10,
		})
	}
}

func newTestLoop(t *testing.T, handler http.HandlerFunc, research ResearchInvoker) (*Loop, *events.Bus, store.Store) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	brainCfg := &config.BrainConfig{
		BaseURL:        srv.URL,
		BaseChatModel:  "base-model",
		BaseTimeout:    5 * time.Second,
		TierTimeout:    5 * time.Second,
		GraceTimeout:   5 * time.Second,
		MaxConcurrency: 2,
	}
	chatCfg := &config.ChatLoopConfig{Temperature: 0.7, TopP: 0.9, NumPredict: 256, AutoWebResearch: true}
	memCfg := &config.MemoryConfig{PersonaBlockCap: 900, ChatPromptTotalCap: 4000}

	s := store.NewMemoryStore()
	bus := events.NewBus(s)
	b := brain.NewRouter(brainCfg, bus)
	interp := memory.NewInterpreter(b)

	return NewLoop(b, interp, bus, s, chatCfg, memCfg, research), bus, s
}

func TestRun_ReturnsCleanDraftUnchanged(t *testing.T) {
	loop, bus, _ := newTestLoop(t, fixedLLMHandler("Столица Франции — Париж."), nil)

	result := loop.Run(context.Background(), Turn{RunID: "run-1", UserMessage: "какая столица Франции?"})
	assert.Equal(t, "Столица Франции — Париж.", result.Text)
	assert.False(t, result.Degraded)

	evs, err := bus.Replay(context.Background(), "run-1", 0)
	require.NoError(t, err)
	var sawGenerated bool
	for _, e := range evs {
		if e.Type == string(events.TypeChatResponseGenerated) {
			sawGenerated = true
		}
	}
	assert.True(t, sawGenerated)
}

func TestRun_UnwantedPrefixTriggersDegradedRetry(t *testing.T) {
	loop, _, _ := newTestLoop(t, fixedLLMHandler("As an AI, I cannot help with that."), nil)

	result := loop.Run(context.Background(), Turn{RunID: "run-2", UserMessage: "какая столица Франции?"})
	assert.True(t, result.Degraded)
}

type stubResearch struct {
	text string
	ok   bool
}

func (s stubResearch) Research(ctx context.Context, runID, stepID, query string) (string, bool) {
	return s.text, s.ok
}

func TestRun_InvokesResearchOnUncertainInformationalAnswer(t *testing.T) {
	loop, bus, _ := newTestLoop(t, fixedLLMHandler(""), stubResearch{text: "Grounded answer with sources.", ok: true})

	result := loop.Run(context.Background(), Turn{RunID: "run-3", UserMessage: "почему небо синее и как это объясняется физикой?"})
	assert.Equal(t, "Grounded answer with sources.", result.Text)

	evs, err := bus.Replay(context.Background(), "run-3", 0)
	require.NoError(t, err)
	var sawDone bool
	for _, e := range evs {
		if e.Message == "chat_auto_web_research_done" {
			sawDone = true
		}
	}
	assert.True(t, sawDone)
}
