package intent

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
	"github.com/astra-ai/kernel/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBrainConfig() *config.BrainConfig {
	return &config.BrainConfig{
		BaseChatModel:    "base-model",
		FastChatModel:    "fast-model",
		ComplexChatModel: "complex-model",
		CodeModel:        "code-model",
		FastCharCap:      40,
		FastWordCap:      8,
		ComplexCharCap:   200,
		ComplexWordCap:   40,
	}
}

func newTestIntentRouter(t *testing.T, handler http.HandlerFunc) (*Router, *events.Bus) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := testBrainConfig()
	cfg.BaseURL = srv.URL
	cfg.BaseTimeout = 5 * time.Second
	cfg.TierTimeout = 5 * time.Second
	cfg.GraceTimeout = 5 * time.Second
	cfg.MaxConcurrency = 1
	cfg.ChatPriorityExtraSlots = 1

	bus := events.NewBus(store.NewMemoryStore())
	b := brain.NewRouter(cfg, bus)
	return NewRouter(b, bus), bus
}

func llmHandler(content string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message":           map[string]string{"content": content},
			"prompt_eval_count": 5,
			"eval_count":        10,
		})
	}
}

func TestDecide_FastChatPathSkipsLLM(t *testing.T) {
	called := false
	router, _ := newTestIntentRouter(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
		llmHandler(`{}`)(w, r)
	})

	d := router.Decide(context.Background(), "run-1", "", "сколько будет 2+2", nil, nil)
	assert.Equal(t, IntentChat, d.Intent)
	assert.Equal(t, PathFastChat, d.DecisionPath)
	assert.False(t, called)
}

func TestDecide_SemanticDecideParsesPayload(t *testing.T) {
	payload := `{"intent":"ACT","confidence":0.8,"act_hint":{"suggested_run_mode":"execute_confirm","danger_flags":["delete_file"]}}`
	router, _ := newTestIntentRouter(t, llmHandler(payload))

	d := router.Decide(context.Background(), "run-1", "step-1", "удали файл отчёт.txt на рабочем столе и всё остальное тоже", nil, nil)
	require.Equal(t, IntentAct, d.Intent)
	assert.Equal(t, PathSemanticDecide, d.DecisionPath)
	require.NotNil(t, d.ActHint)
	assert.Equal(t, "execute_confirm", d.ActHint.SuggestedRunMode)
	assert.Contains(t, d.ActHint.DangerFlags, "delete_file")
}

func TestDecide_InvalidPayloadDegradesToChat(t *testing.T) {
	router, _ := newTestIntentRouter(t, llmHandler(`not json at all`))

	d := router.Decide(context.Background(), "run-1", "step-1", "спланируй мне сложный многоэтапный проект переезда в другой город", nil, nil)
	assert.Equal(t, IntentChat, d.Intent)
	assert.Equal(t, PathSemanticResilience, d.DecisionPath)
}

func TestDecide_UnreachableServerDegradesToChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	srv.Close() // guarantee connection failure

	cfg := testBrainConfig()
	cfg.BaseURL = srv.URL
	cfg.BaseTimeout = time.Second
	cfg.TierTimeout = time.Second
	cfg.GraceTimeout = time.Second
	cfg.MaxConcurrency = 1

	bus := events.NewBus(store.NewMemoryStore())
	b := brain.NewRouter(cfg, bus)
	router := NewRouter(b, bus)

	d := router.Decide(context.Background(), "run-1", "step-1", "организуй все файлы в папке загрузок по типам и датам создания", nil, nil)
	assert.Equal(t, IntentChat, d.Intent)
	assert.Equal(t, PathSemanticResilience, d.DecisionPath)
}

func TestDecide_EmitsIntentDecidedEvent(t *testing.T) {
	router, bus := newTestIntentRouter(t, llmHandler(`{"intent":"ASK","confidence":0.6,"questions":["Which project?"]}`))

	d := router.Decide(context.Background(), "run-1", "step-1", "организуй все файлы в папке загрузок по типам и датам создания", nil, nil)
	require.Equal(t, IntentAsk, d.Intent)

	evs, err := bus.Replay(context.Background(), "run-1", 0)
	require.NoError(t, err)
	var found bool
	for _, e := range evs {
		if e.Type == string(events.TypeIntentDecided) {
			found = true
		}
	}
	assert.True(t, found)
}
