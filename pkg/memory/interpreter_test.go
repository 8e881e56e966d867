package memory

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
	"github.com/astra-ai/kernel/pkg/persona"
	"github.com/astra-ai/kernel/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestInterpreter(t *testing.T, content string) *Interpreter {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message":           map[string]string{"content": content},
			"prompt_eval_count": 5,
			"eval_count":        10,
		})
	}))
	t.Cleanup(srv.Close)

	cfg := &config.BrainConfig{
		BaseURL:         srv.URL,
		BaseChatModel:   "base-model",
		BaseTimeout:     5 * time.Second,
		TierTimeout:     5 * time.Second,
		GraceTimeout:    5 * time.Second,
		MaxConcurrency:  1,
	}
	bus := events.NewBus(store.NewMemoryStore())
	return NewInterpreter(brain.NewRouter(cfg, bus))
}

func TestInterpret_ParsesValidResponse(t *testing.T) {
	it := newTestInterpreter(t, `{"should_store": true, "facts": [{"key": "city", "value": "Berlin"}], "confidence": 0.6}`)

	payload, err := it.Interpret(context.Background(), "run-1", "step-1", "I just moved to Berlin", "Congrats on the move!")
	require.NoError(t, err)
	assert.True(t, payload.ShouldStore)
	require.Len(t, payload.Facts, 1)
	assert.Equal(t, "Berlin", payload.Facts[0].Value)
}

func TestInterpret_ReturnsErrorOnInvalidJSON(t *testing.T) {
	it := newTestInterpreter(t, `not json`)

	_, err := it.Interpret(context.Background(), "run-1", "step-1", "hello", "hi")
	assert.Error(t, err)
}

func TestToneDerivedPayload_FastPathYieldsEmptyPayload(t *testing.T) {
	a := persona.NewAnalyzer().Analyze("сколько будет 2+2", nil, nil)
	payload := ToneDerivedPayload(a)
	assert.False(t, payload.ShouldStore)
	assert.Empty(t, payload.Preferences)
}

func TestToneDerivedPayload_FullPathYieldsModePreferences(t *testing.T) {
	a := persona.NewAnalyzer().Analyze("почему так вышло, в чём смысл, я рефлексирую над этим долго", nil, nil)
	payload := ToneDerivedPayload(a)
	assert.True(t, payload.ShouldStore)
	assert.Len(t, payload.Preferences, 2)
	assert.Equal(t, "persona.mode.primary", payload.Preferences[0].Key)
}
