package research

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

func newTestBrain(t *testing.T, handler http.HandlerFunc) *brain.Router {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &config.BrainConfig{
		BaseURL:        srv.URL,
		BaseChatModel:  "base-model",
		BaseTimeout:    5 * time.Second,
		TierTimeout:    5 * time.Second,
		GraceTimeout:   5 * time.Second,
		MaxConcurrency: 2,
	}
	bus := events.NewBus(store.NewMemoryStore())
	return brain.NewRouter(cfg, bus)
}

func TestJudgeResearch_ValidEnoughVerdict(t *testing.T) {
	b := newTestBrain(t, fixedLLMHandler(`{"decision":"ENOUGH","score":0.8,"why":"clear","used_urls":["https://a.example"]}`))
	verdict, reason := judgeResearch(context.Background(), b, "run-1", "", "query", []Page{{URL: "https://a.example", ExtractedText: "text"}})
	assert.Equal(t, "", reason)
	assert.Equal(t, "ENOUGH", verdict.Decision)
	assert.Equal(t, 0.8, verdict.Score)
}

func TestJudgeResearch_InvalidDecisionFallsBack(t *testing.T) {
	b := newTestBrain(t, fixedLLMHandler(`{"decision":"","score":0.0,"why":"invalid payload"}`))
	verdict, reason := judgeResearch(context.Background(), b, "run-1", "", "query", nil)
	assert.Equal(t, "invalid_decision:empty", reason)
	assert.Equal(t, "ENOUGH", verdict.Decision)
	assert.Equal(t, 0.35, verdict.Score)
}

func TestJudgeResearch_InvalidScoreFallsBack(t *testing.T) {
	b := newTestBrain(t, fixedLLMHandler(`{"decision":"ENOUGH","score":5,"why":"bad score"}`))
	_, reason := judgeResearch(context.Background(), b, "run-1", "", "query", nil)
	assert.Equal(t, "invalid_score:5", reason)
}

func TestJudgeResearch_MalformedJSONFallsBack(t *testing.T) {
	b := newTestBrain(t, fixedLLMHandler(`not json`))
	verdict, reason := judgeResearch(context.Background(), b, "run-1", "", "query", nil)
	assert.Equal(t, "invalid_llm_json", reason)
	assert.Equal(t, "ENOUGH", verdict.Decision)
}
