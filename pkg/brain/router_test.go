package brain

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/astra-ai/kernel/pkg/config"
	"github.com/astra-ai/kernel/pkg/events"
	"github.com/astra-ai/kernel/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, handler http.HandlerFunc) (*Router, *events.Bus) {
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
	return NewRouter(cfg, bus), bus
}

func okHandler(content string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message":           map[string]string{"content": content},
			"prompt_eval_count": 5,
			"eval_count":        10,
		})
	}
}

func TestRouter_SuccessfulDispatchEmitsEventSequence(t *testing.T) {
	r, bus := newTestRouter(t, okHandler("hello there"))
	ctx := context.Background()

	runID := "run-1"
	resp := r.Dispatch(ctx, &Request{RunID: runID, Purpose: PurposeChatResponse, Messages: userMsg("2+2?")})

	require.True(t, resp.OK)
	assert.Equal(t, "hello there", resp.Text)
	assert.Equal(t, TierFast, resp.Tier)

	evs, err := bus.Replay(ctx, runID, 0)
	require.NoError(t, err)
	var types []string
	for _, e := range evs {
		types = append(types, e.Type)
	}
	assert.Contains(t, types, "llm_route_decided")
	assert.Contains(t, types, "llm_request_started")
	assert.Contains(t, types, "llm_request_succeeded")
}

func TestRouter_CacheHitSkipsQueueAndServer(t *testing.T) {
	calls := 0
	handler := func(w http.ResponseWriter, r *http.Request) {
		calls++
		_ = json.NewEncoder(w).Encode(map[string]any{"message": map[string]string{"content": "cached-ish"}})
	}
	r, _ := newTestRouter(t, handler)
	ctx := context.Background()

	req := &Request{RunID: "run-1", Purpose: PurposeChatResponse, Messages: userMsg("2+2?")}
	first := r.Dispatch(ctx, req)
	require.True(t, first.OK)

	second := r.Dispatch(ctx, req)
	require.True(t, second.OK)
	assert.True(t, second.CacheHit)
	assert.Zero(t, second.LatencyMS)
	assert.Equal(t, 1, calls)
}

func TestRouter_BudgetExceededShortCircuits(t *testing.T) {
	calls := 0
	handler := func(w http.ResponseWriter, r *http.Request) {
		calls++
		_ = json.NewEncoder(w).Encode(map[string]any{"message": map[string]string{"content": "x"}})
	}
	r, bus := newTestRouter(t, handler)
	r.budget = newBudgetTracker(1, 0)
	ctx := context.Background()

	runID := "run-budget"
	first := r.Dispatch(ctx, &Request{RunID: runID, Purpose: PurposeChatResponse, Messages: userMsg("q1 unique")})
	require.True(t, first.OK)

	second := r.Dispatch(ctx, &Request{RunID: runID, Purpose: PurposeChatResponse, Messages: userMsg("q2 different")})
	assert.False(t, second.OK)
	assert.Equal(t, FailureBudgetExceeded, second.FailureClass)
	assert.Equal(t, 1, calls)

	evs, err := bus.Replay(ctx, runID, 0)
	require.NoError(t, err)
	found := false
	for _, e := range evs {
		if e.Type == "llm_budget_exceeded" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestRouter_FallsBackToBaseModelOnRetryableFailure(t *testing.T) {
	attempt := 0
	handler := func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		attempt++
		if body["model"] == "complex-model" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"message": map[string]string{"content": "base model answer"}})
	}
	r, _ := newTestRouter(t, handler)
	ctx := context.Background()

	resp := r.Dispatch(ctx, &Request{
		RunID:    "run-1",
		Purpose:  PurposeChatResponse,
		Messages: userMsg("Составь подробный план тренировок на месяц с этапами, рисками и метриками прогресса."),
	})

	require.True(t, resp.OK)
	assert.Equal(t, "base model answer", resp.Text)
	assert.Equal(t, TierBase, resp.Tier)
	assert.Equal(t, 2, attempt)
}

func TestRouter_QAModeShortCircuitsWithoutDispatch(t *testing.T) {
	calls := 0
	r, _ := newTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
	})
	r.cfg.QAMode = true
	ctx := context.Background()

	resp := r.Dispatch(ctx, &Request{RunID: "run-1", Purpose: PurposeChatResponse, Messages: userMsg("hi")})
	require.True(t, resp.OK)
	assert.Equal(t, 0, calls)
}

func TestRouter_PreferredCodeUsesCodeModelAndDefaultQueue(t *testing.T) {
	var seenModel string
	r, _ := newTestRouter(t, func(w http.ResponseWriter, req *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(req.Body).Decode(&body)
		seenModel, _ = body["model"].(string)
		_ = json.NewEncoder(w).Encode(map[string]any{"message": map[string]string{"content": "code answer"}})
	})
	ctx := context.Background()

	resp := r.Dispatch(ctx, &Request{RunID: "run-1", Purpose: PurposeOther, Preferred: PreferredKindCode, Messages: userMsg("write a function")})
	require.True(t, resp.OK)
	assert.Equal(t, "code-model", seenModel)
}
