package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astra-ai/kernel/pkg/brain"
	"github.com/astra-ai/kernel/pkg/chat"
	"github.com/astra-ai/kernel/pkg/config"
	"github.com/astra-ai/kernel/pkg/events"
	"github.com/astra-ai/kernel/pkg/intent"
	"github.com/astra-ai/kernel/pkg/memory"
	"github.com/astra-ai/kernel/pkg/planner"
	"github.com/astra-ai/kernel/pkg/runengine"
	"github.com/astra-ai/kernel/pkg/snapshot"
	"github.com/astra-ai/kernel/pkg/store"
)

// stubDispatcher completes every task immediately, so a started ACT run
// drains its plan without needing a real skill registry.
type stubDispatcher struct{}

func (stubDispatcher) Dispatch(_ context.Context, _ *store.Run, _ *store.PlanStep, _ *store.Task) runengine.Outcome {
	return runengine.Outcome{Status: store.TaskStatusDone}
}

func fixedLLMHandler(content string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message":           map[string]string{"content": content},
			"prompt_eval_count": 5,
			"eval_count":        10,
		})
	}
}

func newTestServer(t *testing.T, llmContent string, authMode config.AuthMode) (*Server, store.Store) {
	t.Helper()
	llm := httptest.NewServer(fixedLLMHandler(llmContent))
	t.Cleanup(llm.Close)

	s := store.NewMemoryStore()
	bus := events.NewBus(s)

	brainCfg := &config.BrainConfig{
		BaseURL:        llm.URL,
		BaseChatModel:  "base-model",
		BaseTimeout:    5 * time.Second,
		TierTimeout:    5 * time.Second,
		GraceTimeout:   5 * time.Second,
		MaxConcurrency: 2,
	}
	b := brain.NewRouter(brainCfg, bus)
	interp := memory.NewInterpreter(b)
	chatCfg := &config.ChatLoopConfig{Temperature: 0.7, TopP: 0.9, NumPredict: 256}
	memCfg := &config.MemoryConfig{PersonaBlockCap: 900, ChatPromptTotalCap: 4000}
	chatLoop := chat.NewLoop(b, interp, bus, s, chatCfg, memCfg, nil)

	intentRouter := intent.NewRouter(b, bus)
	engine := runengine.NewEngine(s, bus, planner.NewPlanner(), stubDispatcher{}, config.RunEngineConfig{StepRetryBudget: 2, SchedulerPollMS: 10, ApprovalPollMS: 10})

	dataDir := t.TempDir()
	guard := NewGuard(config.AuthConfig{Mode: authMode, DataDir: dataDir}, s)

	srv := NewServer(Deps{
		Store:     s,
		Bus:       bus,
		Auth:      guard,
		Engine:    engine,
		Intent:    intentRouter,
		Chat:      chatLoop,
		Snapshots: snapshot.NewBuilder(s),
		Vault:     NewVault(filepath.Join(dataDir, "vault.bin")),
	})
	return srv, s
}

func TestHealthHandler(t *testing.T) {
	srv, _ := newTestServer(t, "hi", config.AuthModeLocal)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthStatusHandler_ReportsUninitializedBeforeBootstrap(t *testing.T) {
	srv, _ := newTestServer(t, "hi", config.AuthModeStrict)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/status", nil)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp authStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Initialized)
	assert.Equal(t, "strict", resp.AuthMode)
	assert.True(t, resp.TokenRequired)
}

func TestStrictMode_RejectsUnauthenticatedRunCreation(t *testing.T) {
	srv, s := newTestServer(t, "hi", config.AuthModeStrict)
	ctx := context.Background()
	require.NoError(t, s.CreateProject(ctx, &store.Project{ID: "proj-1", Name: "demo", CreatedAt: time.Now().UTC()}))

	body := `{"query_text":"hello there","mode":"plan_only"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/projects/proj-1/runs", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateRun_ChatIntentReturnsChatResponse(t *testing.T) {
	srv, s := newTestServer(t, "Hi! How can I help?", config.AuthModeLocal)
	ctx := context.Background()
	require.NoError(t, s.CreateProject(ctx, &store.Project{ID: "proj-1", Name: "demo", CreatedAt: time.Now().UTC()}))

	body := `{"query_text":"hi","mode":"plan_only"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/projects/proj-1/runs", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "127.0.0.1:1234"
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp runCreateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, kindChat, resp.Kind)
	assert.NotEmpty(t, resp.ChatResponse)
	assert.NotNil(t, resp.Run)
}

func TestMemoryCreateAndList_RoundTrips(t *testing.T) {
	srv, _ := newTestServer(t, "hi", config.AuthModeLocal)

	createReq := httptest.NewRequest(http.MethodPost, "/api/v1/memory/create", strings.NewReader(`{"title":"t","content":"likes dark mode"}`))
	createReq.Header.Set("Content-Type", "application/json")
	createReq.RemoteAddr = "127.0.0.1:1234"
	createRec := httptest.NewRecorder()
	srv.echo.ServeHTTP(createRec, createReq)
	require.Equal(t, http.StatusCreated, createRec.Code)

	listReq := httptest.NewRequest(http.MethodGet, "/api/v1/memory/list", nil)
	listReq.RemoteAddr = "127.0.0.1:1234"
	listRec := httptest.NewRecorder()
	srv.echo.ServeHTTP(listRec, listReq)
	require.Equal(t, http.StatusOK, listRec.Code)

	var memories []*store.UserMemory
	require.NoError(t, json.Unmarshal(listRec.Body.Bytes(), &memories))
	require.Len(t, memories, 1)
	assert.Equal(t, "likes dark mode", memories[0].Content)
}
