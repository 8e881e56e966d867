package brain

import (
	"context"
	"time"

	"github.com/astra-ai/kernel/pkg/config"
	"github.com/astra-ai/kernel/pkg/events"
)

// Router is the Brain Router entry point: one Router serves the whole
// process, shared across all runs, so the two-queue semaphore actually
// serializes LLM calls process-wide as spec.md §4.4 requires.
type Router struct {
	cfg    *config.BrainConfig
	bus    *events.Bus
	client *serverClient
	sem    *semaphore
	cache  responseCache
	budget budgetCounter

	qaStub func(req *Request) *Response // overridable in tests
}

// NewRouter constructs a Router from cfg. bus may be nil, in which case no
// events are emitted (useful for unit tests that only exercise routing
// logic).
func NewRouter(cfg *config.BrainConfig, bus *events.Bus) *Router {
	var cache responseCache
	var budget budgetCounter
	if cfg.CacheRedisAddr != "" {
		cache = newRedisCache(cfg.CacheRedisAddr)
		budget = newRedisBudgetTracker(cfg.CacheRedisAddr, cfg.BudgetPerRun, cfg.BudgetPerStep)
	} else {
		cache = newMemoryCache()
		budget = newBudgetTracker(cfg.BudgetPerRun, cfg.BudgetPerStep)
	}

	return &Router{
		cfg:    cfg,
		bus:    bus,
		client: newServerClient(cfg.BaseURL, cfg.BaseTimeout),
		sem:    newSemaphore(cfg.MaxConcurrency, cfg.ChatPriorityExtraSlots),
		cache:  cache,
		budget: budget,
	}
}

// Dispatch routes req through budget check, cache, queue admission, model
// selection, and the tiered-model-then-base-model fallback, emitting the
// Brain Router's event sequence along the way.
func (r *Router) Dispatch(ctx context.Context, req *Request) *Response {
	if r.cfg.QAMode {
		return r.qaResponse(req)
	}

	if !r.budget.check(req.RunID, req.StepID) {
		r.emit(ctx, req, events.TypeLLMBudgetExceeded, "", map[string]any{
			"purpose": string(req.Purpose),
		})
		return &Response{OK: false, FailureClass: FailureBudgetExceeded}
	}

	tier := selectTier(r.cfg, req)
	model := modelForTier(r.cfg, tier)
	key := cacheKey(model, req)

	if cached, ok := r.cache.get(ctx, req.RunID, key); ok {
		hit := *cached
		hit.CacheHit = true
		hit.LatencyMS = 0
		return &hit
	}

	r.emit(ctx, req, events.TypeLLMRouteDecided, "", map[string]any{
		"tier":    string(tier),
		"model":   model,
		"purpose": string(req.Purpose),
	})

	resp := r.dispatchWithFallback(ctx, req, tier, model)

	if resp.OK {
		r.budget.record(req.RunID, req.StepID)
		r.cache.put(ctx, req.RunID, key, resp)
	}
	return resp
}

func (r *Router) dispatchWithFallback(ctx context.Context, req *Request, tier ModelTier, model string) *Response {
	resp := r.dispatchOne(ctx, req, tier, model, r.cfg.TierTimeout)
	if resp.OK || !resp.FailureClass.retryable() || model == r.cfg.BaseChatModel {
		return resp
	}

	// Fallback: retry once against the base chat model with a short grace
	// timeout (spec.md §4.4).
	return r.dispatchOne(ctx, req, TierBase, r.cfg.BaseChatModel, r.cfg.GraceTimeout)
}

func (r *Router) dispatchOne(ctx context.Context, req *Request, tier ModelTier, model string, timeout time.Duration) (resp *Response) {
	ctx, endSpan := startDispatchSpan(ctx, tier, model)
	defer func() { endSpan(resp) }()

	kind := queueDefault
	if req.Purpose == PurposeChatResponse && req.Preferred != PreferredKindCode {
		kind = queueChat
	}

	if err := r.sem.acquire(ctx, kind); err != nil {
		return &Response{OK: false, FailureClass: FailureUnhandledError, Err: err}
	}
	defer r.sem.release()

	r.emit(ctx, req, events.TypeLLMRequestStarted, "", map[string]any{
		"tier":  string(tier),
		"model": model,
	})

	dispatchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	text, usage, failClass, httpStatus, err := r.client.dispatch(dispatchCtx, model, req)
	latency := time.Since(start).Milliseconds()

	if err != nil {
		r.emit(ctx, req, events.TypeLLMRequestFailed, err.Error(), map[string]any{
			"tier":        string(tier),
			"model":       model,
			"error_type":  string(failClass),
			"latency_ms":  latency,
			"http_status": httpStatus,
		})
		return &Response{
			OK:           false,
			Model:        model,
			Tier:         tier,
			LatencyMS:    latency,
			FailureClass: failClass,
			HTTPStatus:   httpStatus,
			Err:          err,
		}
	}

	r.emit(ctx, req, events.TypeLLMRequestSucceeded, "", map[string]any{
		"tier":              string(tier),
		"model":             model,
		"latency_ms":        latency,
		"prompt_tokens":     usage.PromptTokens,
		"completion_tokens": usage.CompletionTokens,
	})

	return &Response{
		OK:        true,
		Text:      text,
		Model:     model,
		Tier:      tier,
		LatencyMS: latency,
		Usage:     usage,
	}
}

// qaResponse short-circuits to a deterministic stub (spec.md §4.4: "QA mode
// ... short-circuit to a deterministic stub response"), used so end-to-end
// test runs never depend on a real local LLM server being reachable.
func (r *Router) qaResponse(req *Request) *Response {
	if r.qaStub != nil {
		return r.qaStub(req)
	}
	return &Response{
		OK:    true,
		Text:  "[qa-mode stub response]",
		Model: "qa-stub",
		Tier:  TierBase,
	}
}

func (r *Router) emit(ctx context.Context, req *Request, typ events.Type, message string, payload map[string]any) {
	if r.bus == nil {
		return
	}
	var stepID *string
	if req.StepID != "" {
		stepID = &req.StepID
	}
	if _, err := r.bus.Emit(ctx, req.RunID, typ, message, payload, "info", nil, stepID); err != nil {
		// Emit already logs internally; the Brain Router itself must not fail
		// a dispatch just because event persistence failed.
		_ = err
	}
}
