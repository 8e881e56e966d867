package chat

import (
	"context"
	"fmt"

	"github.com/astra-ai/kernel/pkg/brain"
	"github.com/astra-ai/kernel/pkg/config"
	"github.com/astra-ai/kernel/pkg/events"
	"github.com/astra-ai/kernel/pkg/memory"
	"github.com/astra-ai/kernel/pkg/persona"
	"github.com/astra-ai/kernel/pkg/store"
)

// ResearchInvoker is the Web Research Skill's interface as seen by the Chat
// Loop (spec.md §4.8 step 4: "invoke the web-research sub-pipeline"). The
// concrete implementation lives in pkg/research; the Chat Loop only depends
// on this narrow port so the two packages don't import each other.
type ResearchInvoker interface {
	Research(ctx context.Context, runID, stepID, query string) (text string, ok bool)
}

// Loop runs the Chat Loop flow for a single CHAT-intent turn.
type Loop struct {
	brain       *brain.Router
	interpreter *memory.Interpreter
	bus         *events.Bus
	store       store.Store
	cfg         *config.ChatLoopConfig
	memCfg      *config.MemoryConfig
	research    ResearchInvoker // optional; nil disables auto web research
}

// NewLoop constructs a Loop. research may be nil to disable the
// auto-web-research fallback regardless of cfg.AutoWebResearch.
func NewLoop(b *brain.Router, interp *memory.Interpreter, bus *events.Bus, s store.Store, cfg *config.ChatLoopConfig, memCfg *config.MemoryConfig, research ResearchInvoker) *Loop {
	return &Loop{brain: b, interpreter: interp, bus: bus, store: s, cfg: cfg, memCfg: memCfg, research: research}
}

// Run executes one CHAT turn end to end: prompt assembly, dispatch, the
// soft-retry guard, the optional research fallback, event emission, and an
// async memory-save kickoff.
func (l *Loop) Run(ctx context.Context, t Turn) Result {
	analysis := persona.NewAnalyzer().Analyze(t.UserMessage, t.History, t.Memories)
	systemPrompt := persona.BuildSystemPrompt(t.BaseSystemText, analysis, t.Memories, l.memCfg.PersonaBlockCap, l.memCfg.ChatPromptTotalCap)

	messages := make([]brain.Message, 0, len(t.History)+2)
	messages = append(messages, brain.Message{Role: "system", Content: systemPrompt})
	for _, h := range t.History {
		messages = append(messages, brain.Message{Role: h.Role, Content: h.Content})
	}
	messages = append(messages, brain.Message{Role: "user", Content: t.UserMessage})

	req := &brain.Request{
		RunID:         t.RunID,
		StepID:        t.StepID,
		Purpose:       brain.PurposeChatResponse,
		Messages:      messages,
		Temperature:   l.cfg.Temperature,
		TopP:          l.cfg.TopP,
		RepeatPenalty: l.cfg.RepeatPenalty,
		MaxTokens:     l.cfg.NumPredict,
	}

	resp := l.brain.Dispatch(ctx, req)
	draft, degraded, hits := l.softRetry(ctx, t, req, resp)

	if l.research != nil && l.cfg.AutoWebResearch && looksUncertain(draft) && looksInformational(t.UserMessage) {
		l.emitProgress(ctx, t.RunID, "chat_auto_web_research_started")
		if text, ok := l.research.Research(ctx, t.RunID, t.StepID, t.UserMessage); ok && text != "" {
			draft = text
			l.emitProgress(ctx, t.RunID, "chat_auto_web_research_done")
		} else {
			l.emitProgress(ctx, t.RunID, "chat_auto_web_research_empty")
		}
	}

	result := Result{
		Text:      draft,
		Provider:  "local",
		Model:     modelOf(resp),
		LatencyMS: latencyOf(resp),
		Degraded:  degraded,
		GuardHits: hits,
	}

	if degraded {
		recordDegraded(ctx, degradedReason(hits))
	}

	l.emitGenerated(ctx, t.RunID, result)
	l.kickOffMemorySave(ctx, t, analysis, draft)

	return result
}

func modelOf(resp *brain.Response) string {
	if resp == nil {
		return ""
	}
	return resp.Model
}

func latencyOf(resp *brain.Response) int64 {
	if resp == nil {
		return 0
	}
	return resp.LatencyMS
}

// softRetry ports spec.md §4.8 step 3's remediation ladder: off_topic gets
// a minimal focused retry then a base-model retry then a fallback guard
// text; ru_language_mismatch gets a strict rewrite-to-Russian retry on the
// base model; every other guard hit gets a soft continuation retry, falling
// back to the base model if that also fails.
func (l *Loop) softRetry(ctx context.Context, t Turn, req *brain.Request, resp *brain.Response) (string, bool, []GuardReason) {
	draft := textOf(resp)
	hits := classifyGuards(t.UserMessage, draft)
	if draft != "" && len(hits) == 0 {
		return draft, false, nil
	}

	if hasReason(hits, GuardOffTopic) {
		focused := l.retryFocused(ctx, t, req)
		if focused != "" && !offTopic(t.UserMessage, focused) {
			return focused, true, hits
		}
		baseRetry := l.retryOnBase(ctx, req, "Answer strictly and only the user's question: "+t.UserMessage)
		if baseRetry != "" && !offTopic(t.UserMessage, baseRetry) {
			return baseRetry, true, hits
		}
		return fallbackGuardText(t.UserMessage), true, hits
	}

	if hasReason(hits, GuardRULanguageMismatch) {
		rewritten := l.retryOnBase(ctx, req, "Rewrite the following answer in Russian only. Do not add new facts, do not change meaning:\n\n"+draft)
		if rewritten != "" {
			return rewritten, true, hits
		}
		return draft, true, hits
	}

	continuation := l.retryContinuation(ctx, req, draft)
	if continuation != "" {
		hits2 := classifyGuards(t.UserMessage, continuation)
		if len(hits2) == 0 {
			return continuation, true, hits
		}
	}
	baseRetry := l.retryOnBase(ctx, req, t.UserMessage)
	if baseRetry != "" {
		return baseRetry, true, hits
	}
	return draft, true, hits
}

func hasReason(hits []GuardReason, r GuardReason) bool {
	for _, h := range hits {
		if h == r {
			return true
		}
	}
	return false
}

func textOf(resp *brain.Response) string {
	if resp == nil || !resp.OK {
		return ""
	}
	return resp.Text
}

func (l *Loop) retryFocused(ctx context.Context, t Turn, req *brain.Request) string {
	focused := &brain.Request{
		RunID:   req.RunID,
		StepID:  req.StepID,
		Purpose: brain.PurposeChatResponse,
		Messages: []brain.Message{
			{Role: "system", Content: "Answer only what the user asked, directly and concisely."},
			{Role: "user", Content: t.UserMessage},
		},
		Temperature: req.Temperature,
		TopP:        req.TopP,
	}
	return textOf(l.brain.Dispatch(ctx, focused))
}

func (l *Loop) retryOnBase(ctx context.Context, req *brain.Request, userContent string) string {
	baseReq := &brain.Request{
		RunID:     req.RunID,
		StepID:    req.StepID,
		Purpose:   req.Purpose,
		Preferred: brain.PreferredKindChat,
		Messages: []brain.Message{
			{Role: "user", Content: userContent},
		},
	}
	return textOf(l.brain.Dispatch(ctx, baseReq))
}

func (l *Loop) retryContinuation(ctx context.Context, req *brain.Request, draft string) string {
	continued := &brain.Request{
		RunID:   req.RunID,
		StepID:  req.StepID,
		Purpose: req.Purpose,
		Messages: append(append([]brain.Message{}, req.Messages...),
			brain.Message{Role: "assistant", Content: draft},
			brain.Message{Role: "user", Content: "Continue and correct the answer above so it fully and directly answers the question."},
		),
	}
	return textOf(l.brain.Dispatch(ctx, continued))
}

func fallbackGuardText(userText string) string {
	return fmt.Sprintf("I want to make sure I answer exactly what you asked: %q. Would you like a short answer or a longer, more detailed one?", userText)
}

func (l *Loop) emitProgress(ctx context.Context, runID, phase string) {
	if l.bus == nil {
		return
	}
	_, _ = l.bus.Emit(ctx, runID, events.TypeTaskProgress, phase, map[string]any{"phase": phase}, store.LevelInfo, nil, nil)
}

func (l *Loop) emitGenerated(ctx context.Context, runID string, result Result) {
	if l.bus == nil {
		return
	}
	_, _ = l.bus.Emit(ctx, runID, events.TypeChatResponseGenerated, "chat response generated", map[string]any{
		"provider":   result.Provider,
		"model":      result.Model,
		"latency_ms": result.LatencyMS,
		"degraded":   result.Degraded,
	}, store.LevelInfo, nil, nil)
}

func (l *Loop) kickOffMemorySave(ctx context.Context, t Turn, analysis persona.Analysis, draft string) {
	if l.interpreter == nil || l.store == nil {
		return
	}
	interpreted, err := l.interpreter.Interpret(ctx, t.RunID, t.StepID, t.UserMessage, draft)
	if err != nil {
		interpreted = &memory.Payload{}
	}
	merged := memory.Merge(*interpreted, memory.ToneDerivedPayload(analysis))
	memory.SaveAsync(l.store, l.bus, t.RunID, merged)
}
