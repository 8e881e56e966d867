package research

import (
	"context"
	"fmt"
	"time"

	"github.com/astra-ai/kernel/pkg/brain"
	"github.com/astra-ai/kernel/pkg/config"
	"github.com/astra-ai/kernel/pkg/events"
	"github.com/astra-ai/kernel/pkg/store"
)

const defaultMaxSourcesTotal = 8

// Skill runs the Web Research Skill end to end (spec.md §4.9).
type Skill struct {
	brain  *brain.Router
	bus    *events.Bus
	store  store.Store
	cfg    *config.ChatLoopConfig
	search SearchClient
	fetch  Fetcher
	now    func() time.Time
}

// NewSkill constructs a Skill. search/fetch may be nil to exercise the
// "no sources found" degradation path deterministically in tests.
func NewSkill(b *brain.Router, bus *events.Bus, s store.Store, cfg *config.ChatLoopConfig, search SearchClient, fetch Fetcher) *Skill {
	if search == nil {
		search = noopSearchClient{}
	}
	return &Skill{brain: b, bus: bus, store: s, cfg: cfg, search: search, fetch: fetch, now: time.Now}
}

// Research implements chat.ResearchInvoker: the Chat Loop's auto-web-
// research fallback calls this with no plan-step context, so it runs the
// skill and composes the final chat-visible text from the result
// (spec.md §4.9 step 7 + the chat route's _compose_web_research_chat_text).
func (sk *Skill) Research(ctx context.Context, runID, stepID, query string) (string, bool) {
	result := sk.Run(ctx, runID, stepID, Input{Query: query, Mode: sk.cfg.ResearchDepth, MaxRounds: sk.maxRounds()})
	text := composeChatText(result)
	return text, text != ""
}

func (sk *Skill) maxRounds() int {
	if sk.cfg != nil && sk.cfg.MaxResearchRounds > 0 {
		return sk.cfg.MaxResearchRounds
	}
	return 2
}

func (sk *Skill) maxPages() int {
	if sk.cfg != nil && sk.cfg.MaxPages > 0 {
		return sk.cfg.MaxPages
	}
	return 4
}

func (sk *Skill) maxSources() int {
	if sk.cfg != nil && sk.cfg.MaxSources > 0 {
		return sk.cfg.MaxSources
	}
	return defaultMaxSourcesTotal
}

// Run executes the full search -> fetch -> filter -> judge -> compose loop
// for one invocation, persists new sources/artifacts, and emits progress
// events.
func (sk *Skill) Run(ctx context.Context, runID, stepID string, in Input) Result {
	maxRounds := in.MaxRounds
	if maxRounds <= 0 {
		maxRounds = sk.maxRounds()
	}
	if in.Mode != "deep" && maxRounds > 1 {
		// Shallow mode never iterates past the first round even when the
		// judge asks for a follow-up query.
		maxRounds = 1
	}

	sk.emit(ctx, runID, "chat_auto_web_research_started", "", nil)

	var (
		allPages    []Page
		assumptions []string
		evts        []ProgressEvent
		lastVerdict JudgeVerdict
	)
	query := in.Query

	for round := 0; round < maxRounds; round++ {
		results, err := sk.search.Search(ctx, query)
		if err != nil {
			assumptions = append(assumptions, fmt.Sprintf("search_error:%v", err))
			break
		}
		candidates := candidatesFromResults(results)
		if len(candidates) == 0 {
			assumptions = append(assumptions, "no_candidates")
			break
		}
		if max := sk.maxPages(); max > 0 && len(candidates) > max {
			candidates = candidates[:max]
		}

		var pages []Page
		if sk.fetch != nil {
			pages = fetchAll(ctx, sk.fetch, query, candidates)
		}
		if len(pages) == 0 {
			assumptions = append(assumptions, "no_pages_fetched")
			break
		}

		kept, dropped := filterOffTopic(query, pages)
		if dropped > 0 {
			assumptions = append(assumptions, "source_off_topic")
			evt := ProgressEvent{Message: "chat_auto_web_research_off_topic", ReasonCode: "source_off_topic", Payload: map[string]any{"dropped": dropped}}
			evts = append(evts, evt)
			sk.emit(ctx, runID, evt.Message, evt.ReasonCode, evt.Payload)
		}
		if len(kept) == 0 {
			break
		}
		allPages = append(allPages, kept...)
		if len(allPages) > sk.maxSources() {
			allPages = allPages[:sk.maxSources()]
		}

		verdict, failureReason := judgeResearch(ctx, sk.brain, runID, stepID, query, allPages)
		lastVerdict = verdict
		if failureReason != "" {
			reason := "judge_fallback:" + failureReason
			assumptions = append(assumptions, reason)
			evt := ProgressEvent{Message: "chat_auto_web_research_failed", ReasonCode: "judge_fallback", Payload: map[string]any{"reason": failureReason}}
			evts = append(evts, evt)
			sk.emit(ctx, runID, evt.Message, evt.ReasonCode, evt.Payload)
		}

		if verdict.Decision == "ENOUGH" {
			break
		}
		if verdict.NextQuery == "" {
			assumptions = append(assumptions, "judge_next_query_missing")
			break
		}
		query = verdict.NextQuery
	}

	if len(allPages) == 0 {
		sk.emit(ctx, runID, "chat_auto_web_research_empty", "", nil)
		return Result{
			WhatIDid:    "Searched the web but found no usable sources.",
			Confidence:  0,
			Assumptions: assumptions,
			Events:      evts,
		}
	}

	answer := composeAnswer(ctx, sk.brain, runID, stepID, in.Query, allPages)
	sources := sourcesFromPages(allPages, sk.now())
	if answer == "" {
		answer = fallbackAnswer(in.Query, sources)
	}

	artifact := ArtifactRecord{
		Kind:       "web_research_answer_md",
		ContentURI: artifactPath(runID),
		Content:    answer,
		CreatedAt:  sk.now(),
	}

	sk.persist(ctx, runID, sources, []ArtifactRecord{artifact})
	sk.emit(ctx, runID, "chat_auto_web_research_done", "", nil)

	return Result{
		WhatIDid:    fmt.Sprintf("Researched %q and gathered %d source(s).", in.Query, len(sources)),
		Sources:     sources,
		Facts:       verdictFacts(lastVerdict),
		Artifacts:   []ArtifactRecord{artifact},
		Confidence:  lastVerdict.Score,
		Assumptions: assumptions,
		Events:      evts,
		AnswerMD:    answer,
	}
}

func verdictFacts(v JudgeVerdict) []string {
	if v.Why == "" {
		return nil
	}
	return []string{v.Why}
}

func sourcesFromPages(pages []Page, at time.Time) []SourceRecord {
	out := make([]SourceRecord, 0, len(pages))
	for _, p := range pages {
		out = append(out, SourceRecord{
			URL:         p.URL,
			Title:       p.Title,
			Domain:      p.Domain,
			Snippet:     p.Snippet,
			RetrievedAt: at,
		})
	}
	return out
}

func fallbackAnswer(query string, sources []SourceRecord) string {
	block := formatSourcesBlock(sources, 5)
	if block == "" {
		return ""
	}
	return fmt.Sprintf("Собрал следующие материалы по запросу %q.\n\n## Источники\n%s", query, block)
}

func artifactPath(runID string) string {
	return fmt.Sprintf("runs/%s/web_research_answer.md", runID)
}

func (sk *Skill) emit(ctx context.Context, runID, message, reasonCode string, payload map[string]any) {
	if sk.bus == nil || message == "" {
		return
	}
	if payload == nil {
		payload = map[string]any{}
	}
	if reasonCode != "" {
		payload["reason_code"] = reasonCode
	}
	_, _ = sk.bus.Emit(ctx, runID, events.TypeTaskProgress, message, payload, store.LevelInfo, nil, nil)
}
