package research

import (
	"context"
	"log/slog"
	"strings"

	"github.com/astra-ai/kernel/pkg/store"
)

// persist dedups new sources/artifacts against existing run records before
// inserting (spec.md §4.9: "Source URLs and artifact content_uri are
// deduped against existing run records before insert"). Persistence
// failures are logged, not surfaced — spec.md §4.9 step 7 says the skill
// still returns its in-memory Result regardless.
func (sk *Skill) persist(ctx context.Context, runID string, sources []SourceRecord, artifacts []ArtifactRecord) {
	if sk.store == nil {
		return
	}

	existingSources, err := sk.store.ListSources(ctx, runID)
	if err != nil {
		slog.Warn("research: list sources failed", "run_id", runID, "error", err)
		existingSources = nil
	}
	existingURLs := make(map[string]bool, len(existingSources))
	for _, s := range existingSources {
		existingURLs[s.URL] = true
	}

	var toInsert []*store.Source
	for _, s := range sources {
		if s.URL == "" || existingURLs[s.URL] {
			continue
		}
		existingURLs[s.URL] = true
		toInsert = append(toInsert, &store.Source{
			RunID:       runID,
			URL:         s.URL,
			Title:       s.Title,
			Domain:      s.Domain,
			Snippet:     s.Snippet,
			RetrievedAt: s.RetrievedAt,
		})
	}
	if len(toInsert) > 0 {
		if err := sk.store.InsertSources(ctx, runID, toInsert); err != nil {
			slog.Warn("research: insert sources failed", "run_id", runID, "error", err)
		}
	}

	existingArtifacts, err := sk.store.ListArtifacts(ctx, runID)
	if err != nil {
		slog.Warn("research: list artifacts failed", "run_id", runID, "error", err)
		existingArtifacts = nil
	}
	existingURIs := make(map[string]bool, len(existingArtifacts))
	for _, a := range existingArtifacts {
		existingURIs[a.ContentURI] = true
	}

	var artifactsToInsert []*store.Artifact
	for _, a := range artifacts {
		if a.ContentURI == "" || existingURIs[a.ContentURI] {
			continue
		}
		existingURIs[a.ContentURI] = true
		artifactsToInsert = append(artifactsToInsert, &store.Artifact{
			RunID:      runID,
			Kind:       a.Kind,
			ContentURI: a.ContentURI,
			CreatedAt:  a.CreatedAt,
		})
	}
	if len(artifactsToInsert) > 0 {
		if err := sk.store.InsertArtifacts(ctx, runID, artifactsToInsert); err != nil {
			slog.Warn("research: insert artifacts failed", "run_id", runID, "error", err)
		}
	}
}

// composeChatText mirrors _compose_web_research_chat_text: prefer the
// composed markdown answer, fall back to what_i_did plus a note, and
// append a sources block if the answer doesn't already carry one.
func composeChatText(r Result) string {
	answer := r.AnswerMD
	if answer == "" && r.WhatIDid != "" {
		answer = r.WhatIDid
	}
	if answer == "" {
		return ""
	}
	if len(r.Sources) > 0 && !containsSourcesHeading(answer) {
		block := formatSourcesBlock(r.Sources, 5)
		if block != "" {
			answer = answer + "\n\n## Источники\n" + block
		}
	}
	return answer
}

func containsSourcesHeading(s string) bool {
	return strings.Contains(strings.ToLower(s), "источники")
}
