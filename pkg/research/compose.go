package research

import (
	"context"
	"fmt"
	"strings"

	"github.com/astra-ai/kernel/pkg/brain"
)

const composeSystemPrompt = `You write a grounded answer to the user's question from the provided sources only.
Structure: a short summary paragraph, then supporting details, then a "## Источники" section listing every source URL you used, one per line as "- title - url".
Do not invent facts not present in the sources. Write in the same language as the query.`

// composeAnswer asks the Brain Router to write the final markdown answer
// from the surviving pages (spec.md §4.9 step 6), then cleans it.
func composeAnswer(ctx context.Context, b *brain.Router, runID, stepID, query string, pages []Page) string {
	corpus := ""
	for _, p := range pages {
		corpus += fmt.Sprintf("- %s (%s): %s\n", p.Title, p.URL, truncateForPrompt(p.ExtractedText, 1200))
	}

	req := &brain.Request{
		RunID:   runID,
		StepID:  stepID,
		Purpose: brain.PurposeResearch,
		Messages: []brain.Message{
			{Role: "system", Content: composeSystemPrompt},
			{Role: "user", Content: fmt.Sprintf("Query: %s\n\nSources:\n%s", query, corpus)},
		},
	}
	resp := b.Dispatch(ctx, req)
	if resp == nil || !resp.OK {
		return ""
	}
	return cleanAnswerMarkdown(resp.Text, query)
}

func truncateForPrompt(s string, maxRunes int) string {
	r := []rune(s)
	if len(r) <= maxRunes {
		return s
	}
	return string(r[:maxRunes])
}

// cleanAnswerMarkdown removes delimiter-noise lines, strips CJK noise for
// non-CJK queries, and collapses duplicate numbered list lines
// (spec.md §4.9 step 6).
func cleanAnswerMarkdown(markdown, query string) string {
	lines := strings.Split(markdown, "\n")
	seen := make(map[string]bool, len(lines))
	kept := make([]string, 0, len(lines))

	for _, line := range lines {
		trimmed := strings.TrimRight(line, " \t")
		bare := strings.TrimSpace(trimmed)
		if bare == "" {
			kept = append(kept, "")
			continue
		}
		if garbageLineRe.MatchString(bare) {
			continue
		}
		if !containsCJKRune(query) && cjkRuneRatio(bare) > 0.6 {
			continue
		}
		key := strings.ToLower(bare)
		if seen[key] {
			continue
		}
		seen[key] = true
		kept = append(kept, trimmed)
	}

	return collapseBlankLines(strings.Join(kept, "\n"))
}

func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			if blank {
				continue
			}
			blank = true
		} else {
			blank = false
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// formatSourcesBlock renders a "## Источники" fallback block for when the
// composed answer doesn't already contain one (mirrors
// _format_web_research_sources in the original chat route).
func formatSourcesBlock(sources []SourceRecord, limit int) string {
	var b strings.Builder
	seen := make(map[string]bool, len(sources))
	count := 0
	for _, s := range sources {
		if s.URL == "" || seen[s.URL] {
			continue
		}
		seen[s.URL] = true
		label := s.Title
		if label == "" {
			label = s.URL
		}
		fmt.Fprintf(&b, "- %s - %s\n", label, s.URL)
		count++
		if count >= limit {
			break
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
