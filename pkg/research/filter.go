package research

import (
	"regexp"
	"strings"
)

// researchStopwords mirrors pkg/chat's stopword set for the same reason:
// short function words carry no topical signal and would otherwise inflate
// anchor-token counts.
var researchStopwords = map[string]bool{
	"и": true, "в": true, "на": true, "с": true, "по": true, "для": true,
	"что": true, "как": true, "это": true, "a": true, "the": true, "is": true,
	"to": true, "of": true, "and": true, "in": true, "for": true, "me": true,
	"про": true, "или": true, "а": true, "но": true, "же": true,
}

var anchorTokenRe = regexp.MustCompile(`[\p{L}\p{N}_-]+`)

// anchorTokens extracts the query's topic-anchor words (spec.md §4.9 step
// 3: "domain-specific anchors" — the query itself is the domain here,
// since each round re-derives anchors from its own query rather than the
// original chat turn).
func anchorTokens(text string) []string {
	var out []string
	for _, tok := range anchorTokenRe.FindAllString(strings.ToLower(text), -1) {
		if len([]rune(tok)) < 4 || researchStopwords[tok] {
			continue
		}
		out = append(out, tok)
	}
	return out
}

func anchorOverlap(tokens []string, haystack string) int {
	lowered := strings.ToLower(haystack)
	count := 0
	for _, t := range tokens {
		if strings.Contains(lowered, t) {
			count++
		}
	}
	return count
}

// sourceOffTopic mirrors pkg/chat's off-topic heuristic: a page whose
// cleaned text shares fewer than 2 of the query's >=3 anchor tokens is
// dropped before it ever reaches the judge.
func sourceOffTopic(query string, page Page) bool {
	tokens := anchorTokens(query)
	if len(tokens) < 3 {
		return false
	}
	return anchorOverlap(tokens, page.ExtractedText) < 2
}

// filterOffTopic partitions pages into on-topic survivors and the count of
// pages dropped, for the round's assumption/event bookkeeping.
func filterOffTopic(query string, pages []Page) (kept []Page, droppedCount int) {
	kept = make([]Page, 0, len(pages))
	for _, p := range pages {
		if sourceOffTopic(query, p) {
			droppedCount++
			continue
		}
		kept = append(kept, p)
	}
	return kept, droppedCount
}
