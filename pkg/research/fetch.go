package research

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"unicode"
)

// maxConcurrentFetches bounds how many candidates are fetched at once
// within a single round (spec.md §4.9 step 2: "concurrency-capped").
const maxConcurrentFetches = 4

// garbageLineRe matches delimiter-only noise lines (e.g. "####!!!!!####")
// that some extractors leave behind.
var garbageLineRe = regexp.MustCompile(`^[\p{P}\p{S}\s]{4,}$`)

func isCJK(r rune) bool {
	return unicode.Is(unicode.Han, r) || unicode.Is(unicode.Hiragana, r) || unicode.Is(unicode.Katakana, r) || unicode.Is(unicode.Hangul, r)
}

func containsCJKRune(s string) bool {
	for _, r := range s {
		if isCJK(r) {
			return true
		}
	}
	return false
}

// cjkRuneRatio reports the fraction of letter runes in s that are CJK.
func cjkRuneRatio(s string) float64 {
	var letters, cjk int
	for _, r := range s {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if isCJK(r) {
			cjk++
		}
	}
	if letters == 0 {
		return 0
	}
	return float64(cjk) / float64(letters)
}

// cleanExtractedText rejects CJK-dominated noise when the query itself is
// not CJK, and strips garbage delimiter lines (spec.md §4.9 step 2).
func cleanExtractedText(text, query string) string {
	if text == "" {
		return ""
	}
	if !containsCJKRune(query) && cjkRuneRatio(text) > 0.5 {
		return ""
	}

	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if garbageLineRe.MatchString(trimmed) {
			continue
		}
		kept = append(kept, trimmed)
	}
	return strings.Join(kept, "\n")
}

// fetchAll runs fetcher over every candidate with bounded concurrency and
// returns one Page per candidate that fetched and cleaned successfully.
// Fetch errors are dropped silently here; the caller records the round's
// assumptions based on how many pages came back empty.
func fetchAll(ctx context.Context, fetcher Fetcher, query string, candidates []Candidate) []Page {
	type indexed struct {
		i    int
		page *Page
	}
	results := make([]*Page, len(candidates))
	sem := make(chan struct{}, maxConcurrentFetches)
	var wg sync.WaitGroup

	out := make(chan indexed, len(candidates))
	for i, c := range candidates {
		wg.Add(1)
		go func(i int, c Candidate) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			fr := fetcher.Fetch(ctx, c)
			if fr.Err != nil || fr.ExtractedText == "" {
				out <- indexed{i: i, page: nil}
				return
			}
			cleaned := cleanExtractedText(fr.ExtractedText, query)
			if cleaned == "" {
				out <- indexed{i: i, page: nil}
				return
			}
			out <- indexed{i: i, page: &Page{
				URL:           c.URL,
				FinalURL:      fr.FinalURL,
				Title:         firstNonEmptyStr(fr.Title, c.Title),
				Domain:        firstNonEmptyStr(fr.Domain, c.Domain),
				Snippet:       firstNonEmptyStr(fr.Snippet, c.Snippet),
				ExtractedText: cleaned,
			}}
		}(i, c)
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	for item := range out {
		results[item.i] = item.page
	}

	pages := make([]Page, 0, len(candidates))
	for _, p := range results {
		if p != nil {
			pages = append(pages, *p)
		}
	}
	return pages
}

func firstNonEmptyStr(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
