// Package research implements the Web Research Skill (spec.md §4.9): an
// iterative search -> fetch -> judge -> compose loop that produces a
// grounded, sourced answer when a chat draft is insufficient.
package research

import (
	"context"
	"time"
)

// SearchResult is one raw hit returned by an injected search client.
type SearchResult struct {
	URL     string
	Title   string
	Snippet string
}

// SearchClient is the injected search dependency (spec.md §4.9 step 1).
type SearchClient interface {
	Search(ctx context.Context, query string) ([]SearchResult, error)
}

// Candidate is a search result after domain-block filtering, URL
// normalization, and dedup.
type Candidate struct {
	URL     string
	Title   string
	Snippet string
	Domain  string
}

// FetchResult is what an injected fetcher returns for one candidate
// (spec.md §4.9 step 2).
type FetchResult struct {
	URL           string
	FinalURL      string
	Title         string
	Domain        string
	Snippet       string
	ExtractedText string
	Err           error
}

// Fetcher is the injected page-fetch dependency.
type Fetcher interface {
	Fetch(ctx context.Context, candidate Candidate) FetchResult
}

// Page is a fetched, cleaned, on-topic source ready to feed the judge.
type Page struct {
	URL           string
	FinalURL      string
	Title         string
	Domain        string
	Snippet       string
	ExtractedText string
}

// JudgeVerdict is the strict-JSON-schema judge response (spec.md §4.9
// step 4).
type JudgeVerdict struct {
	Decision      string
	Score         float64
	Why           string
	NextQuery     string
	MissingTopics []string
	NeedSources   int
	UsedURLs      []string
}

// SourceRecord is a page that survived into the final answer, ready for
// persistence as a store.Source.
type SourceRecord struct {
	URL         string
	Title       string
	Domain      string
	Snippet     string
	RetrievedAt time.Time
}

// ArtifactRecord is a produced document ready for persistence as a
// store.Artifact.
type ArtifactRecord struct {
	Kind       string
	ContentURI string
	Content    string
	CreatedAt  time.Time
}

// ProgressEvent is one phase transition emitted while the skill runs.
type ProgressEvent struct {
	Message    string
	ReasonCode string
	Payload    map[string]any
}

// Input parameterizes one invocation of the skill.
type Input struct {
	Query     string
	Mode      string // "deep" or "" (default/shallow)
	MaxRounds int
}

// Result is what the skill returns to its caller (spec.md §4.9 step 7:
// SkillResult{what_i_did, sources[], facts[], artifacts[], confidence,
// assumptions[], events[]}).
type Result struct {
	WhatIDid    string
	Sources     []SourceRecord
	Facts       []string
	Artifacts   []ArtifactRecord
	Confidence  float64
	Assumptions []string
	Events      []ProgressEvent
	AnswerMD    string
}
