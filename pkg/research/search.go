package research

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// blockedDomains mirrors the original assistant's source block list: search
// engines, image/video walls, and other domains that never yield usable
// extracted text.
var blockedDomains = map[string]bool{
	"baidu.com":    true,
	"pinterest.com": true,
	"instagram.com": true,
	"tiktok.com":   true,
	"youtube.com":  true,
	"facebook.com": true,
}

// trackingParamPrefixes are query-string keys stripped during normalization
// regardless of value (spec.md §4.9 step 1: "strip tracking params utm_*,
// gclid, etc.").
var trackingParamPrefixes = []string{"utm_"}

var trackingParamExact = map[string]bool{
	"gclid":  true,
	"fbclid": true,
	"msclkid": true,
	"yclid":  true,
	"mc_eid": true,
}

func isTrackingParam(key string) bool {
	lower := strings.ToLower(key)
	if trackingParamExact[lower] {
		return true
	}
	for _, prefix := range trackingParamPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

// normalizeURL lowercases the host, strips tracking params, canonicalizes
// the path (no trailing slash beyond root), and sorts the remaining query
// params so equivalent URLs compare equal.
func normalizeURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	if u.Host == "" {
		return "", fmt.Errorf("research: no host in %q", raw)
	}
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	path := u.Path
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	u.Path = path

	q := u.Query()
	for key := range q {
		if isTrackingParam(key) {
			q.Del(key)
		}
	}
	keys := make([]string, 0, len(q))
	for key := range q {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	values := url.Values{}
	for _, key := range keys {
		values[key] = q[key]
	}
	u.RawQuery = values.Encode()

	return u.String(), nil
}

// normalizeURLs normalizes and deduplicates a list of raw URLs, preserving
// first-seen order.
func normalizeURLs(raw []string) []string {
	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		normalized, err := normalizeURL(r)
		if err != nil {
			continue
		}
		if seen[normalized] {
			continue
		}
		seen[normalized] = true
		out = append(out, normalized)
	}
	return out
}

func domainOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

func isBlockedDomain(domain string) bool {
	domain = strings.TrimPrefix(domain, "www.")
	return blockedDomains[domain]
}

// candidateFromResult maps one raw search hit to a Candidate, dropping
// blocked-domain or unparseable URLs and normalizing what remains
// (spec.md §4.9 step 1).
func candidateFromResult(r SearchResult) *Candidate {
	normalized, err := normalizeURL(r.URL)
	if err != nil {
		return nil
	}
	domain := domainOf(normalized)
	if domain == "" || isBlockedDomain(domain) {
		return nil
	}
	return &Candidate{URL: normalized, Title: r.Title, Snippet: r.Snippet, Domain: domain}
}

// candidatesFromResults maps and dedups an entire search response.
func candidatesFromResults(results []SearchResult) []Candidate {
	seen := make(map[string]bool, len(results))
	out := make([]Candidate, 0, len(results))
	for _, r := range results {
		c := candidateFromResult(r)
		if c == nil || seen[c.URL] {
			continue
		}
		seen[c.URL] = true
		out = append(out, *c)
	}
	return out
}

// noopSearchClient is used when no SearchClient is injected; it always
// returns an empty result set rather than erroring, so a misconfigured
// deployment degrades to "no sources found" instead of a hard failure.
type noopSearchClient struct{}

func (noopSearchClient) Search(_ context.Context, _ string) ([]SearchResult, error) {
	return nil, nil
}
