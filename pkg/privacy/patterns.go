package privacy

import "regexp"

// redactionPattern pairs a compiled regex with its replacement, mirroring
// the teacher's CompiledPattern (pkg/masking/pattern.go) — compiled once at
// package init rather than per-call.
type redactionPattern struct {
	name        string
	regex       *regexp.Regexp
	replacement string
}

// builtinPatterns is the fixed secret-redaction pattern set (spec.md §4.3:
// "API keys, bearer tokens, password=, sk-…"). All replacements collapse to
// the single literal "[REDACTED]" token — callers never see which pattern
// matched, only that something was removed.
var builtinPatterns = compilePatterns([]struct {
	name, pattern string
}{
	{"openai_style_key", `\bsk-[A-Za-z0-9_-]{16,}\b`},
	{"bearer_token", `(?i)\bbearer\s+[A-Za-z0-9._~+/=-]{8,}\b`},
	{"password_assignment", `(?i)\bpassword\s*[:=]\s*\S+`},
	{"api_key_assignment", `(?i)\bapi[_-]?key\s*[:=]\s*\S+`},
	{"aws_access_key", `\bAKIA[0-9A-Z]{16}\b`},
	{"generic_secret_assignment", `(?i)\b(?:secret|token|auth)[_-]?(?:key|token)?\s*[:=]\s*\S+`},
	{"jwt", `\beyJ[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\b`},
})

func compilePatterns(defs []struct{ name, pattern string }) []*redactionPattern {
	out := make([]*redactionPattern, 0, len(defs))
	for _, d := range defs {
		out = append(out, &redactionPattern{
			name:        d.name,
			regex:       regexp.MustCompile(d.pattern),
			replacement: "[REDACTED]",
		})
	}
	return out
}

// redact applies every builtin pattern to s and reports how many
// replacements were made across all patterns.
func redact(s string) (string, int) {
	hits := 0
	for _, p := range builtinPatterns {
		s = p.regex.ReplaceAllStringFunc(s, func(m string) string {
			hits++
			return p.replacement
		})
	}
	return s, hits
}
