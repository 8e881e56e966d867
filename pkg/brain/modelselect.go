package brain

import (
	"strings"
	"unicode/utf8"

	"github.com/astra-ai/kernel/pkg/config"
)

// selectTier resolves the model tier for req per spec.md §4.4. PreferredKind
// always wins for code requests; otherwise tiering only applies to
// chat_response purpose, inspecting the most recent user message.
func selectTier(cfg *config.BrainConfig, req *Request) ModelTier {
	if req.Preferred == PreferredKindCode {
		return TierCode
	}
	if req.Purpose != PurposeChatResponse {
		return TierBase
	}

	msg := lastUserMessage(req.Messages)
	chars := utf8.RuneCountInString(msg)
	words := len(strings.Fields(msg))
	hasCodeFence := strings.Contains(msg, "```")
	lower := strings.ToLower(msg)

	if chars >= cfg.ComplexCharCap || words >= cfg.ComplexWordCap || hasCodeFence || containsAny(lower, cfg.ComplexCuesRU) {
		if cfg.ComplexChatModel != "" {
			return TierComplex
		}
		return TierBase
	}

	if chars <= cfg.FastCharCap && words <= cfg.FastWordCap && !hasCodeFence && !containsAny(lower, cfg.FastExcludeCues) {
		if cfg.FastChatModel != "" {
			return TierFast
		}
	}

	return TierBase
}

// modelForTier maps a resolved tier to the configured model name, falling
// back to the base model when an optional tier has none configured.
func modelForTier(cfg *config.BrainConfig, tier ModelTier) string {
	switch tier {
	case TierFast:
		if cfg.FastChatModel != "" {
			return cfg.FastChatModel
		}
	case TierComplex:
		if cfg.ComplexChatModel != "" {
			return cfg.ComplexChatModel
		}
	case TierCode:
		return cfg.CodeModel
	}
	return cfg.BaseChatModel
}

func lastUserMessage(msgs []Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == "user" {
			return msgs[i].Content
		}
	}
	return ""
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if n == "" {
			continue
		}
		if strings.Contains(haystack, strings.ToLower(n)) {
			return true
		}
	}
	return false
}
