package brain

import (
	"testing"

	"github.com/astra-ai/kernel/pkg/config"
	"github.com/stretchr/testify/assert"
)

func testBrainConfig() *config.BrainConfig {
	return &config.BrainConfig{
		BaseChatModel:    "base-model",
		FastChatModel:    "fast-model",
		ComplexChatModel: "complex-model",
		CodeModel:        "code-model",
		FastCharCap:      40,
		FastWordCap:      8,
		ComplexCharCap:   200,
		ComplexWordCap:   40,
		ComplexCuesRU:    []string{"архитект", "план", "сравни", "детал", "подроб", "анализ", "формул", "доказ", "рефактор"},
		FastExcludeCues:  []string{"детал", "архитект", "анализ", "сравни", "подроб", "формул"},
	}
}

func userMsg(content string) []Message {
	return []Message{{Role: "user", Content: content}}
}

func TestSelectTier_PreferredCodeAlwaysWins(t *testing.T) {
	cfg := testBrainConfig()
	req := &Request{Purpose: PurposeChatResponse, Preferred: PreferredKindCode, Messages: userMsg("hi")}
	assert.Equal(t, TierCode, selectTier(cfg, req))
	assert.Equal(t, cfg.CodeModel, modelForTier(cfg, TierCode))
}

func TestSelectTier_FastForShortPlainMessage(t *testing.T) {
	cfg := testBrainConfig()
	req := &Request{Purpose: PurposeChatResponse, Messages: userMsg("2+2?")}
	assert.Equal(t, TierFast, selectTier(cfg, req))
}

func TestSelectTier_ComplexOnLengthThreshold(t *testing.T) {
	cfg := testBrainConfig()
	long := make([]byte, 0, 250)
	for i := 0; i < 250; i++ {
		long = append(long, 'a')
	}
	req := &Request{Purpose: PurposeChatResponse, Messages: userMsg(string(long))}
	assert.Equal(t, TierComplex, selectTier(cfg, req))
}

func TestSelectTier_ComplexOnRussianCue(t *testing.T) {
	cfg := testBrainConfig()
	req := &Request{
		Purpose:  PurposeChatResponse,
		Messages: userMsg("Составь подробный план тренировок на месяц с этапами, рисками и метриками прогресса."),
	}
	assert.Equal(t, TierComplex, selectTier(cfg, req))
}

func TestSelectTier_ComplexOnCodeFence(t *testing.T) {
	cfg := testBrainConfig()
	req := &Request{Purpose: PurposeChatResponse, Messages: userMsg("short but has ```code```")}
	assert.Equal(t, TierComplex, selectTier(cfg, req))
}

func TestSelectTier_FastExcludedByFastExcludeCue(t *testing.T) {
	cfg := testBrainConfig()
	req := &Request{Purpose: PurposeChatResponse, Messages: userMsg("детал")}
	assert.NotEqual(t, TierFast, selectTier(cfg, req))
}

func TestSelectTier_BaseWhenNeitherFastNorComplex(t *testing.T) {
	cfg := testBrainConfig()
	req := &Request{Purpose: PurposeChatResponse, Messages: userMsg("tell me a bit more about your day please, how was it")}
	assert.Equal(t, TierBase, selectTier(cfg, req))
}

func TestSelectTier_FastDisabledFallsBackToBase(t *testing.T) {
	cfg := testBrainConfig()
	cfg.FastChatModel = ""
	req := &Request{Purpose: PurposeChatResponse, Messages: userMsg("2+2?")}
	assert.Equal(t, TierBase, selectTier(cfg, req))
}

func TestSelectTier_NonChatPurposeIsAlwaysBase(t *testing.T) {
	cfg := testBrainConfig()
	req := &Request{Purpose: PurposeMemory, Messages: userMsg("2+2?")}
	assert.Equal(t, TierBase, selectTier(cfg, req))
}
