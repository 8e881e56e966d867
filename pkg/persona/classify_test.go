package persona

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyTone_Crisis(t *testing.T) {
	tone, intensity, _ := classifyTone("пиздец, у меня паника и всё пропало, бесит это всё!")
	assert.Equal(t, ToneCrisis, tone)
	assert.Greater(t, intensity, 0.7)
}

func TestClassifyTone_Frustrated(t *testing.T) {
	tone, _, _ := classifyTone("меня это бесит, достал уже, сломалось опять")
	assert.Equal(t, ToneFrustrated, tone)
}

func TestClassifyTone_Tired(t *testing.T) {
	tone, _, _ := classifyTone("я устал и не могу больше, нет сил совсем")
	assert.Equal(t, ToneTired, tone)
}

func TestClassifyTone_Dry(t *testing.T) {
	tone, _, _ := classifyTone("дай формулу коротко")
	assert.Equal(t, ToneDry, tone)
}

func TestClassifyTone_Energetic(t *testing.T) {
	tone, _, _ := classifyTone("погнали, давай, вперёд, огонь!!!")
	assert.Equal(t, ToneEnergetic, tone)
}

func TestClassifyTone_Uncertain(t *testing.T) {
	tone, _, _ := classifyTone("не знаю, что делать, как быть?")
	assert.Equal(t, ToneUncertain, tone)
}

func TestClassifyTone_Creative(t *testing.T) {
	tone, _, _ := classifyTone("придумай идею, что если мы попробуем brainstorm")
	assert.Equal(t, ToneCreative, tone)
}

func TestClassifyTone_Reflective(t *testing.T) {
	tone, _, _ := classifyTone("почему так вышло, в чём смысл, я рефлексирую над этим")
	assert.Equal(t, ToneReflective, tone)
}

func TestClassifyTone_NeutralFallback(t *testing.T) {
	tone, intensity, _ := classifyTone("какая погода сегодня")
	assert.Equal(t, ToneNeutral, tone)
	assert.Equal(t, 0.34, intensity)
}

func TestMirrorLevel_DryIsLow(t *testing.T) {
	assert.Equal(t, MirrorLow, mirrorLevel(ToneDry, 0.9))
}

func TestMirrorLevel_HighIntensityFrustratedIsHigh(t *testing.T) {
	assert.Equal(t, MirrorHigh, mirrorLevel(ToneFrustrated, 0.7))
}

func TestMirrorLevel_DefaultsToMedium(t *testing.T) {
	assert.Equal(t, MirrorMedium, mirrorLevel(ToneUncertain, 0.5))
}

func TestResponseShape_PerTone(t *testing.T) {
	assert.Equal(t, ShapeShortStructured, responseShape(ToneDry, Signals{}))
	assert.Equal(t, ShapeWarmActionable, responseShape(ToneFrustrated, Signals{}))
	assert.Equal(t, ShapeHighEnergySteps, responseShape(ToneEnergetic, Signals{}))
	assert.Equal(t, ShapeDeepReflective, responseShape(ToneReflective, Signals{}))
	assert.Equal(t, ShapeStabilizeThenPlan, responseShape(ToneCrisis, Signals{}))
	assert.Equal(t, ShapeBalancedDirect, responseShape(ToneNeutral, Signals{}))
	assert.Equal(t, ShapeDeepReflective, responseShape(ToneNeutral, Signals{DepthRequest: true}))
}

func TestFastPathEligible_ShortDrySimple(t *testing.T) {
	tone, _, signals := classifyTone("сколько будет 2+2")
	sub := classifySubEngines(signals)
	ok, reason := fastPathEligible("сколько будет 2+2", tone, signals, sub)
	assert.True(t, ok)
	assert.Equal(t, "short_dry_simple", reason)
}

func TestFastPathEligible_RejectsEmotionalTone(t *testing.T) {
	tone, _, signals := classifyTone("меня это бесит, достал уже")
	sub := classifySubEngines(signals)
	ok, reason := fastPathEligible("меня это бесит, достал уже", tone, signals, sub)
	assert.False(t, ok)
	assert.Equal(t, "emotional_tone", reason)
}

func TestFastPathEligible_RejectsLongMessage(t *testing.T) {
	text := "объясни мне пожалуйста максимально подробно и развёрнуто, как именно устроена эта система целиком от начала и до конца"
	tone, _, signals := classifyTone(text)
	sub := classifySubEngines(signals)
	ok, reason := fastPathEligible(text, tone, signals, sub)
	assert.False(t, ok)
	assert.Equal(t, "length", reason)
}

func TestFastPathEligible_RejectsMemoryRecall(t *testing.T) {
	text := "напомни что я говорил"
	tone, _, signals := classifyTone(text)
	sub := classifySubEngines(signals)
	ok, reason := fastPathEligible(text, tone, signals, sub)
	assert.False(t, ok)
	assert.Equal(t, "memory_recall", reason)
}

func TestFastPathEligible_Empty(t *testing.T) {
	ok, reason := fastPathEligible("   ", ToneNeutral, Signals{}, SubEngineFlags{})
	assert.False(t, ok)
	assert.Equal(t, "empty", reason)
}
