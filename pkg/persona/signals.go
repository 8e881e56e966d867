package persona

import (
	"regexp"
	"strings"
	"unicode"
)

// Token lists mirror the original tone engine's per-class cue lists
// (core/agent.py _PROFANITY_TOKENS, _FATIGUE_TOKENS, ... in the retrieved
// source this spec was distilled from) — kept as lowercase Russian/English
// substrings, matched case-insensitively against normalized text.
var (
	profanityTokens    = []string{"бля", "блять", "еб", "нах", "заеб", "хер", "пизд", "fuck", "shit"}
	fatigueTokens      = []string{"устал", "устала", "выгорел", "выгорание", "не вывожу", "нет сил", "замотан", "измотан"}
	stressTokens       = []string{"бесит", "достал", "задолбал", "горит", "горю", "заебал", "не могу", "сломалось"}
	dryTokens          = []string{"дай", "формула", "формулу", "кратко", "коротко", "без воды", "шаги", "пункты", "определение", "definition", "just"}
	techTokens         = []string{"код", "python", "js", "javascript", "typescript", "sql", "covariance", "ковариац", "regex", "api", "формул"}
	urgencyTokens      = []string{"срочно", "быстро", "прямо сейчас", "urgent", "asap"}
	uncertaintyTokens  = []string{"не знаю", "не понял", "что делать", "как быть", "сомневаюсь"}
	reflectiveTokens   = []string{"почему", "смысл", "осознаю", "рефлек", "вспоминая", "как вчера"}
	creativeTokens     = []string{"придумай", "идея", "что если", "brainstorm", "креатив"}
	humorTokens        = []string{"ахах", "лол", "шут", "ирони", "подколи"}
	gratitudeTokens    = []string{"спасибо", "благодар", "круто", "класс", "ура", "nice", "great"}
	trustTokens        = []string{"помоги", "выручи", "рассчитываю", "я с тобой", "держи меня"}
	crisisTokens       = []string{"пиздец", "паника", "катастроф", "всё пропало", "аврал"}
	positiveEnergyTokens = []string{"погнали", "давай", "огонь", "вперёд", "разъеб"}
	workflowTokens     = []string{"workflow", "воркфло", "граф", "pipeline", "пайплайн", "оркестрац", "stateful"}
	conversationTokens = []string{"поговор", "диалог", "обсуд", "chat", "conversation", "brainstorm"}
	autonomyTokens     = []string{"autonomy", "автоном", "self-task", "scheduler", "без моего участия"}
	devTaskTokens      = []string{"dev_task", "напиши модуль", "реализ", "feature", "код", "module", "тест"}
	selfImproveTokens  = []string{"self_improve", "self improve", "self-improve", "самоулучш", "feedback loop", "адаптир", "улучши себя"}
	brevityTokens      = []string{"кратко", "коротко", "без воды"}
	depthTokens        = []string{"подроб", "глуб"}
	memoryCallbackTokens = []string{"помнишь", "как вчера"}
)

var wordRe = regexp.MustCompile(`[A-Za-zА-Яа-яЁё0-9_+-]+`)

// normalize lowercases, folds ё→е, and collapses whitespace so token
// matching is accent/case-insensitive the same way the original classifier
// treats Russian text.
func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "ё", "е")
	return strings.Join(strings.Fields(s), " ")
}

func words(s string) []string {
	return wordRe.FindAllString(s, -1)
}

func countTokenHits(text string, tokens []string) int {
	lowered := normalize(text)
	if lowered == "" {
		return 0
	}
	count := 0
	for _, tok := range tokens {
		if strings.Contains(lowered, tok) {
			count++
		}
	}
	return count
}

func containsAnyToken(text string, tokens []string) bool {
	return countTokenHits(text, tokens) > 0
}

// computeSignals ports _signal_counts: counts every token class plus
// punctuation markers (exclamation, question, ellipsis, all-caps words)
// used by tone classification and mode selection.
func computeSignals(text string) Signals {
	ws := words(text)
	exclamation := strings.Count(text, "!")
	question := strings.Count(text, "?")
	ellipsis := strings.Count(text, "...") + strings.Count(text, "…")

	uppercase := 0
	for _, w := range ws {
		if len(w) > 2 && isUpperWord(w) {
			uppercase++
		}
	}

	lowered := normalize(text)
	energetic := countTokenHits(text, positiveEnergyTokens)

	return Signals{
		WordCount:        len(ws),
		Profanity:        countTokenHits(text, profanityTokens),
		Fatigue:          countTokenHits(text, fatigueTokens),
		Stress:           countTokenHits(text, stressTokens),
		DryTask:          countTokenHits(text, dryTokens),
		TechnicalDensity: countTokenHits(text, techTokens),
		Urgency:          countTokenHits(text, urgencyTokens),
		Uncertainty:      countTokenHits(text, uncertaintyTokens),
		ReflectiveCues:   countTokenHits(text, reflectiveTokens),
		CreativeCues:     countTokenHits(text, creativeTokens),
		HumorCues:        countTokenHits(text, humorTokens),
		Gratitude:        countTokenHits(text, gratitudeTokens),
		TrustLanguage:    countTokenHits(text, trustTokens),
		CrisisCues:       countTokenHits(text, crisisTokens),
		WorkflowCues:     countTokenHits(text, workflowTokens),
		ConversationCues: countTokenHits(text, conversationTokens),
		AutonomyCues:     countTokenHits(text, autonomyTokens),
		DevTaskCues:      countTokenHits(text, devTaskTokens),
		SelfImproveCues:  countTokenHits(text, selfImproveTokens),
		PositiveEnergy:   energetic,
		EnergeticMarkers: energetic + exclamation + uppercase,
		BrevityRequest:   containsAnyToken(lowered, brevityTokens),
		DepthRequest:     containsAnyToken(lowered, depthTokens),
		MemoryCallback:   containsAnyToken(lowered, memoryCallbackTokens),
		Question:         question,
		Exclamation:      exclamation,
		Uppercase:        uppercase,
		Ellipsis:         ellipsis,
	}
}

func isUpperWord(w string) bool {
	hasLetter := false
	for _, r := range w {
		if unicode.IsLetter(r) {
			hasLetter = true
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return hasLetter
}
