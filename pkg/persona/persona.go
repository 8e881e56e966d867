package persona

// Analyzer runs tone classification, mode selection, and fast-path
// eligibility over a user message, given the recent conversation history and
// stored memories.
type Analyzer struct{}

// NewAnalyzer constructs an Analyzer. It carries no state — every call to
// Analyze is self-contained.
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Analyze ports analyze_tone's top-level branching: a short, unemotional,
// simple message takes the fast path (tone classification plus a minimal
// neutral mode plan, skipping history/memory recall); everything else takes
// the full path (history recall, memory-derived mode recall, full mode
// selection, self-reflection text).
func (a *Analyzer) Analyze(userMsg string, history []HistoryMessage, memories []MemoryItem) Analysis {
	tone, intensity, signals := classifyTone(userMsg)
	sub := classifySubEngines(signals)
	mirror := mirrorLevel(tone, intensity)
	shape := responseShape(tone, signals)

	eligible, reason := fastPathEligible(userMsg, tone, signals, sub)
	if eligible {
		pair := neutralPair()
		if mapped, ok := toneModeMap[tone]; ok {
			pair = mapped
		}
		plan := ModePlan{
			PrimaryMode:    pair[0],
			SupportingMode: pair[1],
			CandidateModes: []Mode{pair[0], pair[1]},
		}
		return Analysis{
			Type:             tone,
			Intensity:        intensity,
			MirrorLevel:      mirror,
			ResponseShape:    shape,
			Signals:          signals,
			Recall:           Recall{DominantRecentTone: tone, Trend: "steady"},
			ModePlan:         plan,
			SubEngines:       sub,
			FastPathEligible: true,
			FastPathReason:   reason,
			SelfReflection:   selfReflectionText(tone, intensity, shape, mirror, plan, sub),
		}
	}

	recall := recallFromHistory(history, tone, intensity)
	modeRecall := recallModes(history, memories)
	plan := selectModes(tone, signals, recall, modeRecall)

	return Analysis{
		Type:             tone,
		Intensity:        intensity,
		MirrorLevel:      mirror,
		ResponseShape:    shape,
		Signals:          signals,
		Recall:           recall,
		ModePlan:         plan,
		SubEngines:       sub,
		FastPathEligible: false,
		FastPathReason:   reason,
		SelfReflection:   selfReflectionText(tone, intensity, shape, mirror, plan, sub),
	}
}
