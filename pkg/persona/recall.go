package persona

// recallFromHistory classifies the tail of recent user messages and
// compares the current message's tone/intensity against them, producing the
// shift/trend signal mode selection and mirroring use.
func recallFromHistory(history []HistoryMessage, currentTone ToneType, currentIntensity float64) Recall {
	texts := historyUserTexts(history, 4)
	if len(texts) == 0 {
		return Recall{DominantRecentTone: ToneNeutral, Trend: "steady"}
	}

	types := make([]ToneType, 0, len(texts))
	var intensitySum float64
	sameType := 0
	for _, t := range texts {
		tone, intensity, _ := classifyTone(t)
		types = append(types, tone)
		intensitySum += intensity
		if tone == currentTone {
			sameType++
		}
	}

	avgIntensity := intensitySum / float64(len(texts))
	lastTone := types[len(types)-1]

	trend := "steady"
	if currentIntensity > avgIntensity+0.08 {
		trend = "rising"
	} else if currentIntensity < avgIntensity-0.08 {
		trend = "cooling"
	}

	return Recall{
		HistoryTailTypes:   types,
		DominantRecentTone: dominantTone(types),
		DetectedShift:      lastTone != currentTone,
		SameTypeCount:      sameType,
		RecentAvgIntensity: round3(avgIntensity),
		Trend:              trend,
	}
}

func dominantTone(types []ToneType) ToneType {
	if len(types) == 0 {
		return ToneNeutral
	}
	counts := make(map[ToneType]int, len(types))
	best := types[0]
	bestCount := 0
	for _, t := range types {
		counts[t]++
		if counts[t] > bestCount {
			bestCount = counts[t]
			best = t
		}
	}
	return best
}
