package privacy

// droppedSourceTypes are unconditionally excluded from the sanitized result
// (spec.md §4.3): telegram text is a third-party surface the user did not
// directly author into this run, and screenshot OCR text is too unreliable
// and too broad in what it can capture to forward verbatim.
var droppedSourceTypes = map[SourceType]bool{
	SourceTelegramText:   true,
	SourceScreenshotText: true,
}

// Router sanitizes context items before they can reach the Brain Router.
// Stateless aside from its configured per-item cap and financial-file
// allowance; safe for concurrent use.
type Router struct {
	perItemCharCap      int
	allowFinancialFiles bool
}

// NewRouter constructs a Router. perItemCharCap must be positive.
func NewRouter(perItemCharCap int, allowFinancialFiles bool) *Router {
	return &Router{
		perItemCharCap:      perItemCharCap,
		allowFinancialFiles: allowFinancialFiles,
	}
}

// Sanitize classifies and redacts items, returning the kept+sanitized subset,
// the resolved route (always RouteLocal in scope), and an audit summary.
func (r *Router) Sanitize(items []ContextItem) ([]ContextItem, Route, AuditSummary) {
	summary := AuditSummary{
		BySourceType:  map[SourceType]int{},
		BySensitivity: map[Sensitivity]int{},
		Dropped:       map[DropReason]int{},
	}

	kept := make([]ContextItem, 0, len(items))
	for _, item := range items {
		summary.BySourceType[item.SourceType]++
		summary.BySensitivity[item.Sensitivity]++

		if reason, drop := r.dropReason(item); drop {
			summary.Dropped[reason]++
			continue
		}

		sanitizedContent, hits := redact(item.Content)
		summary.RedactionHits += hits

		sanitizedContent = truncate(sanitizedContent, r.perItemCharCap)

		kept = append(kept, ContextItem{
			Content:     sanitizedContent,
			SourceType:  item.SourceType,
			Sensitivity: item.Sensitivity,
			Provenance:  item.Provenance,
		})
	}

	return kept, RouteLocal, summary
}

func (r *Router) dropReason(item ContextItem) (DropReason, bool) {
	if droppedSourceTypes[item.SourceType] {
		return DropReasonSourceType, true
	}
	if item.SourceType == SourceFileContent && item.Sensitivity == SensitivityFinancial && !r.allowFinancialFiles {
		return DropReasonFinancialFile, true
	}
	return "", false
}

// truncate caps s to at most cap runes, leaving it unchanged if it already
// fits. Operates on runes, not bytes, so multi-byte content isn't split
// mid-character.
func truncate(s string, cap int) string {
	if cap <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= cap {
		return s
	}
	return string(runes[:cap])
}
