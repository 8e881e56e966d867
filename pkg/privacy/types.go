// Package privacy implements the Privacy Router (spec.md §4.3): it classifies
// and sanitizes context items before they ever reach the Brain Router,
// enforcing a local-only route, dropping sensitive source types, redacting
// secrets, and capping per-item size.
package privacy

// SourceType enumerates where a ContextItem's content originated.
type SourceType string

const (
	SourceUserPrompt      SourceType = "user_prompt"
	SourceWebPageText     SourceType = "web_page_text"
	SourceTelegramText    SourceType = "telegram_text"
	SourceFileContent     SourceType = "file_content"
	SourceAppUIText       SourceType = "app_ui_text"
	SourceScreenshotText  SourceType = "screenshot_text"
	SourceSystemNote      SourceType = "system_note"
	SourceInternalSummary SourceType = "internal_summary"
)

// Sensitivity enumerates a ContextItem's declared sensitivity tier.
type Sensitivity string

const (
	SensitivityPublic       Sensitivity = "public"
	SensitivityPersonal     Sensitivity = "personal"
	SensitivityFinancial    Sensitivity = "financial"
	SensitivityConfidential Sensitivity = "confidential"
)

// Route is the destination a sanitized batch of context is cleared for. The
// kernel supports exactly one in scope: LOCAL. A non-local route is a
// Non-goal (spec.md §9) — Route exists as a type so the invariant "always
// LOCAL" is checkable, not so a second value can be added casually.
type Route string

// RouteLocal is the only route the kernel ever selects.
const RouteLocal Route = "LOCAL"

// ContextItem is a labeled chunk of context considered for inclusion in an
// LLM request.
type ContextItem struct {
	Content     string
	SourceType  SourceType
	Sensitivity Sensitivity
	Provenance  string
}

// DropReason names why an item was excluded from the sanitized result.
type DropReason string

const (
	DropReasonSourceType        DropReason = "source_type_blocked"
	DropReasonFinancialFile     DropReason = "financial_file_content_blocked"
)

// AuditSummary reports counts by source_type and sensitivity over the items
// that were considered, for observability — it covers both kept and dropped
// items so a caller can see what was filtered out without re-deriving it.
type AuditSummary struct {
	BySourceType  map[SourceType]int
	BySensitivity map[Sensitivity]int
	Dropped       map[DropReason]int
	RedactionHits int
}
