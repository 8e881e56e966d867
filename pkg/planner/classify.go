package planner

import (
	"regexp"

	"github.com/astra-ai/kernel/pkg/store"
)

// browserCuesRe/fileCuesRe/codeCuesRe partition an ACT hint's free-form
// description into one of the kernel's executable PlanStep kinds, the same
// vocabulary the original assistant's _FAST_CHAT_ACTION_RE uses to spot
// action requests in the first place (browser/file/terminal/code).
var (
	browserCuesRe = regexp.MustCompile(`(?i)\b(браузер|browser|сайт|website|перейди|открой\s+сайт|search\s+web|загугли|найди\s+в\s+интернете)\b`)
	fileCuesRe    = regexp.MustCompile(`(?i)\b(файл|папк\w*|file|folder|organize|упорядоч|очисти|удали|rename|переименуй)\b`)
	codeCuesRe    = regexp.MustCompile(`(?i)\b(код|code|deploy|terminal|командн\w+\s+строк\w+|git|script|скрипт|команду|рефактор|refactor)\b`)
	webResearchRe = regexp.MustCompile(`(?i)\b(новост|исследуй|research|найди\s+информацию|узнай|что\s+известно)\b`)
)

// classifyStepKind maps one plan-hint phrase (or the ACT hint's target, as a
// fallback) to a PlanStep kind. COMPUTER_ACTIONS is the default — any
// on-screen action neither of the other categories identifies.
func classifyStepKind(hint string) string {
	switch {
	case webResearchRe.MatchString(hint) && !browserCuesRe.MatchString(hint):
		return store.StepKindWebResearch
	case browserCuesRe.MatchString(hint):
		return store.StepKindBrowserResearchUI
	case fileCuesRe.MatchString(hint):
		return store.StepKindFileOrganize
	case codeCuesRe.MatchString(hint):
		return store.StepKindCodeAssist
	default:
		return store.StepKindComputerActions
	}
}

// skillNameForKind names the skill each PlanStep kind dispatches to —
// the Run Engine looks this up via the Skill registry (pkg/skill).
func skillNameForKind(kind string) string {
	switch kind {
	case store.StepKindWebResearch:
		return "web_research"
	case store.StepKindBrowserResearchUI:
		return "browser_research_ui"
	case store.StepKindFileOrganize:
		return "file_organize"
	case store.StepKindCodeAssist:
		return "code_assist"
	case store.StepKindMemoryCommit:
		return "memory_save"
	case store.StepKindChatResponse:
		return "chat_response"
	default:
		return "computer_actions"
	}
}
