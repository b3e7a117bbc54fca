package ports

// AssistantMode is the classified intent category of a user turn.
// It guides prompt construction and artifact suggestion.
type AssistantMode string

const (
	ModeGeneral    AssistantMode = "general"
	ModeWrite      AssistantMode = "write"
	ModeSummarize  AssistantMode = "summarize"
	ModeExplain    AssistantMode = "explain"
	ModePlan       AssistantMode = "plan"
	ModeBrainstorm AssistantMode = "brainstorm"
)

// AllModes lists every mode in classifier priority order, general last.
func AllModes() []AssistantMode {
	return []AssistantMode{ModeWrite, ModeSummarize, ModeExplain, ModePlan, ModeBrainstorm, ModeGeneral}
}

// ParseMode maps a stored string to a mode. Unknown non-empty values fall
// back to general so old records never fail to load.
func ParseMode(s string) AssistantMode {
	switch AssistantMode(s) {
	case ModeGeneral, ModeWrite, ModeSummarize, ModeExplain, ModePlan, ModeBrainstorm:
		return AssistantMode(s)
	default:
		return ModeGeneral
	}
}

// Valid reports whether m is one of the closed set.
func (m AssistantMode) Valid() bool {
	switch m {
	case ModeGeneral, ModeWrite, ModeSummarize, ModeExplain, ModePlan, ModeBrainstorm:
		return true
	}
	return false
}

// DisplayName returns the human label shown in pickers and logs.
func (m AssistantMode) DisplayName() string {
	switch m {
	case ModeWrite:
		return "Writing"
	case ModeSummarize:
		return "Summarizing"
	case ModeExplain:
		return "Explaining"
	case ModePlan:
		return "Planning"
	case ModeBrainstorm:
		return "Brainstorming"
	default:
		return "General"
	}
}
