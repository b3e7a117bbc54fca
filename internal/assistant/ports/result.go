package ports

import "time"

// EnginePhase names one state of the generation state machine.
type EnginePhase string

const (
	PhaseIdle       EnginePhase = "idle"
	PhaseRouting    EnginePhase = "routing"
	PhaseGenerating EnginePhase = "generating"
	PhaseStreaming  EnginePhase = "streaming"
	PhaseComplete   EnginePhase = "complete"
	PhaseError      EnginePhase = "error"
)

// EngineState is an observable snapshot of the state machine. PartialText
// is set only while streaming and is cumulative: each snapshot replaces
// the previous one, it never appends. ErrMessage is set only on error.
type EngineState struct {
	Phase       EnginePhase `json:"phase"`
	PartialText string      `json:"partial_text,omitempty"`
	ErrMessage  string      `json:"err_message,omitempty"`
}

// TokenUsage tracks token consumption for one provider call.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Add accumulates usage from another call.
func (u *TokenUsage) Add(other TokenUsage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
}

// GenerationResult is what one completed generation hands back to the
// caller. Provider failures arrive here as readable Text, never as an
// error: the conversation flow stays unblocked. Guidance and Mood are
// filled by the mood engine after generation, not by the engine itself.
type GenerationResult struct {
	Text       string              `json:"text"`
	Mode       AssistantMode       `json:"mode"`
	Suggestion *ArtifactSuggestion `json:"suggestion,omitempty"`
	Guidance   string              `json:"guidance,omitempty"`
	Mood       Mood                `json:"mood,omitempty"`
	Usage      TokenUsage          `json:"usage"`
	Elapsed    time.Duration       `json:"elapsed"`
}
