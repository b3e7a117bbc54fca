package ports

import "time"

// ArtifactKind classifies what a suggested artifact is.
type ArtifactKind string

const (
	ArtifactDraft      ArtifactKind = "draft"
	ArtifactSummary    ArtifactKind = "summary"
	ArtifactChecklist  ArtifactKind = "checklist"
	ArtifactPlan       ArtifactKind = "plan"
	ArtifactQuiz       ArtifactKind = "quiz"
	ArtifactFlashcards ArtifactKind = "flashcards"
	ArtifactOther      ArtifactKind = "other"
)

// ParseArtifactKind maps a stored string to a kind. Unknown values fall
// back to other, matching how persisted records have always loaded.
func ParseArtifactKind(s string) ArtifactKind {
	switch ArtifactKind(s) {
	case ArtifactDraft, ArtifactSummary, ArtifactChecklist, ArtifactPlan,
		ArtifactQuiz, ArtifactFlashcards, ArtifactOther:
		return ArtifactKind(s)
	default:
		return ArtifactOther
	}
}

// ArtifactSuggestion is a proposal derived from a generation result.
// The caller decides whether to materialize it; nothing is persisted here.
type ArtifactSuggestion struct {
	Kind    ArtifactKind `json:"kind"`
	Title   string       `json:"title"`
	Content string       `json:"content"`
	Tags    []string     `json:"tags,omitempty"`
}

// Artifact is a materialized suggestion as written by the store.
type Artifact struct {
	ID             string       `json:"id"`
	ConversationID string       `json:"conversation_id"`
	Kind           ArtifactKind `json:"kind"`
	Title          string       `json:"title"`
	Content        string       `json:"content"`
	Tags           []string     `json:"tags,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
}
