package ports

// Mood is a short-lived presentational signal derived from conversation
// shape, never from model output content.
type Mood string

const (
	MoodCalm        Mood = "calm"
	MoodEncouraging Mood = "encouraging"
	MoodFocused     Mood = "focused"
	MoodCelebratory Mood = "celebratory"
	MoodCurious     Mood = "curious"
	MoodSupportive  Mood = "supportive"
)

// Label returns the fixed short label shown next to the mood icon.
func (m Mood) Label() string {
	switch m {
	case MoodEncouraging:
		return "Encouraging"
	case MoodFocused:
		return "Focused"
	case MoodCelebratory:
		return "Celebrating"
	case MoodCurious:
		return "Curious"
	case MoodSupportive:
		return "Supportive"
	default:
		return "Calm"
	}
}

// Icon returns the fixed glyph for the mood.
func (m Mood) Icon() string {
	switch m {
	case MoodEncouraging:
		return "🌱"
	case MoodFocused:
		return "🎯"
	case MoodCelebratory:
		return "🎉"
	case MoodCurious:
		return "💡"
	case MoodSupportive:
		return "🤝"
	default:
		return "🌊"
	}
}

// Color returns the fixed hex color for the mood.
func (m Mood) Color() string {
	switch m {
	case MoodEncouraging:
		return "#6BCB77"
	case MoodFocused:
		return "#4D96FF"
	case MoodCelebratory:
		return "#FFD93D"
	case MoodCurious:
		return "#C780FA"
	case MoodSupportive:
		return "#FF9F45"
	default:
		return "#9DB2BF"
	}
}

// ActionKind enumerates the coaching actions the mood engine can suggest.
type ActionKind string

const (
	ActionCreateChecklist ActionKind = "createChecklist"
	ActionRefineTone      ActionKind = "refineTone"
	ActionSaveArtifact    ActionKind = "saveArtifact"
	ActionAskFollowUp     ActionKind = "askFollowUp"
	ActionSimplify        ActionKind = "simplify"
)

// CoachingAction is an ephemeral quick-action chip. Regenerated on every
// mood update, never persisted.
type CoachingAction struct {
	Label string     `json:"label"`
	Icon  string     `json:"icon"`
	Kind  ActionKind `json:"kind"`
}
