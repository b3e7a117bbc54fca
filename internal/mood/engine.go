// Package mood derives Ari's presentational overlay from conversation
// shape: a mood, one line of guidance, and quick coaching actions. It is
// a pure function over its inputs; it never calls the provider and never
// blocks, so callers run it inline on every turn.
package mood

import (
	"ari/internal/assistant/ports"
)

// Update is the full output of one mood evaluation.
type Update struct {
	Mood     ports.Mood             `json:"mood"`
	Guidance string                 `json:"guidance,omitempty"`
	Actions  []ports.CoachingAction `json:"actions,omitempty"`
}

// modeMoods maps the last classified mode to a mood. General is absent
// on purpose: it falls through to the message-count bands.
var modeMoods = map[ports.AssistantMode]ports.Mood{
	ports.ModePlan:       ports.MoodFocused,
	ports.ModeBrainstorm: ports.MoodCurious,
	ports.ModeWrite:      ports.MoodSupportive,
	ports.ModeSummarize:  ports.MoodCalm,
	ports.ModeExplain:    ports.MoodEncouraging,
}

// Evaluate computes the mood overlay. Precedence: the ariEnabled kill
// switch, then justSaved, then the per-mode map, then message-count
// bands. history carries the turns so far; lastMode is the most recent
// user turn's classified mode (empty when none).
func Evaluate(history []ports.ConversationTurn, lastMode ports.AssistantMode, prefs ports.Preferences, justSaved bool) Update {
	if !prefs.AriEnabled {
		return Update{Mood: ports.MoodCalm}
	}
	prefs = prefs.Normalize()

	mood := deriveMood(history, lastMode, prefs, justSaved)

	return Update{
		Mood:     mood,
		Guidance: guidanceLine(mood, lastMode, prefs),
		Actions:  []ports.CoachingAction{actionFor(mood)},
	}
}

func deriveMood(history []ports.ConversationTurn, lastMode ports.AssistantMode, prefs ports.Preferences, justSaved bool) ports.Mood {
	if justSaved {
		return ports.MoodCelebratory
	}

	if m, ok := modeMoods[lastMode]; ok {
		return m
	}

	count := messageCount(history)
	switch {
	case count <= 2:
		if prefs.Vibe == ports.VibeEnergetic {
			return ports.MoodEncouraging
		}
		return ports.MoodCalm
	case count <= 8:
		return ports.MoodSupportive
	case count <= 15:
		return ports.MoodFocused
	default:
		return ports.MoodEncouraging
	}
}

func messageCount(history []ports.ConversationTurn) int {
	n := 0
	for _, t := range history {
		if t.Role == ports.RoleUser || t.Role == ports.RoleAssistant {
			n++
		}
	}
	return n
}

// shortPhrases are the low-expressiveness guidance lines, one per mood.
var shortPhrases = map[ports.Mood]string{
	ports.MoodCalm:        "Here when you need me.",
	ports.MoodEncouraging: "Keep going!",
	ports.MoodFocused:     "Let's stay on track.",
	ports.MoodCelebratory: "Nice work!",
	ports.MoodCurious:     "Let's explore.",
	ports.MoodSupportive:  "I've got you.",
}

var longPhrases = map[ports.Mood]string{
	ports.MoodCalm:        "Take your time. I'm here whenever you want to pick this back up.",
	ports.MoodEncouraging: "You're making real progress. Keep the momentum going!",
	ports.MoodFocused:     "We're deep in it now. Let's keep this session on track.",
	ports.MoodCelebratory: "That's saved! Great work getting it done.",
	ports.MoodCurious:     "So many directions we could take this. Let's explore a few.",
	ports.MoodSupportive:  "Whatever you're working through, we'll get it sorted together.",
}

// explainEncouragingPhrase replaces the encouraging line while the user
// is in explain mode, offering to go simpler instead of cheering.
const explainEncouragingPhrase = "Want me to simplify that further? Just ask."

// energeticSuffix is appended at high expressiveness with an energetic vibe.
const energeticSuffix = " Let's go! ⚡"

func guidanceLine(mood ports.Mood, lastMode ports.AssistantMode, prefs ports.Preferences) string {
	if prefs.Expressiveness == ports.ExpressivenessLow {
		return shortPhrases[mood]
	}

	line := longPhrases[mood]
	if mood == ports.MoodEncouraging && lastMode == ports.ModeExplain {
		line = explainEncouragingPhrase
	}
	if prefs.Expressiveness == ports.ExpressivenessHigh && prefs.Vibe == ports.VibeEnergetic {
		line += energeticSuffix
	}
	return line
}

// actionFor returns the single coaching action per mood.
func actionFor(mood ports.Mood) ports.CoachingAction {
	switch mood {
	case ports.MoodFocused, ports.MoodSupportive:
		return ports.CoachingAction{Label: "Make a checklist", Icon: "☑️", Kind: ports.ActionCreateChecklist}
	case ports.MoodEncouraging:
		return ports.CoachingAction{Label: "Refine the tone", Icon: "🎨", Kind: ports.ActionRefineTone}
	case ports.MoodCurious, ports.MoodCelebratory:
		return ports.CoachingAction{Label: "Ask a follow-up", Icon: "💬", Kind: ports.ActionAskFollowUp}
	default:
		return ports.CoachingAction{Label: "Simplify this", Icon: "✂️", Kind: ports.ActionSimplify}
	}
}
