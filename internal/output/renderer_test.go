package output

import (
	"strings"
	"testing"

	"ari/internal/assistant/ports"
	"ari/internal/mood"
	"ari/internal/parse"
)

func TestRenderer_QuizMarksCorrectOption(t *testing.T) {
	t.Parallel()

	r := NewRenderer(true)
	out := r.Quiz(parse.Quiz("Q: 2+2?\nA) 3\nB) 4\nCorrect: B"))
	if !strings.Contains(out, "✓ B) 4") {
		t.Fatalf("correct option not marked:\n%s", out)
	}
	if strings.Contains(out, "✓ A)") {
		t.Fatalf("wrong option marked:\n%s", out)
	}
}

func TestRenderer_EmptyParsesYieldEmptyStrings(t *testing.T) {
	t.Parallel()

	r := NewRenderer(true)
	if r.Quiz(nil) != "" || r.Flashcards(nil) != "" || r.Bullets(nil) != "" {
		t.Fatal("empty parse results must render empty so callers fall back to raw text")
	}
}

func TestRenderer_MoodLineCarriesGuidanceAndActions(t *testing.T) {
	t.Parallel()

	r := NewRenderer(true)
	line := r.MoodLine(mood.Update{
		Mood:     ports.MoodFocused,
		Guidance: "Let's stay on track.",
		Actions:  []ports.CoachingAction{{Label: "Make a checklist", Icon: "☑️", Kind: ports.ActionCreateChecklist}},
	})
	if !strings.Contains(line, "Focused") || !strings.Contains(line, "stay on track") {
		t.Fatalf("mood line = %q", line)
	}
	if !strings.Contains(line, "Make a checklist") {
		t.Fatalf("action missing from mood line: %q", line)
	}
}

func TestRenderer_MoodLineEmptyWhenDisabled(t *testing.T) {
	t.Parallel()

	r := NewRenderer(true)
	if line := r.MoodLine(mood.Update{Mood: ports.MoodCalm}); line != "" {
		t.Fatalf("kill-switch update must render nothing, got %q", line)
	}
}

func TestRenderer_SuggestionLine(t *testing.T) {
	t.Parallel()

	r := NewRenderer(true)
	if r.Suggestion(nil) != "" {
		t.Fatal("nil suggestion must render empty")
	}
	line := r.Suggestion(&ports.ArtifactSuggestion{Kind: ports.ArtifactDraft, Title: "Email to team"})
	if !strings.Contains(line, "draft") || !strings.Contains(line, "Email to team") {
		t.Fatalf("suggestion line = %q", line)
	}
}
