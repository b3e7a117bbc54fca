// Package output renders assistant text and parsed structures for the
// terminal: glamour markdown when the output is a TTY, a plain
// go-term-markdown fallback otherwise, lipgloss styling for the mood
// overlay.
package output

import (
	"fmt"
	"os"
	"strings"

	markdown "github.com/MichaelMure/go-term-markdown"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"ari/internal/assistant/ports"
	"ari/internal/mood"
	"ari/internal/parse"
)

const defaultWidth = 100

// Renderer turns assistant output into terminal text.
type Renderer struct {
	glamour *glamour.TermRenderer
	width   int
	plain   bool
}

// NewRenderer builds a renderer. plain forces the no-ANSI fallback,
// which is also used automatically when stdout is not a terminal.
func NewRenderer(plain bool) *Renderer {
	width := defaultWidth
	isTTY := term.IsTerminal(int(os.Stdout.Fd()))
	if isTTY {
		if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 20 {
			width = w
		}
	}

	r := &Renderer{width: width, plain: plain || !isTTY}
	if !r.plain {
		lipgloss.SetColorProfile(lipgloss.NewRenderer(os.Stdout).ColorProfile())
		renderer, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(width),
			glamour.WithPreservedNewLines(),
		)
		if err == nil {
			r.glamour = renderer
		}
	}
	return r
}

// Markdown renders markdown content for the terminal. Falls back to the
// plain renderer, then to the raw text, so output never goes missing.
func (r *Renderer) Markdown(content string) string {
	if strings.TrimSpace(content) == "" {
		return ""
	}
	if r.glamour != nil {
		if rendered, err := r.glamour.Render(content); err == nil {
			return strings.TrimRight(rendered, "\n") + "\n"
		}
	}
	if r.plain {
		return string(markdown.Render(content, r.width, 0))
	}
	return content
}

// MoodLine renders the mood overlay as a single status line.
func (r *Renderer) MoodLine(update mood.Update) string {
	if update.Guidance == "" && len(update.Actions) == 0 {
		return ""
	}

	label := fmt.Sprintf("%s %s", update.Mood.Icon(), update.Mood.Label())
	if !r.plain {
		style := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(update.Mood.Color()))
		label = style.Render(label)
	}

	line := label
	if update.Guidance != "" {
		line += "  " + update.Guidance
	}
	for _, action := range update.Actions {
		line += fmt.Sprintf("  [%s %s]", action.Icon, action.Label)
	}
	return line
}

// Suggestion renders an artifact proposal prompt line.
func (r *Renderer) Suggestion(suggestion *ports.ArtifactSuggestion) string {
	if suggestion == nil {
		return ""
	}
	return fmt.Sprintf("Suggested %s: %q (save with /save)", suggestion.Kind, suggestion.Title)
}

// Quiz renders parsed questions; empty input yields "" so the caller
// falls back to the raw text.
func (r *Renderer) Quiz(questions []parse.QuizQuestion) string {
	if len(questions) == 0 {
		return ""
	}
	var b strings.Builder
	for i, q := range questions {
		fmt.Fprintf(&b, "%d. %s\n", i+1, q.Question)
		for _, opt := range q.Options {
			marker := " "
			if opt.Letter == q.CorrectLetter {
				marker = "✓"
			}
			fmt.Fprintf(&b, "   %s %s) %s\n", marker, opt.Letter, opt.Text)
		}
	}
	return b.String()
}

// Flashcards renders parsed cards; empty input yields "".
func (r *Renderer) Flashcards(cards []parse.Flashcard) string {
	if len(cards) == 0 {
		return ""
	}
	var b strings.Builder
	for i, card := range cards {
		fmt.Fprintf(&b, "%d. %s\n   → %s\n", i+1, card.Front, card.Back)
	}
	return b.String()
}

// Bullets renders parsed sections; empty input yields "".
func (r *Renderer) Bullets(sections []parse.BulletSection) string {
	if len(sections) == 0 {
		return ""
	}
	var b strings.Builder
	for _, section := range sections {
		if section.Header != "" {
			fmt.Fprintf(&b, "%s\n", section.Header)
		}
		for _, item := range section.Items {
			fmt.Fprintf(&b, "  • %s\n", item)
		}
	}
	return b.String()
}
