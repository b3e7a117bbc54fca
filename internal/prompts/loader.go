package prompts

import (
	"embed"
	"fmt"
	"strings"

	"ari/internal/assistant/ports"
)

//go:embed templates/*.md
var promptFS embed.FS

// Loader serves the embedded prompt templates. Templates are markdown
// files with {{variable}} placeholders.
type Loader struct {
	templates map[string]string
}

// NewLoader loads every embedded template.
func NewLoader() (*Loader, error) {
	loader := &Loader{templates: make(map[string]string)}

	entries, err := promptFS.ReadDir("templates")
	if err != nil {
		return nil, fmt.Errorf("read prompt templates: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		content, err := promptFS.ReadFile("templates/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read prompt template %s: %w", entry.Name(), err)
		}
		name := strings.TrimSuffix(entry.Name(), ".md")
		loader.templates[name] = string(content)
	}

	return loader, nil
}

// Render returns the named template with variables substituted.
func (l *Loader) Render(name string, variables map[string]string) (string, error) {
	content, ok := l.templates[name]
	if !ok {
		return "", fmt.Errorf("prompt template %q not found", name)
	}
	for key, value := range variables {
		content = strings.ReplaceAll(content, "{{"+key+"}}", value)
	}
	return strings.TrimSpace(content), nil
}

// SystemPrompt builds the system prompt for a mode and verbosity. An
// unknown mode renders the general template, mirroring the classifier's
// fallback.
func (l *Loader) SystemPrompt(mode ports.AssistantMode, verbosity ports.Verbosity) (string, error) {
	if !mode.Valid() {
		mode = ports.ModeGeneral
	}
	return l.Render("mode_"+string(mode), map[string]string{
		"verbosity": verbosityClause(verbosity),
	})
}

// TransformInstruction builds the single-shot instruction enforcing the
// output grammar for a transform kind.
func (l *Loader) TransformInstruction(kind ports.TransformKind, content string) (string, error) {
	return l.Render("transform_"+string(kind), map[string]string{
		"content": content,
	})
}

func verbosityClause(v ports.Verbosity) string {
	switch v {
	case ports.VerbosityBrief:
		return "Keep answers brief: a few sentences unless the user asks for more."
	case ports.VerbosityDetailed:
		return "Be thorough: cover edge cases and give complete detail."
	default:
		return "Keep answers balanced: complete but not exhaustive."
	}
}
