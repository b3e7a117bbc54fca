// Package intent routes raw user input to an assistant mode with
// deterministic keyword matching. No model call, no context beyond the
// single input string, so routing stays reproducible.
package intent

import (
	"strings"

	"ari/internal/assistant/ports"
)

// keywordSets are checked in this exact order; the first set with a
// substring match wins even when a later set's keyword also appears.
// Reordering changes routing for real inputs, so the order is pinned by
// tests.
var keywordSets = []struct {
	mode     ports.AssistantMode
	keywords []string
}{
	{ports.ModeWrite, []string{"write", "draft", "compose", "email", "letter", "essay"}},
	{ports.ModeSummarize, []string{"summarize", "summary", "tl;dr", "condense", "shorten"}},
	{ports.ModeExplain, []string{"explain", "why", "how does", "what is", "clarify"}},
	{ports.ModePlan, []string{"plan", "schedule", "roadmap", "organize", "steps"}},
	{ports.ModeBrainstorm, []string{"brainstorm", "ideas", "suggest", "options", "alternatives"}},
}

// Classify returns the mode for a user input. Synchronous, side-effect
// free, defaults to general when nothing matches.
func Classify(input string) ports.AssistantMode {
	lowered := strings.ToLower(input)
	for _, set := range keywordSets {
		for _, keyword := range set.keywords {
			if strings.Contains(lowered, keyword) {
				return set.mode
			}
		}
	}
	return ports.ModeGeneral
}
