// Package parse converts loosely formatted model output into typed
// quiz, flashcard, and bullet records. Every parser here is a total
// function: malformed input degrades to an empty result, and callers
// render the raw text when that happens.
package parse

import (
	"regexp"
	"strings"
)

var (
	leadingNumberPattern = regexp.MustCompile(`^\d+[.)]\s*`)
	emphasisReplacer     = strings.NewReplacer("**", "", "__", "", "*", "")
)

// stripEmphasis removes markdown bold/italic markers. Single underscores
// stay, they are too common inside identifiers to strip safely.
func stripEmphasis(s string) string {
	return emphasisReplacer.Replace(s)
}

// stripLeadingNumber removes "1." / "2)" style numbering from the front
// of a line.
func stripLeadingNumber(s string) string {
	return leadingNumberPattern.ReplaceAllString(s, "")
}

// firstLetter returns the first ASCII letter of s upper-cased, or "".
func firstLetter(s string) string {
	for _, r := range s {
		if r >= 'a' && r <= 'z' {
			return strings.ToUpper(string(r))
		}
		if r >= 'A' && r <= 'Z' {
			return string(r)
		}
	}
	return ""
}

// splitLines splits on \n and tolerates \r\n input.
func splitLines(text string) []string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}
