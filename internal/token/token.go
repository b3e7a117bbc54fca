// Package token counts and budgets tokens for prompt assembly. Accurate
// counts come from the cl100k_base encoding; when the encoding cannot be
// loaded every function degrades to a character heuristic.
package token

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Roughly four characters per token, the usual English average.
const charsPerToken = 4

var loadEncoding = sync.OnceValue(func() *tiktoken.Tiktoken {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil
	}
	return enc
})

// Count returns the token count of text under cl100k_base, or the
// EstimateFast heuristic when the encoding is unavailable.
func Count(text string) int {
	if enc := loadEncoding(); enc != nil {
		return len(enc.Encode(text, nil, nil))
	}
	return EstimateFast(text)
}

// EstimateFast returns max(runes/4, words) without touching the encoder.
// Meant for hot paths such as per-delta accounting inside a stream.
func EstimateFast(text string) int {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0
	}
	estimate := len([]rune(trimmed)) / charsPerToken
	if words := len(strings.Fields(trimmed)); estimate < words {
		estimate = words
	}
	if estimate == 0 {
		estimate = 1
	}
	return estimate
}

// TruncateToTokens clips text to at most maxTokens, marking the cut with
// an ellipsis. Text already inside the budget comes back unchanged, as
// does any text when maxTokens is not positive.
func TruncateToTokens(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return text
	}
	if enc := loadEncoding(); enc != nil {
		tokens := enc.Encode(text, nil, nil)
		if len(tokens) <= maxTokens {
			return text
		}
		return enc.Decode(tokens[:maxTokens]) + "..."
	}
	runes := []rune(text)
	limit := maxTokens * charsPerToken
	if limit >= len(runes) {
		return text
	}
	return string(runes[:limit]) + "..."
}
