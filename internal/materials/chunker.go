package materials

import (
	"regexp"
	"strings"

	"ari/internal/token"
)

// ChunkerConfig holds chunking configuration.
type ChunkerConfig struct {
	ChunkTokens   int // tokens per chunk (default: 400)
	OverlapTokens int // token overlap carried between chunks (default: 40)
}

// Chunk is one retrievable slice of an imported document.
type Chunk struct {
	Text  string
	Index int
}

// Chunker splits prose into token-bounded chunks on paragraph boundaries.
type Chunker struct {
	config ChunkerConfig
}

var paragraphBreak = regexp.MustCompile(`\n\s*\n`)

// NewChunker creates a chunker with defaults applied.
func NewChunker(config ChunkerConfig) *Chunker {
	if config.ChunkTokens <= 0 {
		config.ChunkTokens = 400
	}
	if config.OverlapTokens < 0 {
		config.OverlapTokens = 0
	} else if config.OverlapTokens == 0 {
		config.OverlapTokens = 40
	}

	return &Chunker{config: config}
}

// Split breaks text into chunks of at most ChunkTokens tokens. Paragraphs are
// kept whole when they fit; the previous paragraph is carried into the next
// chunk as overlap when it fits the overlap budget. A single paragraph larger
// than the chunk budget is split on characters.
func (c *Chunker) Split(text string) []Chunk {
	paragraphs := splitParagraphs(text)
	if len(paragraphs) == 0 {
		return nil
	}

	var chunks []Chunk
	var current strings.Builder
	currentTokens := 0
	lastParagraph := ""

	flush := func() {
		chunk := strings.TrimSpace(current.String())
		if chunk != "" {
			chunks = append(chunks, Chunk{Text: chunk, Index: len(chunks)})
		}
		current.Reset()
		currentTokens = 0
	}

	for _, paragraph := range paragraphs {
		paragraphTokens := token.Count(paragraph)

		// A paragraph that alone exceeds the budget gets its own
		// character-split chunks.
		if paragraphTokens > c.config.ChunkTokens {
			flush()
			for _, piece := range c.splitOversized(paragraph) {
				chunks = append(chunks, Chunk{Text: piece, Index: len(chunks)})
			}
			lastParagraph = ""
			continue
		}

		if currentTokens+paragraphTokens > c.config.ChunkTokens && current.Len() > 0 {
			flush()

			// Seed the new chunk with the previous paragraph so
			// context spans the boundary.
			if c.config.OverlapTokens > 0 && lastParagraph != "" {
				if overlapTokens := token.Count(lastParagraph); overlapTokens <= c.config.OverlapTokens {
					current.WriteString(lastParagraph)
					current.WriteString("\n\n")
					currentTokens = overlapTokens
				}
			}
		}

		current.WriteString(paragraph)
		current.WriteString("\n\n")
		currentTokens += paragraphTokens
		lastParagraph = paragraph
	}

	flush()

	return chunks
}

// splitOversized splits a paragraph that exceeds the chunk budget on rune
// boundaries, estimating roughly four characters per token.
func (c *Chunker) splitOversized(paragraph string) []string {
	runes := []rune(paragraph)
	charsPerChunk := c.config.ChunkTokens * 4

	var pieces []string
	for start := 0; start < len(runes); start += charsPerChunk {
		end := start + charsPerChunk
		if end > len(runes) {
			end = len(runes)
		}
		piece := strings.TrimSpace(string(runes[start:end]))
		if piece != "" {
			pieces = append(pieces, piece)
		}
	}

	return pieces
}

func splitParagraphs(text string) []string {
	normalized := strings.ReplaceAll(text, "\r\n", "\n")

	var paragraphs []string
	for _, part := range paragraphBreak.Split(normalized, -1) {
		part = strings.TrimSpace(part)
		if part != "" {
			paragraphs = append(paragraphs, part)
		}
	}

	return paragraphs
}
