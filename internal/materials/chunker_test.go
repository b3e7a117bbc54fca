package materials

import (
	"fmt"
	"strings"
	"testing"
)

func TestChunker_ShortTextSingleChunk(t *testing.T) {
	chunker := NewChunker(ChunkerConfig{})

	chunks := chunker.Split("A single short paragraph.\n\nAnd a second one.")
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Index != 0 {
		t.Errorf("expected index 0, got %d", chunks[0].Index)
	}
	if !strings.Contains(chunks[0].Text, "A single short paragraph.") {
		t.Errorf("chunk missing first paragraph: %q", chunks[0].Text)
	}
	if !strings.Contains(chunks[0].Text, "And a second one.") {
		t.Errorf("chunk missing second paragraph: %q", chunks[0].Text)
	}
}

func TestChunker_EmptyText(t *testing.T) {
	chunker := NewChunker(ChunkerConfig{})

	if chunks := chunker.Split(""); chunks != nil {
		t.Fatalf("expected nil for empty text, got %d chunks", len(chunks))
	}
	if chunks := chunker.Split("   \n\n  \n"); chunks != nil {
		t.Fatalf("expected nil for whitespace text, got %d chunks", len(chunks))
	}
}

func TestChunker_SplitsOnParagraphs(t *testing.T) {
	chunker := NewChunker(ChunkerConfig{
		ChunkTokens:   20, // small for testing
		OverlapTokens: 15,
	})

	var sb strings.Builder
	for i := 1; i <= 8; i++ {
		fmt.Fprintf(&sb, "paragraph %d alpha beta gamma delta\n\n", i)
	}

	chunks := chunker.Split(sb.String())
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	for i, chunk := range chunks {
		if chunk.Index != i {
			t.Errorf("chunk %d has index %d", i, chunk.Index)
		}
		if strings.TrimSpace(chunk.Text) == "" {
			t.Errorf("chunk %d is empty", i)
		}
	}

	// All paragraphs survive chunking.
	joined := strings.Join(chunkTexts(chunks), "\n\n")
	for i := 1; i <= 8; i++ {
		want := fmt.Sprintf("paragraph %d", i)
		if !strings.Contains(joined, want) {
			t.Errorf("paragraph %d missing from chunks", i)
		}
	}
}

func TestChunker_OverlapCarriesLastParagraph(t *testing.T) {
	chunker := NewChunker(ChunkerConfig{
		ChunkTokens:   20,
		OverlapTokens: 15,
	})

	var sb strings.Builder
	for i := 1; i <= 8; i++ {
		fmt.Fprintf(&sb, "paragraph %d alpha beta gamma delta\n\n", i)
	}

	chunks := chunker.Split(sb.String())
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	// The second chunk opens with a paragraph the first chunk already
	// ends with.
	firstParagraph, _, _ := strings.Cut(chunks[1].Text, "\n\n")
	if !strings.Contains(chunks[0].Text, firstParagraph) {
		t.Errorf("expected chunk 1 to start with overlap from chunk 0\nchunk 0: %q\nchunk 1 opens: %q",
			chunks[0].Text, firstParagraph)
	}
}

func TestChunker_NoOverlapWhenDisabled(t *testing.T) {
	chunker := NewChunker(ChunkerConfig{
		ChunkTokens:   20,
		OverlapTokens: -1,
	})

	var sb strings.Builder
	for i := 1; i <= 8; i++ {
		fmt.Fprintf(&sb, "paragraph %d alpha beta gamma delta\n\n", i)
	}

	chunks := chunker.Split(sb.String())
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	seen := map[string]int{}
	for _, chunk := range chunks {
		for _, paragraph := range strings.Split(chunk.Text, "\n\n") {
			seen[strings.TrimSpace(paragraph)]++
		}
	}
	for paragraph, count := range seen {
		if paragraph != "" && count > 1 {
			t.Errorf("paragraph duplicated %d times without overlap: %q", count, paragraph)
		}
	}
}

func TestChunker_OversizedParagraph(t *testing.T) {
	chunker := NewChunker(ChunkerConfig{
		ChunkTokens: 100,
	})

	// One giant run with no paragraph breaks.
	text := strings.Repeat("x", 5000)

	chunks := chunker.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected oversized paragraph to split, got %d chunks", len(chunks))
	}
	for i, chunk := range chunks {
		if got := len([]rune(chunk.Text)); got > 400 {
			t.Errorf("chunk %d has %d runes, want <= 400", i, got)
		}
	}
}

func chunkTexts(chunks []Chunk) []string {
	out := make([]string, len(chunks))
	for i, chunk := range chunks {
		out[i] = chunk.Text
	}
	return out
}
