package parse

import "strings"

// Flashcard is one front/back study card.
type Flashcard struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

var (
	frontPrefixes = []string{"q:", "front:", "question:"}
	backPrefixes  = []string{"a:", "back:", "answer:"}
)

// Flashcards parses "Q:"/"A:" pairs ("Front:"/"Back:" and
// "Question:"/"Answer:" work too, case-insensitive). A card is emitted
// only once both sides are non-empty. Unprefixed non-blank lines
// continue the most recently opened side.
func Flashcards(text string) []Flashcard {
	type side int
	const (
		noSide side = iota
		frontSide
		backSide
	)

	var cards []Flashcard
	var front, back string
	open := noSide

	flush := func() {
		f := strings.TrimSpace(front)
		b := strings.TrimSpace(back)
		if f != "" && b != "" {
			cards = append(cards, Flashcard{Front: f, Back: b})
		}
		front, back = "", ""
		open = noSide
	}

	for _, raw := range splitLines(text) {
		line := strings.TrimSpace(raw)
		if line == "" {
			// Blank separates pairs; incomplete pairs keep collecting.
			if strings.TrimSpace(front) != "" && strings.TrimSpace(back) != "" {
				flush()
			}
			continue
		}

		if rest, ok := cutPrefixFold(line, frontPrefixes); ok {
			if strings.TrimSpace(front) != "" && strings.TrimSpace(back) != "" {
				flush()
			}
			front = rest
			back = ""
			open = frontSide
			continue
		}

		if rest, ok := cutPrefixFold(line, backPrefixes); ok {
			back = rest
			open = backSide
			continue
		}

		// Continuation follows the last prefix seen, even when that
		// side is still empty (a bare "A:" with the text on the next
		// line).
		switch open {
		case backSide:
			back = joinLine(back, line)
		case frontSide:
			front = joinLine(front, line)
		}
	}
	flush()

	return cards
}

func joinLine(buf, line string) string {
	if strings.TrimSpace(buf) == "" {
		return line
	}
	return buf + "\n" + line
}

// cutPrefixFold matches prefixes case-insensitively, in the given order.
func cutPrefixFold(line string, prefixes []string) (string, bool) {
	lower := strings.ToLower(line)
	for _, p := range prefixes {
		if strings.HasPrefix(lower, p) {
			return strings.TrimSpace(line[len(p):]), true
		}
	}
	return "", false
}

// Markdown re-serializes the card in the grammar Flashcards parses.
func (c Flashcard) Markdown() string {
	return "Q: " + c.Front + "\nA: " + c.Back
}

// FlashcardsMarkdown renders cards as grammar text, blank line separated.
func FlashcardsMarkdown(cards []Flashcard) string {
	blocks := make([]string, 0, len(cards))
	for _, c := range cards {
		blocks = append(blocks, c.Markdown())
	}
	return strings.Join(blocks, "\n\n")
}
