package parse

import (
	"regexp"
	"strings"
)

// BulletSection is an ordered run of items under one optional header.
type BulletSection struct {
	Header string   `json:"header,omitempty"`
	Items  []string `json:"items"`
}

var bulletMarkerPattern = regexp.MustCompile(`^(?:[•\-*]|\d+[.)])\s*`)

// Bullets parses outline text: "## " and "### " open sections, lines
// marked with •/-/* or "1."/"1)" are items, and any other non-blank
// line becomes an implicit item. Markers and emphasis are stripped from
// items; a text with no recognizable markers still yields one unheaded
// section with every non-blank line as an item.
func Bullets(text string) []BulletSection {
	var sections []BulletSection
	current := BulletSection{}

	flush := func() {
		if current.Header != "" || len(current.Items) > 0 {
			sections = append(sections, current)
		}
		current = BulletSection{}
	}

	for _, raw := range splitLines(text) {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		if rest, ok := cutPrefixAny(line, "## ", "### "); ok {
			flush()
			current.Header = strings.TrimSpace(rest)
			continue
		}

		item := strings.TrimSpace(stripEmphasis(bulletMarkerPattern.ReplaceAllString(line, "")))
		if item == "" {
			continue
		}
		current.Items = append(current.Items, item)
	}
	flush()

	return sections
}

// Markdown re-serializes the section in the grammar Bullets parses.
func (s BulletSection) Markdown() string {
	var b strings.Builder
	if s.Header != "" {
		b.WriteString("## ")
		b.WriteString(s.Header)
	}
	for i, item := range s.Items {
		if i > 0 || s.Header != "" {
			b.WriteString("\n")
		}
		b.WriteString("• ")
		b.WriteString(item)
	}
	return b.String()
}

// BulletsMarkdown renders sections as grammar text, blank line separated.
func BulletsMarkdown(sections []BulletSection) string {
	blocks := make([]string, 0, len(sections))
	for _, s := range sections {
		blocks = append(blocks, s.Markdown())
	}
	return strings.Join(blocks, "\n\n")
}
