package diff

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// Renderer produces a unified diff between a piece of content and its
// transformed rewrite, so callers can preview what a transform changed
// before keeping either side.
type Renderer struct {
	colored bool
}

func NewRenderer(colored bool) *Renderer {
	return &Renderer{colored: colored}
}

// Result carries the rendered diff and its line counts.
type Result struct {
	Unified string
	Added   int
	Removed int
}

// Changed reports whether the transform altered the content at all.
func (r Result) Changed() bool {
	return r.Added > 0 || r.Removed > 0
}

// Summary returns a short change count for status lines.
func (r Result) Summary() string {
	if !r.Changed() {
		return "no changes"
	}
	parts := []string{}
	if r.Added > 0 {
		parts = append(parts, fmt.Sprintf("+%d lines", r.Added))
	}
	if r.Removed > 0 {
		parts = append(parts, fmt.Sprintf("-%d lines", r.Removed))
	}
	return strings.Join(parts, ", ")
}

// Compare diffs the original content against its transformed text.
// Identical inputs produce an empty diff.
func (r *Renderer) Compare(original, transformed string) Result {
	if original == transformed {
		return Result{}
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(original, transformed, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	patches := dmp.PatchMake(original, diffs)
	body := dmp.PatchToText(patches)
	if body == "" {
		body = lineDiff(original, transformed)
	}

	added, removed := countChanges(diffs)
	return Result{
		Unified: r.render(body),
		Added:   added,
		Removed: removed,
	}
}

// lineDiff is the fallback when the patch text comes out empty: a plain
// line-by-line walk emitting -original/+transformed pairs.
func lineDiff(original, transformed string) string {
	originalLines := strings.Split(original, "\n")
	transformedLines := strings.Split(transformed, "\n")

	var body strings.Builder
	body.WriteString(fmt.Sprintf("@@ -1,%d +1,%d @@\n", len(originalLines), len(transformedLines)))

	oldIdx, newIdx := 0, 0
	for oldIdx < len(originalLines) || newIdx < len(transformedLines) {
		switch {
		case oldIdx >= len(originalLines):
			body.WriteString("+" + transformedLines[newIdx] + "\n")
			newIdx++
		case newIdx >= len(transformedLines):
			body.WriteString("-" + originalLines[oldIdx] + "\n")
			oldIdx++
		case originalLines[oldIdx] == transformedLines[newIdx]:
			body.WriteString(" " + originalLines[oldIdx] + "\n")
			oldIdx++
			newIdx++
		default:
			body.WriteString("-" + originalLines[oldIdx] + "\n")
			body.WriteString("+" + transformedLines[newIdx] + "\n")
			oldIdx++
			newIdx++
		}
	}
	return body.String()
}

// render prepends the original/transformed headers and colors each line
// by its marker.
func (r *Renderer) render(body string) string {
	var out strings.Builder
	out.WriteString(r.colorize("--- original\n", color.FgRed))
	out.WriteString(r.colorize("+++ transformed\n", color.FgGreen))

	for _, line := range strings.Split(body, "\n") {
		switch {
		case strings.HasPrefix(line, "@@"):
			out.WriteString(r.colorize(line+"\n", color.FgCyan))
		case strings.HasPrefix(line, "+"):
			out.WriteString(r.colorize(line+"\n", color.FgGreen))
		case strings.HasPrefix(line, "-"):
			out.WriteString(r.colorize(line+"\n", color.FgRed))
		case line != "":
			out.WriteString(line + "\n")
		}
	}
	return out.String()
}

func countChanges(diffs []diffmatchpatch.Diff) (added, removed int) {
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			added += strings.Count(d.Text, "\n")
			if !strings.HasSuffix(d.Text, "\n") {
				added++
			}
		case diffmatchpatch.DiffDelete:
			removed += strings.Count(d.Text, "\n")
			if !strings.HasSuffix(d.Text, "\n") {
				removed++
			}
		}
	}
	return
}

func (r *Renderer) colorize(text string, attr color.Attribute) string {
	if !r.colored {
		return text
	}
	return color.New(attr).Sprint(text)
}
