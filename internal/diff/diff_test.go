package diff

import (
	"strings"
	"testing"
)

func TestCompareIdenticalContent(t *testing.T) {
	r := NewRenderer(false)
	content := "keep this line\nand this one\n"

	result := r.Compare(content, content)
	if result.Unified != "" {
		t.Fatalf("expected empty diff for identical content, got %q", result.Unified)
	}
	if result.Changed() {
		t.Fatalf("expected Changed to be false")
	}
	if got := result.Summary(); got != "no changes" {
		t.Fatalf("expected summary %q, got %q", "no changes", got)
	}
}

func TestCompareReportsAddedAndRemovedLines(t *testing.T) {
	r := NewRenderer(false)
	original := "The mitochondria produces energy.\nIt lives inside the cell.\n"
	transformed := "The mitochondria produces energy.\n"

	result := r.Compare(original, transformed)
	if result.Unified == "" {
		t.Fatalf("expected a diff body")
	}
	if result.Removed == 0 {
		t.Fatalf("expected removed lines, got %d", result.Removed)
	}
	if !result.Changed() {
		t.Fatalf("expected Changed to be true")
	}
	if !strings.Contains(result.Summary(), "-") {
		t.Fatalf("expected summary to mention removed lines, got %q", result.Summary())
	}
}

func TestCompareHeadersNameContentSides(t *testing.T) {
	r := NewRenderer(false)
	result := r.Compare("dense paragraph of notes\n", "• notes\n")

	if !strings.Contains(result.Unified, "--- original") {
		t.Fatalf("expected original header in:\n%s", result.Unified)
	}
	if !strings.Contains(result.Unified, "+++ transformed") {
		t.Fatalf("expected transformed header in:\n%s", result.Unified)
	}
}

func TestCompareCountsBothDirections(t *testing.T) {
	r := NewRenderer(false)
	original := "first\nsecond\nthird\n"
	transformed := "first\nrewritten second\nthird\nfourth\n"

	result := r.Compare(original, transformed)
	if result.Added == 0 {
		t.Fatalf("expected added lines, got %d", result.Added)
	}
	if result.Removed == 0 {
		t.Fatalf("expected removed lines, got %d", result.Removed)
	}
	summary := result.Summary()
	if !strings.Contains(summary, "+") || !strings.Contains(summary, "-") {
		t.Fatalf("expected summary to carry both directions, got %q", summary)
	}
}

func TestCompareUncoloredOutputHasNoEscapeCodes(t *testing.T) {
	r := NewRenderer(false)
	result := r.Compare("plain\n", "formal\n")
	if strings.Contains(result.Unified, "\x1b[") {
		t.Fatalf("expected no ANSI escapes in uncolored output:\n%q", result.Unified)
	}
}

func TestLineDiffFallbackWalksBothSides(t *testing.T) {
	body := lineDiff("a\nb", "a\nc\nd")
	for _, want := range []string{"@@ -1,2 +1,3 @@", " a", "-b", "+c", "+d"} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in fallback diff:\n%s", want, body)
		}
	}
}
