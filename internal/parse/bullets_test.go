package parse

import (
	"reflect"
	"testing"
)

func TestBullets_HeaderedSection(t *testing.T) {
	t.Parallel()

	sections := Bullets("## Tasks\n- Buy milk\n- Walk dog")
	want := []BulletSection{{Header: "Tasks", Items: []string{"Buy milk", "Walk dog"}}}
	if !reflect.DeepEqual(sections, want) {
		t.Fatalf("sections = %+v, want %+v", sections, want)
	}
}

func TestBullets_MixedMarkersAndSubHeaders(t *testing.T) {
	t.Parallel()

	text := "• dot item\n* star item\n1. numbered item\n2) paren item\n### Sub\n- **bold item**"
	sections := Bullets(text)
	if len(sections) != 2 {
		t.Fatalf("expected 2 sections, got %d: %+v", len(sections), sections)
	}
	if sections[0].Header != "" {
		t.Errorf("first section must be unheaded, got %q", sections[0].Header)
	}
	wantItems := []string{"dot item", "star item", "numbered item", "paren item"}
	if !reflect.DeepEqual(sections[0].Items, wantItems) {
		t.Errorf("items = %+v, want %+v", sections[0].Items, wantItems)
	}
	if sections[1].Header != "Sub" || !reflect.DeepEqual(sections[1].Items, []string{"bold item"}) {
		t.Errorf("sub section = %+v", sections[1])
	}
}

func TestBullets_PlainLinesBecomeImplicitItems(t *testing.T) {
	t.Parallel()

	sections := Bullets("first thought\n\nsecond thought\nthird thought")
	if len(sections) != 1 {
		t.Fatalf("expected one unheaded section, got %d", len(sections))
	}
	if sections[0].Header != "" {
		t.Errorf("header = %q, want none", sections[0].Header)
	}
	want := []string{"first thought", "second thought", "third thought"}
	if !reflect.DeepEqual(sections[0].Items, want) {
		t.Fatalf("items = %+v, want %+v", sections[0].Items, want)
	}

	// Re-parsing the reconstruction reproduces the same items.
	again := Bullets(BulletsMarkdown(sections))
	if !reflect.DeepEqual(sections, again) {
		t.Fatalf("markdown reconstruction drifted: %+v vs %+v", sections, again)
	}
}

func TestBullets_EmptyInputYieldsNoSections(t *testing.T) {
	t.Parallel()

	for _, text := range []string{"", "  \n\t\n"} {
		if got := Bullets(text); len(got) != 0 {
			t.Errorf("Bullets(%q) = %+v, want none", text, got)
		}
	}
}

func TestBullets_HeaderOnlySectionKept(t *testing.T) {
	t.Parallel()

	sections := Bullets("## Ideas\n## Next steps\n- ship it")
	if len(sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(sections))
	}
	if sections[0].Header != "Ideas" || len(sections[0].Items) != 0 {
		t.Errorf("header-only section = %+v", sections[0])
	}
}

func TestBullets_RoundTrip(t *testing.T) {
	t.Parallel()

	original := Bullets("## Tasks\n• Buy milk\n• Walk dog\n\n## Later\n• Read a book")
	reparsed := Bullets(BulletsMarkdown(original))
	if !reflect.DeepEqual(original, reparsed) {
		t.Fatalf("round trip drifted:\noriginal: %+v\nreparsed: %+v", original, reparsed)
	}
}
