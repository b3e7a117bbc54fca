package parse

import (
	"reflect"
	"testing"
)

func TestQuiz_WellFormedBlock(t *testing.T) {
	t.Parallel()

	questions := Quiz("Q: 2+2?\nA) 3\nB) 4\nC) 5\nD) 6\nCorrect: B")
	if len(questions) != 1 {
		t.Fatalf("expected 1 question, got %d", len(questions))
	}

	q := questions[0]
	if q.Question != "2+2?" {
		t.Errorf("question = %q", q.Question)
	}
	if q.CorrectLetter != "B" {
		t.Errorf("correct letter = %q, want B", q.CorrectLetter)
	}
	if len(q.Options) != 4 {
		t.Fatalf("expected 4 options, got %d", len(q.Options))
	}
	for i, want := range []string{"A", "B", "C", "D"} {
		if q.Options[i].Letter != want {
			t.Errorf("option %d letter = %q, want %q", i, q.Options[i].Letter, want)
		}
	}
	if q.Options[1].Text != "4" {
		t.Errorf("option B text = %q, want 4", q.Options[1].Text)
	}
}

func TestQuiz_MultipleBlocksAndMarkdownNoise(t *testing.T) {
	t.Parallel()

	text := "**Q: First question?**\n1. A) one\n2. B) two\nAnswer: a\n\n" +
		"Question: Second question?\nA. left\nB. right\nCorrect: B"
	questions := Quiz(text)
	if len(questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(questions))
	}
	if questions[0].Question != "First question?" {
		t.Errorf("emphasis not stripped: %q", questions[0].Question)
	}
	if questions[0].CorrectLetter != "A" {
		t.Errorf("Answer: marker letter = %q, want upper-cased A", questions[0].CorrectLetter)
	}
	if questions[1].Question != "Second question?" || questions[1].CorrectLetter != "B" {
		t.Errorf("second block parsed wrong: %+v", questions[1])
	}
}

func TestQuiz_MissingCorrectDefaultsToFirstOption(t *testing.T) {
	t.Parallel()

	questions := Quiz("Q: Pick one\nB) first listed\nC) second listed")
	if len(questions) != 1 {
		t.Fatalf("expected 1 question, got %d", len(questions))
	}
	if questions[0].CorrectLetter != "B" {
		t.Errorf("default correct letter = %q, want first listed option's letter B", questions[0].CorrectLetter)
	}
}

func TestQuiz_QuestionWithoutOptionsDropped(t *testing.T) {
	t.Parallel()

	questions := Quiz("Q: No options here\n\nQ: Real one\nA) yes\nB) no\nCorrect: A")
	if len(questions) != 1 {
		t.Fatalf("expected the option-less question dropped, got %d", len(questions))
	}
	if questions[0].Question != "Real one" {
		t.Errorf("kept question = %q", questions[0].Question)
	}
}

func TestQuiz_MalformedInputYieldsEmpty(t *testing.T) {
	t.Parallel()

	for _, text := range []string{"", "   \n  ", "just prose, nothing structured"} {
		if got := Quiz(text); len(got) != 0 {
			t.Errorf("Quiz(%q) = %+v, want empty", text, got)
		}
	}
}

func TestQuiz_JSONSalvage(t *testing.T) {
	t.Parallel()

	// Providers sometimes ignore the grammar and answer in (broken)
	// JSON; the salvage pass recovers what it can.
	text := `{"questions": [{"question": "Capital of France?", "options": ["Paris", "Lyon"], "correct": "A"},]}`
	questions := Quiz(text)
	if len(questions) != 1 {
		t.Fatalf("expected 1 salvaged question, got %d", len(questions))
	}
	q := questions[0]
	if q.Question != "Capital of France?" || q.CorrectLetter != "A" {
		t.Errorf("salvaged wrong: %+v", q)
	}
	if len(q.Options) != 2 || q.Options[0].Letter != "A" || q.Options[1].Text != "Lyon" {
		t.Errorf("salvaged options wrong: %+v", q.Options)
	}
}

func TestQuiz_RoundTrip(t *testing.T) {
	t.Parallel()

	original := Quiz("Q: 2+2?\nA) 3\nB) 4\nCorrect: B\n\nQ: Sky color?\nA) blue\nB) green\nCorrect: A")
	reparsed := Quiz(QuizMarkdown(original))
	if !reflect.DeepEqual(original, reparsed) {
		t.Fatalf("round trip drifted:\noriginal: %+v\nreparsed: %+v", original, reparsed)
	}
}
