package ports

import "fmt"

// TransformKind names one of the single-shot content rewrites.
type TransformKind string

const (
	TransformShorten    TransformKind = "shorten"
	TransformFormalize  TransformKind = "formalize"
	TransformBullets    TransformKind = "bullets"
	TransformQuiz       TransformKind = "quiz"
	TransformFlashcards TransformKind = "flashcards"
)

// AllTransformKinds lists every transform for pickers and validation.
func AllTransformKinds() []TransformKind {
	return []TransformKind{
		TransformShorten,
		TransformFormalize,
		TransformBullets,
		TransformQuiz,
		TransformFlashcards,
	}
}

// ParseTransformKind validates a kind string; unlike the enum fallbacks,
// an unknown transform is a caller error, not a safe default.
func ParseTransformKind(s string) (TransformKind, error) {
	switch TransformKind(s) {
	case TransformShorten, TransformFormalize, TransformBullets, TransformQuiz, TransformFlashcards:
		return TransformKind(s), nil
	default:
		return "", fmt.Errorf("unknown transform kind %q", s)
	}
}
