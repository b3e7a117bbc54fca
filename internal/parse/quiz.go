package parse

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// QuizOption is one answer choice with the letter it was listed under.
type QuizOption struct {
	Letter string `json:"letter"`
	Text   string `json:"text"`
}

// QuizQuestion is a parsed multiple-choice question. CorrectLetter
// defaults to the first listed option when the source never named one.
type QuizQuestion struct {
	Question      string       `json:"question"`
	Options       []QuizOption `json:"options"`
	CorrectLetter string       `json:"correct_letter"`
}

var optionLinePattern = regexp.MustCompile(`^([A-D])[).:]\s*(.*)$`)

// Quiz parses quiz text in the documented grammar: "Q:" starts a
// question, "A)".."D)" list options, "Correct:"/"Answer:" names the
// right letter. Emphasis markers and leading numbering are stripped
// before matching. Questions without options are dropped. When strict
// line parsing finds nothing, a JSON salvage pass recovers output from
// models that answered in JSON despite the grammar.
func Quiz(text string) []QuizQuestion {
	var questions []QuizQuestion
	var current *QuizQuestion

	flush := func() {
		if current == nil {
			return
		}
		if len(current.Options) > 0 {
			if current.CorrectLetter == "" {
				current.CorrectLetter = current.Options[0].Letter
			}
			questions = append(questions, *current)
		}
		current = nil
	}

	for _, raw := range splitLines(text) {
		line := strings.TrimSpace(stripLeadingNumber(stripEmphasis(strings.TrimSpace(raw))))
		if line == "" {
			continue
		}

		if rest, ok := cutPrefixAny(line, "Q:", "Question:"); ok {
			flush()
			current = &QuizQuestion{Question: strings.TrimSpace(rest)}
			continue
		}

		if rest, ok := cutPrefixAny(line, "Correct:", "Answer:"); ok {
			if current != nil {
				if letter := firstLetter(rest); letter != "" {
					current.CorrectLetter = letter
				}
			}
			continue
		}

		if m := optionLinePattern.FindStringSubmatch(line); m != nil && current != nil {
			current.Options = append(current.Options, QuizOption{
				Letter: m[1],
				Text:   strings.TrimSpace(m[2]),
			})
			continue
		}
	}
	flush()

	if len(questions) == 0 && strings.TrimSpace(text) != "" {
		questions = salvageQuizJSON(text)
	}
	return questions
}

// cutPrefixAny tries each prefix in order and returns the remainder of
// the first that matches.
func cutPrefixAny(line string, prefixes ...string) (string, bool) {
	for _, p := range prefixes {
		if rest, ok := strings.CutPrefix(line, p); ok {
			return rest, true
		}
	}
	return "", false
}

type salvagedQuiz struct {
	Questions []salvagedQuestion `json:"questions"`
}

type salvagedQuestion struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Correct  string   `json:"correct"`
	Answer   string   `json:"answer"`
}

// salvageQuizJSON recovers questions from JSON-shaped output. The input
// has already failed line parsing, so anything unrecoverable here simply
// yields the empty list the caller expects.
func salvageQuizJSON(text string) []QuizQuestion {
	repaired, err := jsonrepair.JSONRepair(text)
	if err != nil {
		return nil
	}

	var wrapped salvagedQuiz
	if err := json.Unmarshal([]byte(repaired), &wrapped); err == nil && len(wrapped.Questions) > 0 {
		return convertSalvaged(wrapped.Questions)
	}

	var list []salvagedQuestion
	if err := json.Unmarshal([]byte(repaired), &list); err == nil {
		return convertSalvaged(list)
	}
	return nil
}

func convertSalvaged(list []salvagedQuestion) []QuizQuestion {
	letters := []string{"A", "B", "C", "D", "E", "F"}
	var questions []QuizQuestion
	for _, sq := range list {
		if strings.TrimSpace(sq.Question) == "" || len(sq.Options) == 0 {
			continue
		}
		q := QuizQuestion{Question: strings.TrimSpace(sq.Question)}
		for i, opt := range sq.Options {
			if i >= len(letters) {
				break
			}
			q.Options = append(q.Options, QuizOption{Letter: letters[i], Text: strings.TrimSpace(opt)})
		}
		if len(q.Options) == 0 {
			continue
		}
		correct := sq.Correct
		if correct == "" {
			correct = sq.Answer
		}
		if letter := firstLetter(correct); letter != "" {
			q.CorrectLetter = letter
		} else {
			q.CorrectLetter = q.Options[0].Letter
		}
		questions = append(questions, q)
	}
	return questions
}

// Markdown re-serializes the question in the grammar Quiz parses.
func (q QuizQuestion) Markdown() string {
	var b strings.Builder
	b.WriteString("Q: ")
	b.WriteString(q.Question)
	for _, opt := range q.Options {
		b.WriteString("\n")
		b.WriteString(opt.Letter)
		b.WriteString(") ")
		b.WriteString(opt.Text)
	}
	b.WriteString("\nCorrect: ")
	b.WriteString(q.CorrectLetter)
	return b.String()
}

// QuizMarkdown renders questions as grammar text, blank line separated.
func QuizMarkdown(questions []QuizQuestion) string {
	blocks := make([]string, 0, len(questions))
	for _, q := range questions {
		blocks = append(blocks, q.Markdown())
	}
	return strings.Join(blocks, "\n\n")
}
