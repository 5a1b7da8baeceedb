package genai

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"quizdeck-service/internal/domain"
)

// ErrNoQuestions is returned when nothing usable could be extracted from
// the generated text.
var ErrNoQuestions = errors.New("no questions found in generated text")

var (
	questionRe = regexp.MustCompile(`^(?:Q(?:uestion)?\s*)?(\d+)[.):]\s*(.+)$`)
	optionRe   = regexp.MustCompile(`^\(?([A-Da-d])[.)]\s*(.+)$`)
	answerRe   = regexp.MustCompile(`(?i)^\**answer\**\s*[:\-]\s*(.+)$`)
)

// ParseQuestions extracts (prompt, options, correct answer) tuples from
// free-form generated text. Parsing is best-effort: malformed blocks are
// dropped, and an error is returned only when nothing parses at all.
func ParseQuestions(text string, qtype domain.QuestionType) ([]domain.Question, error) {
	var questions []domain.Question
	var current *rawQuestion

	flush := func() {
		if current == nil {
			return
		}
		if q, ok := current.build(qtype, len(questions)+1); ok {
			questions = append(questions, q)
		}
		current = nil
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.Trim(strings.TrimSpace(line), "*"))
		if line == "" {
			continue
		}
		if m := questionRe.FindStringSubmatch(line); m != nil {
			flush()
			current = &rawQuestion{prompt: strings.TrimSpace(m[2])}
			continue
		}
		if current == nil {
			continue
		}
		if m := optionRe.FindStringSubmatch(line); m != nil {
			current.options = append(current.options, strings.TrimSpace(m[2]))
			continue
		}
		if m := answerRe.FindStringSubmatch(line); m != nil {
			// Markdown bold ("**Answer:** B") leaves stray asterisks in
			// the capture.
			current.answer = strings.Trim(m[1], "* ")
			continue
		}
		// Wrapped prompt text before any option showed up.
		if len(current.options) == 0 && current.answer == "" {
			current.prompt += " " + line
		}
	}
	flush()

	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}
	return questions, nil
}

type rawQuestion struct {
	prompt  string
	options []string
	answer  string
}

// build validates one parsed block and shapes it into a domain question.
func (r *rawQuestion) build(qtype domain.QuestionType, number int) (domain.Question, bool) {
	if r.prompt == "" || r.answer == "" {
		return domain.Question{}, false
	}

	q := domain.Question{
		ID:             "q" + strconv.Itoa(number),
		Prompt:         r.prompt,
		Type:           qtype,
		PositivePoints: 1,
	}

	if qtype == domain.TrueFalse {
		switch strings.ToLower(r.answer) {
		case "true", "t":
			q.CorrectAnswer = 0
		case "false", "f":
			q.CorrectAnswer = 1
		default:
			return domain.Question{}, false
		}
		return q, true
	}

	if len(r.options) < 2 {
		return domain.Question{}, false
	}
	q.Options = r.options
	q.CorrectAnswer = resolveAnswer(r.answer, r.options)
	if q.CorrectAnswer < 0 {
		return domain.Question{}, false
	}
	return q, true
}

// resolveAnswer accepts a letter ("B"), a lettered option ("B) Paris"),
// or the literal option text.
func resolveAnswer(answer string, options []string) int {
	trimmed := strings.TrimSpace(answer)
	if m := optionRe.FindStringSubmatch(trimmed); m != nil {
		trimmed = m[1]
	}
	if len(trimmed) == 1 {
		idx := int(strings.ToUpper(trimmed)[0] - 'A')
		if idx >= 0 && idx < len(options) {
			return idx
		}
		return -1
	}
	for i, opt := range options {
		if strings.EqualFold(opt, trimmed) {
			return i
		}
	}
	return -1
}
