package domain

// QuestionType discriminates how a question is presented and answered.
type QuestionType string

const (
	MultipleChoice QuestionType = "multiple-choice"
	TrueFalse      QuestionType = "true-false"
)

// TrueFalseOptions is the implicit option pair for true-false questions,
// which carry no options of their own.
var TrueFalseOptions = []string{"True", "False"}

// Question models a single quiz question. CorrectAnswer indexes into
// Options, or into TrueFalseOptions for true-false questions.
type Question struct {
	ID             string       `json:"id"`
	Prompt         string       `json:"question"`
	Type           QuestionType `json:"type"`
	Options        []string     `json:"options"`
	CorrectAnswer  int          `json:"correctAnswer"`
	PositivePoints int          `json:"positivePoints"` // awarded on a correct answer
	NegativePoints int          `json:"negativePoints"` // deducted on a recorded wrong answer
}

// RenderedOptions returns the options as presented to the taker; for
// true-false questions that is the fixed True/False pair.
func (q Question) RenderedOptions() []string {
	if q.Type == TrueFalse {
		return TrueFalseOptions
	}
	return q.Options
}

// Quiz is an ordered set of questions plus quiz-level settings. ID is the
// externally visible numeric identifier used for lookup and sharing.
type Quiz struct {
	ID               int64      `json:"id"`
	Title            string     `json:"quizTitle"`
	Description      string     `json:"quizDescription"`
	Difficulty       string     `json:"difficulty"`
	TimeLimit        bool       `json:"timeLimit"`
	TimeLimitTotal   int        `json:"timeLimitTotal"`   // whole-quiz allotment, minutes
	MakeStrict       bool       `json:"makeStrict"`       // per-question countdown, forward-only
	TimeLimitMinutes int        `json:"timeLimitMinutes"` // per-question allotment, minutes
	IsDraft          bool       `json:"isDraft"`
	Creator          string     `json:"creatorUsername"`
	ResponseCount    int        `json:"noofResponses"`
	Questions        []Question `json:"questions"`
}

// Validate enforces the aggregate invariants: strict mode requires the
// whole-quiz limit, allotments must be positive where their mode is on,
// and every correct answer must index into its rendered option set.
func (q Quiz) Validate() error {
	if q.MakeStrict && !q.TimeLimit {
		return ErrStrictWithoutTimeLimit
	}
	if q.TimeLimit && q.TimeLimitTotal <= 0 {
		return ErrInvalidTimeLimit
	}
	if q.MakeStrict && q.TimeLimitMinutes <= 0 {
		return ErrInvalidTimeLimit
	}
	for _, question := range q.Questions {
		opts := question.RenderedOptions()
		if question.CorrectAnswer < 0 || question.CorrectAnswer >= len(opts) {
			return ErrInvalidCorrectAnswer
		}
		if question.PositivePoints < 0 || question.NegativePoints < 0 {
			return ErrInvalidPoints
		}
	}
	return nil
}

// VisibleTo reports whether the quiz may be served to the given viewer.
// Drafts are reachable only by their creator.
func (q Quiz) VisibleTo(viewer string) bool {
	if !q.IsDraft {
		return true
	}
	return viewer != "" && viewer == q.Creator
}

// AnswerKind tags the closed set of answer representations. Only option
// choices exist today; the tag keeps the scoring equality check defined
// as more question types are added.
type AnswerKind string

const AnswerChoice AnswerKind = "choice"

// Answer is a taker's recorded response to one question.
type Answer struct {
	Kind  AnswerKind `json:"kind"`
	Index int        `json:"index"`
}

// ChoiceAnswer builds an option-index answer.
func ChoiceAnswer(index int) Answer {
	return Answer{Kind: AnswerChoice, Index: index}
}

// Equal is the structural comparison used by scoring: exact match, no
// partial credit.
func (a Answer) Equal(b Answer) bool {
	return a.Kind == b.Kind && a.Index == b.Index
}

// User is the account record attached to a session. Creators may author
// quizzes and see their own drafts.
type User struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	IsCreator bool   `json:"isCreator"`
}
