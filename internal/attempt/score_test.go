package attempt

import (
	"testing"
	"time"

	"quizdeck-service/internal/domain"
)

func twoQuestionQuiz() domain.Quiz {
	return domain.Quiz{
		ID: 1,
		Questions: []domain.Question{
			{
				ID:             "q1",
				Prompt:         "First",
				Type:           domain.MultipleChoice,
				Options:        []string{"a", "b", "c"},
				CorrectAnswer:  1,
				PositivePoints: 4,
				NegativePoints: 1,
			},
			{
				ID:             "q2",
				Prompt:         "Second",
				Type:           domain.TrueFalse,
				CorrectAnswer:  0,
				PositivePoints: 4,
				NegativePoints: 1,
			},
		},
	}
}

func TestScoreCorrectAndUnanswered(t *testing.T) {
	ledger := NewLedger()
	ledger.Record("q1", domain.ChoiceAnswer(1), time.Second, false)

	card := Score(twoQuestionQuiz(), ledger)
	if card.EarnedPoints != 4 || card.TotalPoints != 8 || card.Percentage != 50 {
		t.Fatalf("expected 4/8 = 50%%, got %+v", card)
	}
}

func TestScorePenaltyForWrongAnswer(t *testing.T) {
	ledger := NewLedger()
	ledger.Record("q1", domain.ChoiceAnswer(0), time.Second, false) // wrong: -1
	ledger.Record("q2", domain.ChoiceAnswer(0), time.Second, false) // correct: +4

	card := Score(twoQuestionQuiz(), ledger)
	if card.EarnedPoints != 3 || card.TotalPoints != 8 {
		t.Fatalf("expected 3/8, got %+v", card)
	}
	if card.Percentage != 38 {
		t.Fatalf("expected round(3/8*100)=38, got %d", card.Percentage)
	}
}

func TestScoreCanGoNegative(t *testing.T) {
	quiz := twoQuestionQuiz()
	quiz.Questions[0].NegativePoints = 5
	quiz.Questions[1].NegativePoints = 5

	ledger := NewLedger()
	ledger.Record("q1", domain.ChoiceAnswer(0), time.Second, false)
	ledger.Record("q2", domain.ChoiceAnswer(1), time.Second, false)

	card := Score(quiz, ledger)
	if card.EarnedPoints != -10 {
		t.Fatalf("expected -10 earned, no floor at zero, got %+v", card)
	}
}

func TestScoreZeroTotalYieldsZeroPercent(t *testing.T) {
	// A quiz with no questions must not divide by zero.
	card := Score(domain.Quiz{}, NewLedger())
	if card.EarnedPoints != 0 || card.TotalPoints != 0 || card.Percentage != 0 {
		t.Fatalf("expected all-zero scorecard, got %+v", card)
	}

	// Same for all-zero-point questions.
	quiz := twoQuestionQuiz()
	quiz.Questions[0].PositivePoints = 0
	quiz.Questions[1].PositivePoints = 0
	ledger := NewLedger()
	ledger.Record("q1", domain.ChoiceAnswer(1), time.Second, false)
	card = Score(quiz, ledger)
	if card.Percentage != 0 {
		t.Fatalf("expected 0%% for zero-point quiz, got %+v", card)
	}
}

func TestScoreExactMatchOnly(t *testing.T) {
	ledger := NewLedger()
	// Same index under a different kind must not count as correct.
	ledger.Record("q1", domain.Answer{Kind: "text", Index: 1}, time.Second, false)

	card := Score(twoQuestionQuiz(), ledger)
	if card.EarnedPoints != -1 {
		t.Fatalf("expected structural equality to reject mismatched kind, got %+v", card)
	}
}
