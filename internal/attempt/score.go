package attempt

import (
	"math"

	"quizdeck-service/internal/domain"
)

// Scorecard is the final grade for one attempt.
type Scorecard struct {
	EarnedPoints int `json:"earnedPoints"`
	TotalPoints  int `json:"totalPoints"`
	Percentage   int `json:"percentage"`
}

// Score grades a finished attempt. Every question contributes its positive
// points to the denominator whether or not it was answered. An answered
// question earns its positive points on an exact match and loses its
// negative points otherwise; unanswered questions are neutral. Earned
// points may go below zero, and a zero-point quiz scores 0% rather than
// propagating a division by zero.
func Score(quiz domain.Quiz, ledger *Ledger) Scorecard {
	var earned, total int
	for _, q := range quiz.Questions {
		total += q.PositivePoints
		entry, ok := ledger.Get(q.ID)
		if !ok {
			continue
		}
		if entry.Answer.Equal(domain.ChoiceAnswer(q.CorrectAnswer)) {
			earned += q.PositivePoints
		} else {
			earned -= q.NegativePoints
		}
	}

	percentage := 0
	if total > 0 {
		percentage = int(math.Round(float64(earned) / float64(total) * 100))
	}
	return Scorecard{EarnedPoints: earned, TotalPoints: total, Percentage: percentage}
}
