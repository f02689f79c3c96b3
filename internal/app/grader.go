package app

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"quizmaster-service/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// Grade scores a submission against the mapping that was shown at render time.
// Every question of the quiz yields exactly one Answer. A question without a mapping
// or without a usable selection is recorded as unanswered and earns nothing.
func Grade(quiz domain.Quiz, userID string, selections domain.Selections, mapping domain.AttemptMapping, now time.Time) domain.GradedAttempt {
	awarded := decimal.Zero
	possible := decimal.Zero
	answers := make([]domain.Answer, 0, len(quiz.Questions))

	for _, question := range quiz.Questions {
		points := decimal.NewFromFloat(question.Points)
		possible = possible.Add(points)

		answer := domain.Answer{QuestionID: question.ID}
		shuffle, mapped := mapping[question.ID]
		position, answered := parseSelection(selections[question.ID])
		if mapped && answered {
			if canonical, ok := shuffle.Canonical(position); ok {
				selected := canonical
				answer.SelectedOption = &selected
				// Position comparison in shuffled space is the authoritative check.
				if position == shuffle.CorrectPosition {
					answer.IsCorrect = true
					answer.PointsAwarded = question.Points
					awarded = awarded.Add(points)
				}
			}
		}
		answers = append(answers, answer)
	}

	total, _ := awarded.Float64()
	possibleF, _ := possible.Float64()
	return domain.GradedAttempt{
		Score: domain.Score{
			UserID:      userID,
			QuizID:      quiz.ID,
			TotalScored: total,
			Timestamp:   now,
		},
		Answers:       answers,
		TotalPossible: possibleF,
		Percent:       percentOf(awarded, possible),
	}
}

// Percent returns awarded/possible*100, or 0 when nothing was possible.
func Percent(awarded, possible float64) float64 {
	return percentOf(decimal.NewFromFloat(awarded), decimal.NewFromFloat(possible))
}

func percentOf(awarded, possible decimal.Decimal) float64 {
	if !possible.IsPositive() {
		return 0
	}
	pct, _ := awarded.Mul(hundred).Div(possible).Float64()
	return pct
}

// parseSelection accepts only plain decimal digits; anything else is unanswered.
func parseSelection(raw string) (int, bool) {
	if raw == "" {
		return 0, false
	}
	for _, r := range raw {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}
