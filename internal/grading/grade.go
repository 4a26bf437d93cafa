// Package grading scores a submitted answer set against a quiz definition.
// Grade is pure; updating the quiz's running average belongs to the caller.
package grading

import (
	"fmt"
	"math"

	"performance-service/internal/apperrors"
	"performance-service/internal/models"
)

type Result struct {
	Score         float64 `json:"score"`
	TotalPossible float64 `json:"total_possible"`
	Percentage    float64 `json:"percentage"`
	Passed        bool    `json:"passed"`
	CorrectCount  int     `json:"correct_count"`
	Feedback      string  `json:"feedback"`
}

// Grade scores answers positionally against quiz.Questions. The answer
// slice must be exactly as long as the question list, and a quiz whose
// questions sum to zero points is rejected rather than dividing by zero.
func Grade(quiz *models.Quiz, answers []int) (*Result, error) {
	if len(answers) != len(quiz.Questions) {
		return nil, apperrors.Invalid("answers",
			fmt.Sprintf("expected %d answers, got %d", len(quiz.Questions), len(answers)))
	}

	var totalPossible float64
	for _, q := range quiz.Questions {
		totalPossible += q.Points
	}
	if totalPossible <= 0 {
		return nil, apperrors.Invalid("questions", "quiz has no scorable questions")
	}

	var score float64
	correct := 0
	for i, q := range quiz.Questions {
		if answers[i] == q.Correct {
			score += q.Points
			correct++
		}
	}

	percentage := math.Round(100 * score / totalPossible)
	return &Result{
		Score:         score,
		TotalPossible: totalPossible,
		Percentage:    percentage,
		Passed:        percentage >= quiz.PassingScore,
		CorrectCount:  correct,
		Feedback:      feedbackFor(percentage),
	}, nil
}

// Buckets are inclusive lower bounds checked highest first.
func feedbackFor(percentage float64) string {
	switch {
	case percentage >= 90:
		return "Excellent! You have mastered this topic."
	case percentage >= 80:
		return "Great job! You have a solid understanding."
	case percentage >= 60:
		return "Good effort! Review the topics to improve further."
	default:
		return "Keep practicing! Revisit the material and try again."
	}
}
