package service

import (
	"encoding/json"
	"fmt"

	"github.com/altius-academy/academy-api/internal/models"
)

// AutoGradeOutcome is the result of evaluating an interactive answer payload.
type AutoGradeOutcome struct {
	Score    float64
	Feedback string
	Result   models.InteractiveResult
}

// AutoGrader evaluates interactive activity results reported by the
// activity player. It is stateless and safe for concurrent use.
type AutoGrader struct{}

// NewAutoGrader constructs an AutoGrader.
func NewAutoGrader() *AutoGrader {
	return &AutoGrader{}
}

// Evaluate decodes the raw answers payload and derives a score scaled to
// maxGrade. The second return is false when the payload cannot be decoded
// into a usable result; callers keep the submission ungraded in that case.
func (g *AutoGrader) Evaluate(answers map[string]interface{}, maxGrade float64) (*AutoGradeOutcome, bool) {
	if len(answers) == 0 {
		return nil, false
	}

	raw, err := json.Marshal(answers)
	if err != nil {
		return nil, false
	}

	var result models.InteractiveResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, false
	}
	if result.TotalQuestions <= 0 {
		return nil, false
	}

	score := result.Percentage / 100 * maxGrade
	feedback := fmt.Sprintf("Calificación automática: %d/%d respuestas correctas (%.1f%%)",
		result.CorrectAnswers, result.TotalQuestions, result.Percentage)

	return &AutoGradeOutcome{Score: score, Feedback: feedback, Result: result}, true
}
