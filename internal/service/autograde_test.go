package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutoGraderScalesScoreToMaxGrade(t *testing.T) {
	grader := NewAutoGrader()

	outcome, ok := grader.Evaluate(map[string]interface{}{
		"correctAnswers": 17,
		"totalQuestions": 20,
		"percentage":     85.0,
	}, 5.0)

	require.True(t, ok)
	assert.InDelta(t, 4.25, outcome.Score, 1e-9)
	assert.Equal(t, "Calificación automática: 17/20 respuestas correctas (85.0%)", outcome.Feedback)
}

func TestAutoGraderFullScore(t *testing.T) {
	grader := NewAutoGrader()

	outcome, ok := grader.Evaluate(map[string]interface{}{
		"correctAnswers": 10,
		"totalQuestions": 10,
		"percentage":     100.0,
	}, 10.0)

	require.True(t, ok)
	assert.InDelta(t, 10.0, outcome.Score, 1e-9)
}

func TestAutoGraderRejectsUndecodablePayloads(t *testing.T) {
	grader := NewAutoGrader()

	cases := map[string]map[string]interface{}{
		"empty":             {},
		"nil":               nil,
		"missing questions": {"correctAnswers": 3, "percentage": 30.0},
		"zero questions":    {"correctAnswers": 0, "totalQuestions": 0, "percentage": 0.0},
		"wrong types":       {"correctAnswers": "three", "totalQuestions": 10, "percentage": 30.0},
	}

	for name, answers := range cases {
		t.Run(name, func(t *testing.T) {
			outcome, ok := grader.Evaluate(answers, 5.0)
			assert.False(t, ok)
			assert.Nil(t, outcome)
		})
	}
}
