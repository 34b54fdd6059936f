package services

import (
	"context"
	"strings"

	"triviad/models"
)

// AnswerJudge grades one user answer against the canonical one. It must be
// safe to call once per submission; the closer caches the verdict on the
// submission so a judge is never asked about the same answer twice.
//
// LLM-backed judges for open-ended questions implement this same interface.
type AnswerJudge interface {
	Judge(ctx context.Context, userAnswer, correctAnswer, question string, options []string) (models.Verdict, error)
}

// MatchJudge grades by normalized string comparison. For multiple-choice
// questions it also checks whether the answer names a valid option at all.
type MatchJudge struct{}

func NewMatchJudge() *MatchJudge {
	return &MatchJudge{}
}

func (j *MatchJudge) Judge(_ context.Context, userAnswer, correctAnswer, _ string, options []string) (models.Verdict, error) {
	user := normalizeAnswer(userAnswer)
	correct := normalizeAnswer(correctAnswer)

	if len(options) > 0 {
		if user == correct {
			return models.Verdict{IsCorrect: true, Feedback: "Exact match"}, nil
		}
		for _, option := range options {
			if user == normalizeAnswer(option) {
				return models.Verdict{IsCorrect: false, Feedback: "Incorrect option"}, nil
			}
		}
		return models.Verdict{IsCorrect: false, Feedback: "Answer does not match any option"}, nil
	}

	if user == correct {
		return models.Verdict{IsCorrect: true, Feedback: "Exact match"}, nil
	}
	return models.Verdict{IsCorrect: false, Feedback: "Incorrect"}, nil
}

func normalizeAnswer(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
