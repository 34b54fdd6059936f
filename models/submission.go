package models

import (
	"time"
)

// Submission is one user's single answer to one game. It is keyed by user ID
// in the game's submission hash, so the user ID is not repeated in the blob.
type Submission struct {
	Answer      string     `json:"answer"`
	SubmittedAt time.Time  `json:"submitted_at"`
	IsCorrect   *bool      `json:"is_correct"` // nil until graded
	Feedback    string     `json:"feedback,omitempty"`
	GradedAt    *time.Time `json:"graded_at,omitempty"`
}

// Graded reports whether a correctness verdict has been recorded.
func (s *Submission) Graded() bool {
	return s.IsCorrect != nil
}

// Verdict is the result of judging one answer against the canonical one.
type Verdict struct {
	IsCorrect bool   `json:"is_correct"`
	Feedback  string `json:"feedback"`
}
