package models

// Question is what a question provider produces for one trivia round.
type Question struct {
	Question      string   `json:"question"`
	CorrectAnswer string   `json:"correct_answer"`
	Category      string   `json:"category"`
	Explanation   string   `json:"explanation,omitempty"`
	Options       []string `json:"options,omitempty"` // empty for open-ended questions
}
