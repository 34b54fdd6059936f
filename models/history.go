package models

import (
	"time"
)

// GameHistory is the compact record written when a closed game is moved out
// of the active region. It lives under a bounded retention TTL.
type GameHistory struct {
	GameID        string                 `json:"game_id"`
	Question      string                 `json:"question"`
	CorrectAnswer string                 `json:"correct_answer"`
	Category      string                 `json:"category"`
	StartedAt     time.Time              `json:"started_at"`
	EndedAt       time.Time              `json:"ended_at"`
	Submissions   map[string]*Submission `json:"submissions"`
}
