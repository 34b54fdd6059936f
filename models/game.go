package models

import (
	"time"
)

// Game is one instance of a trivia round, stored as a JSON blob in the
// active-games hash while the answer window is open.
type Game struct {
	ID             string     `json:"id"`
	GuildID        string     `json:"guild_id"`
	RegistrationID string     `json:"registration_id,omitempty"` // empty for ad-hoc games
	ChannelID      string     `json:"channel_id"`
	ThreadID       string     `json:"thread_id,omitempty"`
	MessageID      string     `json:"message_id,omitempty"`
	Question       string     `json:"question"`
	CorrectAnswer  string     `json:"correct_answer"`
	Category       string     `json:"category"`
	Explanation    string     `json:"explanation,omitempty"`
	Options        []string   `json:"options,omitempty"`
	Seed           string     `json:"seed,omitempty"`
	StartedAt      time.Time  `json:"started_at"`
	EndsAt         time.Time  `json:"ends_at"`
	EndsAtEpoch    float64    `json:"ends_at_epoch"` // precomputed for the submission script
	ClosedAt       *time.Time `json:"closed_at,omitempty"`
}

// Closed reports whether the game's close has been committed.
func (g *Game) Closed() bool {
	return g.ClosedAt != nil
}

// Expired reports whether the answer window has elapsed at the given instant.
func (g *Game) Expired(now time.Time) bool {
	return !now.Before(g.EndsAt)
}
