package models

import (
	"time"
)

// Registration is a recurring schedule for posting trivia games into one channel.
type Registration struct {
	ID                  string    `json:"id"`
	GuildID             string    `json:"guild_id"`
	ChannelID           string    `json:"channel_id"`
	ScheduleTimes       []string  `json:"schedule_times"` // "HH:MM" in the service timezone
	AnswerWindowMinutes int       `json:"answer_window_minutes"`
	Enabled             bool      `json:"enabled"`
	CreatedAt           time.Time `json:"created_at"`
}

// AnswerWindow returns the answer window as a duration.
func (r *Registration) AnswerWindow() time.Duration {
	return time.Duration(r.AnswerWindowMinutes) * time.Minute
}
