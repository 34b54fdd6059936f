package models

import (
	"time"
)

// GameArchive mirrors a closed game into Postgres for long-term analytics.
// It is a write-only copy created after the Redis commit point; coordination
// state never reads from it.
type GameArchive struct {
	ID            string    `json:"id" gorm:"primaryKey"`
	GuildID       string    `json:"guild_id" gorm:"index"`
	ChannelID     string    `json:"channel_id"`
	Question      string    `json:"question"`
	CorrectAnswer string    `json:"correct_answer"`
	Category      string    `json:"category" gorm:"index"`
	StartedAt     time.Time `json:"started_at"`
	EndedAt       time.Time `json:"ended_at"`
	Participants  int       `json:"participants"`
	CorrectCount  int       `json:"correct_count"`
	Submissions   string    `json:"submissions" gorm:"type:text"` // JSON blob
	CreatedAt     time.Time `json:"created_at"`
}
