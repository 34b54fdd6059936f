package services

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"triviad/models"
)

// Archiver mirrors closed games into Postgres for long-term analytics,
// beyond the store's retention TTL. Writes happen after the store commit and
// are best-effort; the coordination path never reads this data.
type Archiver struct {
	db *gorm.DB
}

func NewArchiver(db *gorm.DB) *Archiver {
	return &Archiver{db: db}
}

// Archive inserts one row per closed game. Re-archiving the same game id
// (crash recovery, racing replicas) is a no-op, as is archiving without a
// database handle.
func (a *Archiver) Archive(ctx context.Context, game *models.Game, submissions map[string]*models.Submission, results *Results) error {
	if a.db == nil {
		return nil
	}

	blob, err := json.Marshal(submissions)
	if err != nil {
		return err
	}

	endedAt := time.Now().UTC()
	if game.ClosedAt != nil {
		endedAt = *game.ClosedAt
	}

	record := models.GameArchive{
		ID:            game.ID,
		GuildID:       game.GuildID,
		ChannelID:     game.ChannelID,
		Question:      game.Question,
		CorrectAnswer: game.CorrectAnswer,
		Category:      game.Category,
		StartedAt:     game.StartedAt,
		EndedAt:       endedAt,
		Participants:  results.Participants,
		CorrectCount:  results.CorrectCount,
		Submissions:   string(blob),
		CreatedAt:     time.Now().UTC(),
	}

	return a.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&record).Error
}
