package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"triviad/models"
	"triviad/store"
)

// Poster examines registrations on a fixed interval and opens new games for
// any schedule slot that is due. Every replica runs its own poster; the
// already-posted check plus a per-slot lock keep concurrent replicas from
// double-posting the same slot.
type Poster struct {
	store    *store.GameStore
	locks    *store.LockManager
	provider QuestionProvider
	sink     DeliverySink
	tz       *time.Location
	grace    time.Duration
	lockTTL  time.Duration
	now      func() time.Time
}

func NewPoster(gs *store.GameStore, locks *store.LockManager, provider QuestionProvider, sink DeliverySink, tz *time.Location, grace time.Duration) *Poster {
	if tz == nil {
		tz = time.UTC
	}
	if grace <= 0 {
		grace = 20 * time.Minute
	}
	return &Poster{
		store:    gs,
		locks:    locks,
		provider: provider,
		sink:     sink,
		tz:       tz,
		grace:    grace,
		lockTTL:  60 * time.Second,
		now:      time.Now,
	}
}

// RunOnce performs one posting cycle across all known scopes. Errors on one
// registration never stop processing of the others.
func (p *Poster) RunOnce(ctx context.Context) {
	scopes, err := p.store.Scopes(ctx)
	if err != nil {
		log.Printf("Poster: failed to list scopes: %v", err)
		return
	}

	for _, scope := range scopes {
		if err := p.runScope(ctx, scope); err != nil {
			log.Printf("Poster: scope %s failed: %v", scope, err)
		}
	}
}

func (p *Poster) runScope(ctx context.Context, guildID string) error {
	regs, err := p.store.GetRegistrations(ctx, guildID)
	if err != nil {
		return err
	}
	if len(regs) == 0 {
		return nil
	}

	for regID, reg := range regs {
		if !reg.Enabled {
			continue
		}

		slot, ok := p.dueSlot(reg)
		if !ok {
			continue
		}

		active, err := p.store.ListActiveGames(ctx, guildID)
		if err != nil {
			log.Printf("Poster: failed to list active games for %s: %v", guildID, err)
			continue
		}
		if slotAlreadyServed(active, regID, slot) {
			continue
		}

		// Two replicas can pass the served check for the same slot within
		// milliseconds of each other; the lock closes that window.
		resource := fmt.Sprintf("trivia:%s:post:%s", store.ScopeID(guildID), regID)
		token, acquired, err := p.locks.Acquire(ctx, resource, p.lockTTL)
		if err != nil {
			log.Printf("Poster: lock error for registration %s: %v", regID, err)
			continue
		}
		if !acquired {
			continue
		}

		active, err = p.store.ListActiveGames(ctx, guildID)
		if err == nil && !slotAlreadyServed(active, regID, slot) {
			if err := p.postGame(ctx, guildID, regID, reg); err != nil {
				log.Printf("Poster: failed to post game for registration %s: %v", regID, err)
			}
		}

		if err := p.locks.Release(ctx, resource, token); err != nil {
			log.Printf("Poster: failed to release lock for registration %s: %v", regID, err)
		}
	}
	return nil
}

// dueSlot returns today's scheduled instant for the first schedule time that
// is currently due. A slot is due only within the grace window after its
// scheduled instant, so a restarted poster cannot fire hours late.
func (p *Poster) dueSlot(reg *models.Registration) (time.Time, bool) {
	now := p.now().In(p.tz)

	for _, scheduleTime := range reg.ScheduleTimes {
		var hour, minute int
		if _, err := fmt.Sscanf(scheduleTime, "%d:%d", &hour, &minute); err != nil {
			log.Printf("Poster: invalid schedule time %q on registration %s", scheduleTime, reg.ID)
			continue
		}

		scheduled := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, p.tz)
		late := now.Sub(scheduled)
		if late >= 0 && late <= p.grace {
			return scheduled, true
		}
	}
	return time.Time{}, false
}

// slotAlreadyServed reports whether a game for this registration was already
// opened at or after the scheduled instant, which means this slot was served
// by an earlier tick or another replica.
func slotAlreadyServed(active map[string]*models.Game, regID string, slot time.Time) bool {
	for _, game := range active {
		if game.RegistrationID != regID {
			continue
		}
		started := game.StartedAt.In(slot.Location())
		if started.Year() == slot.Year() && started.YearDay() == slot.YearDay() && !started.Before(slot) {
			return true
		}
	}
	return false
}

func (p *Poster) postGame(ctx context.Context, guildID, regID string, reg *models.Registration) error {
	seed, err := PickSeed(ctx, p.store, guildID)
	if err != nil {
		return err
	}

	question, err := p.provider.Generate(ctx, seed, "")
	if err != nil {
		// Skipped this cycle; the slot stays due until the grace window ends.
		return fmt.Errorf("question generation failed: %w", err)
	}

	now := p.now().UTC()
	game := &models.Game{
		ID:             uuid.NewString(),
		GuildID:        guildID,
		RegistrationID: regID,
		ChannelID:      reg.ChannelID,
		Question:       question.Question,
		CorrectAnswer:  question.CorrectAnswer,
		Category:       question.Category,
		Explanation:    question.Explanation,
		Options:        question.Options,
		Seed:           seed,
		StartedAt:      now,
		EndsAt:         now.Add(reg.AnswerWindow()),
	}

	// Creating the record is the commit; delivery below is best-effort.
	if err := p.store.CreateGame(ctx, game); err != nil {
		return err
	}

	if _, err := p.store.MarkSeedUsed(ctx, guildID, seed); err != nil {
		log.Printf("Poster: failed to mark seed used: %v", err)
	}
	if _, err := p.store.TrimUsedSeeds(ctx, guildID, MaxUsedSeeds); err != nil {
		log.Printf("Poster: failed to trim used seeds: %v", err)
	}

	p.deliverQuestion(ctx, game)
	log.Printf("Poster: opened game %.8s for registration %.8s in scope %s", game.ID, regID, guildID)
	return nil
}

// PostAdHoc opens a game immediately, outside any registration schedule.
func (p *Poster) PostAdHoc(ctx context.Context, guildID, channelID, category string, window time.Duration) (*models.Game, error) {
	seed, err := PickSeed(ctx, p.store, guildID)
	if err != nil {
		return nil, err
	}

	question, err := p.provider.Generate(ctx, seed, category)
	if err != nil {
		return nil, err
	}

	now := p.now().UTC()
	game := &models.Game{
		ID:            uuid.NewString(),
		GuildID:       guildID,
		ChannelID:     channelID,
		Question:      question.Question,
		CorrectAnswer: question.CorrectAnswer,
		Category:      question.Category,
		Explanation:   question.Explanation,
		Options:       question.Options,
		Seed:          seed,
		StartedAt:     now,
		EndsAt:        now.Add(window),
	}

	if err := p.store.CreateGame(ctx, game); err != nil {
		return nil, err
	}
	if _, err := p.store.MarkSeedUsed(ctx, guildID, seed); err != nil {
		log.Printf("Poster: failed to mark seed used: %v", err)
	}

	p.deliverQuestion(ctx, game)
	return game, nil
}

// deliverQuestion posts the question and opens its discussion thread. Any
// failure is logged and the game proceeds without the missing refs.
func (p *Poster) deliverQuestion(ctx context.Context, game *models.Game) {
	ref, err := p.sink.PostMessage(ctx, game.ChannelID, formatQuestion(game))
	if err != nil {
		log.Printf("Poster: delivery failed for game %.8s: %v", game.ID, err)
		return
	}
	game.MessageID = ref.MessageID

	threadName := fmt.Sprintf("Trivia - %s - %s", game.Category, p.now().In(p.tz).Format("2006-01-02 15:04"))
	threadID, err := p.sink.CreateThread(ctx, ref, threadName)
	if err != nil {
		log.Printf("Poster: thread creation failed for game %.8s: %v", game.ID, err)
	} else {
		game.ThreadID = threadID
	}

	if err := p.store.UpdateGame(ctx, game); err != nil {
		log.Printf("Poster: failed to store message refs for game %.8s: %v", game.ID, err)
	}
}

func formatQuestion(game *models.Game) string {
	return fmt.Sprintf("Trivia Question [%s]\n%s\nAnswers close at %s. Game ID: %.8s",
		game.Category, game.Question, game.EndsAt.Format(time.RFC1123), game.ID)
}
